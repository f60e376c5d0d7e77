package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSystem struct {
	name      string
	order     *[]string
	updateErr error
	initCount int
	disposed  int
}

func (s *recordingSystem) Name() string { return s.name }

func (s *recordingSystem) Initialize(context.Context) error {
	s.initCount++
	return nil
}

func (s *recordingSystem) Update(Frame) error {
	*s.order = append(*s.order, s.name)
	return s.updateErr
}

func (s *recordingSystem) Dispose() error {
	s.disposed++
	*s.order = append(*s.order, "dispose:"+s.name)
	return nil
}

func TestManagerUpdateOrder(t *testing.T) {
	var order []string
	m := NewManager(nil)
	require.NoError(t, m.Register(&recordingSystem{name: "late", order: &order}, PriorityLate))
	require.NoError(t, m.Register(&recordingSystem{name: "early", order: &order}, PriorityEarly))
	require.NoError(t, m.Register(&recordingSystem{name: "a", order: &order}, PriorityNormal))
	require.NoError(t, m.Register(&recordingSystem{name: "b", order: &order}, PriorityNormal))

	require.NoError(t, m.UpdateAll(Frame{Delta: 0.016}))
	assert.Equal(t, []string{"early", "a", "b", "late"}, order)
	assert.Equal(t, []string{"early", "a", "b", "late"}, m.Names())
}

func TestManagerDuplicateName(t *testing.T) {
	var order []string
	m := NewManager(nil)
	require.NoError(t, m.Register(&recordingSystem{name: "x", order: &order}, PriorityNormal))
	assert.Error(t, m.Register(&recordingSystem{name: "x", order: &order}, PriorityNormal))
}

func TestManagerKeepsGoingOnError(t *testing.T) {
	var order []string
	fail := errors.New("broken")
	m := NewManager(nil)
	require.NoError(t, m.Register(&recordingSystem{name: "bad", order: &order, updateErr: fail}, PriorityEarly))
	require.NoError(t, m.Register(&recordingSystem{name: "good", order: &order}, PriorityNormal))

	err := m.UpdateAll(Frame{Delta: 0.016})
	assert.ErrorIs(t, err, fail)
	// the failing system did not stop the frame
	assert.Equal(t, []string{"bad", "good"}, order)

	metrics, ok := m.SystemMetrics("bad")
	require.True(t, ok)
	assert.Equal(t, uint64(1), metrics.ErrorCount)
	assert.Equal(t, uint64(1), metrics.ExecutionCount)
}

func TestManagerDisposeReverseOrder(t *testing.T) {
	var order []string
	m := NewManager(nil)
	require.NoError(t, m.Register(&recordingSystem{name: "first", order: &order}, PriorityEarly))
	require.NoError(t, m.Register(&recordingSystem{name: "second", order: &order}, PriorityNormal))

	require.NoError(t, m.DisposeAll())
	assert.Equal(t, []string{"dispose:second", "dispose:first"}, order)
}

func TestManagerInitializeAll(t *testing.T) {
	var order []string
	sys := &recordingSystem{name: "s", order: &order}
	m := NewManager(nil)
	require.NoError(t, m.Register(sys, PriorityNormal))
	require.NoError(t, m.InitializeAll(context.Background()))
	assert.Equal(t, 1, sys.initCount)

	found, ok := m.System("s")
	require.True(t, ok)
	assert.Equal(t, sys, found)
}

func TestClockClampsDelta(t *testing.T) {
	c := NewClock()

	f := c.TickDelta(0.016, nil)
	assert.InDelta(t, 0.016, f.Delta, 1e-12)
	assert.Equal(t, int64(1), f.Index)

	// a huge stall is clamped
	f = c.TickDelta(5.0, nil)
	assert.InDelta(t, MaxFrameDelta, f.Delta, 1e-12)

	// negative deltas never rewind time
	f = c.TickDelta(-1, nil)
	assert.Zero(t, f.Delta)
	assert.InDelta(t, 0.016+MaxFrameDelta, f.Elapsed, 1e-9)
}
