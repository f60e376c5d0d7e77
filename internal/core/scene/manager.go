package scene

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nighttide/nighttide/internal/core/observability/log"
)

// Manager owns the registered systems and drives them in priority order.
// Registration order is preserved within equal priorities so update order
// is deterministic.
type Manager struct {
	systems []*entry
	logger  log.Log
}

type entry struct {
	system   System
	priority Priority
	seq      int
	metrics  Metrics
}

// NewManager constructs an empty manager.
func NewManager(logger log.Log) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{logger: logger}
}

// Register adds a system at the given priority. Duplicate names are rejected.
func (m *Manager) Register(s System, priority Priority) error {
	for _, e := range m.systems {
		if e.system.Name() == s.Name() {
			return fmt.Errorf("system %q already registered", s.Name())
		}
	}
	m.systems = append(m.systems, &entry{system: s, priority: priority, seq: len(m.systems)})
	sort.SliceStable(m.systems, func(i, j int) bool {
		if m.systems[i].priority != m.systems[j].priority {
			return m.systems[i].priority < m.systems[j].priority
		}
		return m.systems[i].seq < m.systems[j].seq
	})
	m.logger.Debug("system registered", log.String("system", s.Name()), log.Int("priority", int(priority)))
	return nil
}

// System returns a registered system by name.
func (m *Manager) System(name string) (System, bool) {
	for _, e := range m.systems {
		if e.system.Name() == name {
			return e.system, true
		}
	}
	return nil, false
}

// InitializeAll initializes systems in update order, aggregating errors.
func (m *Manager) InitializeAll(ctx context.Context) error {
	var all error
	for _, e := range m.systems {
		if err := e.system.Initialize(ctx); err != nil {
			m.logger.Error("system initialization failed", log.String("system", e.system.Name()), log.Err(err))
			all = errors.Join(all, err)
		}
	}
	return all
}

// UpdateAll runs one frame across all systems. A failing system is logged
// and counted but the frame continues; decorative systems must never stall
// the host's render loop.
func (m *Manager) UpdateAll(frame Frame) error {
	var all error
	for _, e := range m.systems {
		start := time.Now()
		err := e.system.Update(frame)
		dur := time.Since(start)

		e.metrics.ExecutionCount++
		e.metrics.LastExecution = dur
		e.metrics.TotalExecution += dur
		e.metrics.LastExecutionTime = start
		if dur > e.metrics.MaxExecution {
			e.metrics.MaxExecution = dur
		}
		if err != nil {
			e.metrics.ErrorCount++
			m.logger.Error("system update failed", log.String("system", e.system.Name()), log.Err(err))
			all = errors.Join(all, err)
		}
	}
	return all
}

// DisposeAll disposes systems in reverse update order.
func (m *Manager) DisposeAll() error {
	var all error
	for i := len(m.systems) - 1; i >= 0; i-- {
		if err := m.systems[i].system.Dispose(); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}

// SystemMetrics returns the execution metrics of a system.
func (m *Manager) SystemMetrics(name string) (Metrics, bool) {
	for _, e := range m.systems {
		if e.system.Name() == name {
			return e.metrics, true
		}
	}
	return Metrics{}, false
}

// Names returns registered system names in update order.
func (m *Manager) Names() []string {
	out := make([]string, len(m.systems))
	for i, e := range m.systems {
		out[i] = e.system.Name()
	}
	return out
}
