// Package scene hosts the per-frame driver: the System contract every scene
// component implements, and the Manager that updates them in priority order
// from one external tick.
package scene

import (
	"context"
	"time"

	"github.com/nighttide/nighttide/internal/core/spatial"
)

// Frame carries one tick's timing and the optional active camera.
type Frame struct {
	// Delta is the frame time step in seconds.
	Delta float64
	// Elapsed is total simulation time in seconds.
	Elapsed float64
	// Index is the frame counter.
	Index int64
	// Camera is the active camera, or nil when the host has none.
	Camera *spatial.Camera
}

// System is a scene component driven once per frame.
type System interface {
	// Name identifies the system for registration and logs.
	Name() string
	// Initialize allocates the system's resources. A second call is a
	// logged no-op, not an error to the caller.
	Initialize(ctx context.Context) error
	// Update advances the system by one frame. Updates are bounded,
	// non-blocking computations; a returned error is reported but must not
	// stop the frame.
	Update(frame Frame) error
	// Dispose releases all resources. Idempotent.
	Dispose() error
}

// Priority defines update order; lower values run earlier.
type Priority uint16

const (
	PriorityEarly  Priority = 100
	PriorityNormal Priority = 500
	PriorityLate   Priority = 900
)

// Metrics is a per-system execution snapshot.
type Metrics struct {
	ExecutionCount    uint64
	ErrorCount        uint64
	LastExecution     time.Duration
	MaxExecution      time.Duration
	TotalExecution    time.Duration
	LastExecutionTime time.Time
}
