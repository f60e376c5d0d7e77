package quality

import (
	"github.com/nighttide/nighttide/internal/core/observability/log"
)

// DeviceCapabilities is the explicit probe result passed into the resolver.
// It is computed once at startup; no scene system sniffs the host at runtime.
type DeviceCapabilities struct {
	ScreenWidth     int
	ScreenHeight    int
	PixelRatio      float64
	TouchCapable    bool
	UserAgent       string
	DeviceMemoryGB  float64
	HardwareThreads int
}

// ProbeSource is implemented by the host to expose whatever capability
// signals it has. Any method may fail; the probe tolerates all of it.
type ProbeSource interface {
	Capabilities() (DeviceCapabilities, error)
}

// ProbeSourceFunc adapts a function to ProbeSource.
type ProbeSourceFunc func() (DeviceCapabilities, error)

func (f ProbeSourceFunc) Capabilities() (DeviceCapabilities, error) { return f() }

// Probe runs the one-shot device probe. A nil source, an error, or a panic
// inside the source all yield zero capabilities, which classify to the most
// conservative tier. Decorative visuals must never block startup.
func Probe(src ProbeSource, logger log.Log) (caps DeviceCapabilities) {
	if logger == nil {
		logger = log.Nop()
	}
	if src == nil {
		logger.Warn("no capability source, assuming lowest tier")
		return DeviceCapabilities{}
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("device probe panicked, assuming lowest tier", log.Any("panic", rec))
			caps = DeviceCapabilities{}
		}
	}()
	probed, err := src.Capabilities()
	if err != nil {
		logger.Warn("device probe failed, assuming lowest tier", log.Err(err))
		return DeviceCapabilities{}
	}
	return probed
}
