// Package environment tracks whether the camera is underwater. It polls the
// camera position against registered water sources on a throttled interval,
// drives tint/fog effects through an injected target, and emits enter/exit
// events on the scene bus.
//
// The service is constructed explicitly and owned by the scene controller;
// there is no ambient global instance.
package environment

import (
	"context"
	"time"

	"github.com/nighttide/nighttide/internal/core/events/bus"
	"github.com/nighttide/nighttide/internal/core/gfx"
	"github.com/nighttide/nighttide/internal/core/observability/log"
	"github.com/nighttide/nighttide/internal/core/scene"
)

// SystemName is the registration name of the service.
const SystemName = "environment"

// Source is a registered water surface. The mesh reference is borrowed and
// used for identity only; the service owns no water geometry.
type Source struct {
	ID     string
	Mesh   *gfx.Mesh
	Level  func() float64
	Active bool
}

// EffectsTarget receives the overlay/fog mutations on state transitions.
// Injecting it keeps the state machine testable without renderer state.
type EffectsTarget interface {
	ApplyUnderwaterEffects(depth float64)
	ClearUnderwaterEffects()
}

// Config tunes the service.
type Config struct {
	// PollInterval throttles underwater detection; coarser on low tiers.
	PollInterval time.Duration
}

// DefaultConfig returns the default poll throttle.
func DefaultConfig() Config {
	return Config{PollInterval: 100 * time.Millisecond}
}

// Service implements scene.System for underwater detection.
type Service struct {
	cfg     Config
	logger  log.Log
	events  bus.EventBus
	effects EffectsTarget

	sources map[string]*Source

	underwater bool
	depth      float64
	currentID  string

	sincePoll float64

	initialized bool
	disposed    bool
}

// New constructs the service. events and effects may be nil; detection still
// runs and state is queryable.
func New(cfg Config, events bus.EventBus, effects EffectsTarget, logger log.Log) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Service{
		cfg:     cfg,
		logger:  logger.With(log.String("system", SystemName)),
		events:  events,
		effects: effects,
		sources: make(map[string]*Source),
	}
}

func (s *Service) Name() string { return SystemName }

func (s *Service) Initialize(context.Context) error {
	if s.initialized {
		s.logger.Warn("initialize called twice, ignoring")
		return nil
	}
	s.initialized = true
	return nil
}

// RegisterSource adds a water source. Duplicate ids are rejected; the first
// registration wins.
func (s *Service) RegisterSource(src Source) {
	if s.disposed {
		s.logger.Error("RegisterSource called on disposed service")
		return
	}
	if src.ID == "" || src.Level == nil {
		s.logger.Warn("ignoring water source with missing id or level callback")
		return
	}
	if _, exists := s.sources[src.ID]; exists {
		s.logger.Warn("duplicate water source id, keeping first", log.String("id", src.ID))
		return
	}
	cp := src
	s.sources[src.ID] = &cp
}

// UnregisterSource removes a source. Removing the source the camera is
// currently under forces an immediate exit transition regardless of the
// poll throttle.
func (s *Service) UnregisterSource(id string) {
	if s.disposed {
		return
	}
	if _, ok := s.sources[id]; !ok {
		return
	}
	delete(s.sources, id)
	if s.underwater && s.currentID == id {
		s.exit()
	}
}

// SetSourceActive toggles a source without unregistering it. Deactivating
// the current source forces an exit on the next poll.
func (s *Service) SetSourceActive(id string, active bool) {
	if src, ok := s.sources[id]; ok {
		src.Active = active
	}
}

// Update runs the throttled poll. The camera comes from the frame; a frame
// without a camera is skipped.
func (s *Service) Update(frame scene.Frame) error {
	if !s.initialized || s.disposed {
		return nil
	}
	s.sincePoll += frame.Delta
	if s.sincePoll < s.cfg.PollInterval.Seconds() {
		return nil
	}
	s.sincePoll = 0
	if frame.Camera == nil {
		return nil
	}
	s.poll(frame.Camera.Position[1])
	return nil
}

// poll compares camera height against the highest covering source.
func (s *Service) poll(cameraY float64) {
	bestID := ""
	bestLevel := 0.0
	for id, src := range s.sources {
		if !src.Active {
			continue
		}
		level := src.Level()
		if level <= cameraY {
			continue
		}
		if bestID == "" || level > bestLevel || (level == bestLevel && id < bestID) {
			bestID = id
			bestLevel = level
		}
	}

	switch {
	case bestID != "" && !s.underwater:
		s.enter(bestID, bestLevel-cameraY)
	case bestID != "" && s.underwater:
		// stay underwater: refresh depth and source without re-emitting
		s.currentID = bestID
		s.depth = bestLevel - cameraY
		if s.effects != nil {
			s.effects.ApplyUnderwaterEffects(s.depth)
		}
	case bestID == "" && s.underwater:
		s.exit()
	}
}

func (s *Service) enter(sourceID string, depth float64) {
	s.underwater = true
	s.currentID = sourceID
	s.depth = depth
	if s.effects != nil {
		s.effects.ApplyUnderwaterEffects(depth)
	}
	s.logger.Debug("underwater enter", log.String("source", sourceID), log.Float64("depth", depth))
	if s.events != nil {
		_ = s.events.Publish(bus.NewEvent(bus.EventUnderwaterEnter, SystemName,
			bus.UnderwaterEnterData{SourceID: sourceID, Depth: depth}))
	}
}

func (s *Service) exit() {
	prev := s.currentID
	s.underwater = false
	s.currentID = ""
	s.depth = 0
	if s.effects != nil {
		s.effects.ClearUnderwaterEffects()
	}
	s.logger.Debug("underwater exit", log.String("previous_source", prev))
	if s.events != nil {
		_ = s.events.Publish(bus.NewEvent(bus.EventUnderwaterExit, SystemName,
			bus.UnderwaterExitData{PreviousSourceID: prev}))
	}
}

// IsUnderwater reports the current state.
func (s *Service) IsUnderwater() bool { return s.underwater }

// Depth returns the current submersion depth, zero when surfaced.
func (s *Service) Depth() float64 { return s.depth }

// CurrentSourceID returns the id of the covering source, empty when surfaced.
func (s *Service) CurrentSourceID() string { return s.currentID }

// Dispose clears effects and drops all registrations. Idempotent.
func (s *Service) Dispose() error {
	if s.disposed {
		return nil
	}
	s.disposed = true
	if s.underwater {
		s.exit()
	}
	s.sources = nil
	return nil
}
