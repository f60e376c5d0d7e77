// Package server runs the scene core headlessly and streams state
// snapshots to browser preview clients over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nighttide/nighttide/internal/core/events/bus"
	"github.com/nighttide/nighttide/internal/core/gfx"
	"github.com/nighttide/nighttide/internal/core/observability/log"
	"github.com/nighttide/nighttide/internal/core/quality"
	"github.com/nighttide/nighttide/internal/core/scene"
	"github.com/nighttide/nighttide/internal/core/scene/environment"
	"github.com/nighttide/nighttide/internal/core/scene/firefly"
	"github.com/nighttide/nighttide/internal/core/scene/interaction"
	"github.com/nighttide/nighttide/internal/core/scene/ocean"
	"github.com/nighttide/nighttide/internal/core/spatial"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The preview page may be served from a different origin during
	// development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// controlMessage is the client-to-server message format.
type controlMessage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Control message types accepted over the socket.
const (
	ctrlFireflyIntensity = "firefly_intensity"
	ctrlWaterLevel       = "water_level"
)

// Server drives the scene loop and fans snapshots out to viewers.
type Server struct {
	// Core components
	cfg      Config
	logger   log.Log
	events   bus.EventBus
	settings quality.Settings

	manager      *scene.Manager
	clock        *scene.Clock
	fireflies    *firefly.Field
	ocean        *ocean.Surface
	environment  *environment.Service
	effects      *environment.SceneEffects
	interactions *interaction.Dispatcher

	// Client management
	clients   map[*safeConn]bool
	clientsMu sync.Mutex

	httpServer *http.Server
	encoder    *snapshotEncoder
	commands   chan controlMessage

	// Server state
	running   atomic.Bool
	lastFrame atomic.Int64
	stopChan  chan struct{}
	workers   sync.WaitGroup
}

// New assembles the scene systems for the configured quality tier.
func New(cfg Config, logger log.Log) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.ParseLevel(cfg.LogLevel))
	}

	tier, err := quality.ParseTier(cfg.QualityTier)
	if err != nil {
		return nil, fmt.Errorf("quality_tier: %w", err)
	}
	events := bus.New()
	resolver := quality.NewResolver(quality.WithLogger(logger), quality.WithEventBus(events))
	settings := resolver.Resolve(tier)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		events:   events,
		settings: settings,
		manager:  scene.NewManager(logger),
		clock:    scene.NewClock(),
		clients:  make(map[*safeConn]bool),
		encoder:  newSnapshotEncoder(),
		commands: make(chan controlMessage, 32),
		stopChan: make(chan struct{}),
	}

	s.fireflies = firefly.New(firefly.DefaultConfig(), settings, logger)
	s.ocean = ocean.New(ocean.DefaultConfig(), settings, logger)
	s.effects = environment.DefaultSceneEffects(gfx.Fog{Color: gfx.Color{R: 0.05, G: 0.07, B: 0.12}, Near: 10, Far: 500})
	s.environment = environment.New(environment.Config{PollInterval: settings.EnvironmentPollInterval}, events, s.effects, logger)
	s.interactions = interaction.New(interaction.DefaultConfig(), events, logger)

	for _, reg := range []struct {
		sys      scene.System
		priority scene.Priority
	}{
		{s.ocean, scene.PriorityEarly},
		{s.fireflies, scene.PriorityNormal},
		{s.environment, scene.PriorityLate},
		{s.interactions, scene.PriorityLate},
	} {
		if err = s.manager.Register(reg.sys, reg.priority); err != nil {
			return nil, err
		}
	}

	s.environment.RegisterSource(environment.Source{
		ID:     ocean.SystemName,
		Mesh:   s.ocean.Mesh(),
		Level:  s.ocean.WaterLevel,
		Active: true,
	})

	return s, nil
}

// Start initializes the systems and launches the HTTP listener and the
// scene loop. It returns once both are running.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("server already running")
	}
	if err := s.manager.InitializeAll(ctx); err != nil {
		s.running.Store(false)
		return fmt.Errorf("initialize scene: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.httpServer = &http.Server{Addr: s.cfg.Addr(), Handler: mux}

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http listener failed", log.Err(err))
		}
	}()

	s.workers.Add(1)
	go s.runLoop()

	s.logger.Info("preview server started",
		log.String("addr", s.cfg.Addr()),
		log.Int("tick_rate", s.cfg.TickRate),
		log.String("tier", s.settings.Tier.String()))
	return nil
}

// Stop shuts the loop down, closes clients and disposes the scene.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	close(s.stopChan)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", log.Err(err))
	}

	s.clientsMu.Lock()
	for c := range s.clients {
		_ = c.Close()
	}
	s.clients = make(map[*safeConn]bool)
	s.clientsMu.Unlock()

	s.workers.Wait()
	if err := s.manager.DisposeAll(); err != nil {
		return fmt.Errorf("dispose scene: %w", err)
	}
	s.logger.Info("preview server stopped")
	return nil
}

// runLoop is the single goroutine that mutates scene state.
func (s *Server) runLoop() {
	defer s.workers.Done()
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.step()
		}
	}
}

func (s *Server) step() {
	s.drainCommands()

	camera := s.orbitCamera()
	frame := s.clock.Tick(camera)
	s.lastFrame.Store(frame.Index)

	if err := s.manager.UpdateAll(frame); err != nil {
		s.logger.Warn("frame update reported errors", log.Err(err))
	}

	if frame.Index%int64(s.cfg.SnapshotEvery) == 0 {
		s.broadcast(s.snapshot(frame))
	}
}

func (s *Server) drainCommands() {
	for {
		select {
		case msg := <-s.commands:
			switch msg.Type {
			case ctrlFireflyIntensity:
				s.fireflies.SetIntensity(msg.Value)
			case ctrlWaterLevel:
				s.ocean.SetWaterLevel(msg.Value)
			default:
				s.logger.Debug("unknown control message", log.String("type", msg.Type))
			}
		default:
			return
		}
	}
}

// orbitCamera circles the preview camera slowly around the scene origin.
func (s *Server) orbitCamera() *spatial.Camera {
	elapsed := s.clock.Elapsed()
	angle := 2 * math.Pi * elapsed / s.cfg.OrbitPeriod
	pos := spatial.V3(
		s.cfg.CameraRadius*math.Cos(angle),
		s.cfg.CameraHeight,
		s.cfg.CameraRadius*math.Sin(angle),
	)
	return spatial.PerspectiveCamera(pos, spatial.V3(0, 0, 0), spatial.V3(0, 1, 0),
		math.Pi/3, 16.0/9.0, 0.1, 1000)
}

func (s *Server) snapshot(frame scene.Frame) Snapshot {
	return Snapshot{
		Type:         "snapshot",
		Frame:        uint64(frame.Index),
		Elapsed:      frame.Elapsed,
		Fireflies:    fireflyStates(s.fireflies.Fireflies()),
		ActiveLights: s.fireflies.ActiveLightCount(),
		WaterLevel:   s.ocean.WaterLevel(),
		Underwater:   s.environment.IsUnderwater(),
		Depth:        s.environment.Depth(),
	}
}

func (s *Server) broadcast(snap Snapshot) {
	s.clientsMu.Lock()
	if len(s.clients) == 0 {
		s.clientsMu.Unlock()
		return
	}
	conns := make([]*safeConn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.clientsMu.Unlock()

	data, release, err := s.encoder.encode(snap)
	if err != nil {
		s.logger.Error("snapshot encode failed", log.Err(err))
		return
	}
	defer release()

	for _, c := range conns {
		if err = c.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("dropping viewer on write failure", log.Err(err))
			s.removeClient(c)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.Lock()
	if len(s.clients) >= s.cfg.MaxClients {
		s.clientsMu.Unlock()
		http.Error(w, "viewer limit reached", http.StatusServiceUnavailable)
		return
	}
	s.clientsMu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", log.Err(err))
		return
	}
	c := newSafeConn(conn)

	s.clientsMu.Lock()
	s.clients[c] = true
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Info("viewer connected",
		log.String("remote", r.RemoteAddr), log.Int("viewers", total))

	go s.readClient(c)
}

// readClient consumes control messages until the connection drops.
func (s *Server) readClient(c *safeConn) {
	defer s.removeClient(c)
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMessage
		if err = json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("malformed control message", log.Err(err))
			continue
		}
		select {
		case s.commands <- msg:
		default:
			// loop is behind; shed the command rather than block the reader
		}
	}
}

func (s *Server) removeClient(c *safeConn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, c)
	total := len(s.clients)
	s.clientsMu.Unlock()
	_ = c.Close()
	s.logger.Info("viewer disconnected", log.Int("viewers", total))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.clientsMu.Lock()
	viewers := len(s.clients)
	s.clientsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"viewers": viewers,
		"frame":   s.lastFrame.Load(),
		"tier":    s.settings.Tier.String(),
	})
}

// ClientCount returns the number of connected viewers.
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}
