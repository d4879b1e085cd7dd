package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/music-gateway/internal/audit"
	"github.com/nerrad567/music-gateway/internal/gateway"
	"github.com/nerrad567/music-gateway/internal/infrastructure/config"
	"github.com/nerrad567/music-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/music-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/music-gateway/internal/musiclist"
	"github.com/nerrad567/music-gateway/internal/zone"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StateMirror publishes rendered zone state to an external bus.
// *mqtt.Client implements it.
type StateMirror interface {
	PublishZoneState(zoneID int, payload []byte) error
	IsConnected() bool
}

// PlaybackRecorder stores playback telemetry. *influxdb.Client implements it.
type PlaybackRecorder interface {
	WriteZonePlayback(p influxdb.Playback)
}

// Deps holds the dependencies required by the server. Journal, Mirror and
// Telemetry are optional.
type Deps struct {
	Config    *config.Config
	Logger    *logging.Logger
	Gateway   gateway.Caller
	Journal   audit.Repository
	Mirror    StateMirror
	Telemetry PlaybackRecorder
	Version   string
}

// Server owns the zones, the global lists and the push hub, and serves the
// protocol over HTTP and WebSocket.
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	gateway   gateway.Caller
	journal   audit.Repository
	stateBus  StateMirror
	version   string
	startTime time.Time

	zones     *zone.Registry
	inputs    *musiclist.List
	favorites *musiclist.List
	playlists *musiclist.List
	library   *musiclist.List

	hub    *Hub
	mirror *mirror

	// images remembers the image of every item handed to the controller,
	// keyed by backend id, so saved favorites keep their cover.
	images   map[string]string
	imagesMu sync.RWMutex

	miniserverMu sync.RWMutex
	miniserver   string

	server *http.Server

	// ctx outlives individual requests; WebSocket commands run under it.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the server and its zones. Zones report changes back to the
// server, which turns them into push events.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway client is required")
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		gateway:   deps.Gateway,
		journal:   deps.Journal,
		stateBus:  deps.Mirror,
		version:   deps.Version,
		startTime: time.Now(),
		images:    make(map[string]string),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.hub = NewHub(deps.Config.WebSocket, deps.Logger.With("component", "websocket"))
	if deps.Mirror != nil || deps.Telemetry != nil {
		s.mirror = newMirror(deps.Mirror, deps.Telemetry, deps.Logger.With("component", "mirror"))
	}

	s.zones = zone.NewRegistry(deps.Config.Zones.Count, deps.Gateway, zone.Options{
		PollInterval:          deps.Config.Zones.PollInterval,
		Debounce:              deps.Config.Zones.Debounce,
		DiscardStaleResponses: deps.Config.Zones.DiscardStaleResponses,
		Logger:                deps.Logger.With("component", "zone"),
		Notifier:              s,
	})

	listLogger := deps.Logger.With("component", "list")
	s.inputs = s.newList("/inputs", listLogger)
	s.favorites = s.newList("/favorites", listLogger)
	s.playlists = s.newList("/playlists", listLogger)
	s.library = s.newList("/library", listLogger)

	return s, nil
}

func (s *Server) newList(path string, logger *logging.Logger) *musiclist.List {
	l := musiclist.New(s.gateway, path)
	l.SetLogger(logger)
	return l
}

// Zones returns the zone registry.
func (s *Server) Zones() *zone.Registry {
	return s.zones
}

// Handler returns the HTTP handler serving the protocol and the JSON API.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening in a background goroutine. The server can be
// stopped with Close.
func (s *Server) Start(_ context.Context) error {
	if s.mirror != nil {
		go s.mirror.run(s.ctx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// Close disconnects push clients, stops the zones and shuts the listener
// down, waiting up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	s.cancel()
	s.hub.closeAll()
	s.zones.Close()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// MiniserverHost returns the controller address announced by the last
// iamaminiserver command.
func (s *Server) MiniserverHost() string {
	s.miniserverMu.RLock()
	defer s.miniserverMu.RUnlock()
	return s.miniserver
}

func (s *Server) rememberImage(backendID, image string) {
	s.imagesMu.Lock()
	s.images[backendID] = image
	s.imagesMu.Unlock()
}

func (s *Server) imageFor(backendID string) string {
	s.imagesMu.RLock()
	defer s.imagesMu.RUnlock()
	return s.images[backendID]
}
