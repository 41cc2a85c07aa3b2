// Package worker provides the HTTP service for dilse.
package worker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/dilse/internal/activity"
	"github.com/thebtf/dilse/internal/catalog"
	"github.com/thebtf/dilse/internal/config"
	"github.com/thebtf/dilse/internal/generation"
	"github.com/thebtf/dilse/internal/identity"
	"github.com/thebtf/dilse/internal/practice"
	"github.com/thebtf/dilse/internal/worker/sse"
	"github.com/thebtf/dilse/pkg/models"
)

// ShutdownTimeout bounds a graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Deps are the components the worker serves. Metrics may be nil.
type Deps struct {
	Config     *config.Config
	Adapter    *identity.Adapter
	Engine     *practice.Engine
	Activity   *activity.Service
	Generation *generation.Service
	Catalog    *catalog.Catalog
	Metrics    MetricsCollector
	Version    string
}

// Service is the worker HTTP service.
type Service struct {
	startTime      time.Time
	ctx            context.Context
	config         *config.Config
	adapter        *identity.Adapter
	engine         *practice.Engine
	activity       *activity.Service
	generation     *generation.Service
	catalog        *catalog.Catalog
	metrics        MetricsCollector
	sseBroadcaster *sse.Broadcaster
	router         chi.Router
	server         *http.Server
	cancel         context.CancelFunc
	version        string
	unsubscribe    []func()
	ready          atomic.Bool
	shutdownOnce   sync.Once
}

// NewService builds the router and connects identity changes to the
// practice engine and the event stream.
func NewService(deps Deps) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		version:        deps.Version,
		config:         deps.Config,
		adapter:        deps.Adapter,
		engine:         deps.Engine,
		activity:       deps.Activity,
		generation:     deps.Generation,
		catalog:        deps.Catalog,
		metrics:        deps.Metrics,
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	svc.setupRoutes()
	svc.wire()
	return svc
}

// wire forwards identity changes to the engine and both kinds of change to
// SSE clients.
func (s *Service) wire() {
	s.unsubscribe = append(s.unsubscribe,
		s.adapter.Subscribe(func(id *models.Identity) {
			s.engine.SetIdentity(id)
			s.sseBroadcaster.Publish(sse.EventIdentityChanged, identityView(id))
		}),
		s.engine.Subscribe(func(snap practice.Snapshot) {
			s.sseBroadcaster.Publish(sse.EventPracticeChanged, snap)
		}),
	)
	// A provider may have restored a session before we subscribed.
	if id := s.adapter.Current(); id != nil {
		s.engine.SetIdentity(id)
	}
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Shutdown.
// It returns once the listener is bound.
func (s *Service) Start() error {
	addr := s.config.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	s.ready.Store(true)
	log.Info().Str("addr", ln.Addr().String()).Str("version", s.version).Msg("Worker listening")

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Worker server stopped")
		}
	}()
	return nil
}

// Shutdown stops accepting requests, ends event streams and detaches from
// the identity adapter and engine. It is safe to call more than once.
func (s *Service) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.ready.Store(false)
		for _, unsub := range s.unsubscribe {
			unsub()
		}
		s.sseBroadcaster.Close()
		s.cancel()
		if s.server != nil {
			err = s.server.Shutdown(ctx)
		}
		log.Info().Dur("uptime", time.Since(s.startTime)).Msg("Worker stopped")
	})
	return err
}

func identityView(id *models.Identity) any {
	if id == nil {
		return map[string]any{"signedIn": false}
	}
	return map[string]any{"signedIn": true, "identity": id}
}
