package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/internal/config"
	"github.com/gravitas-games/slotcore/internal/metrics"
	"github.com/gravitas-games/slotcore/internal/storage"
	"github.com/gravitas-games/slotcore/internal/world"
	"github.com/gravitas-games/slotcore/pkg/production"
)

// Server represents the game server
type Server struct {
	config    *config.Config
	session   *Session
	world     *world.World
	store     *storage.InventoryStore
	upgrader  websocket.Upgrader
	httpSrv   *http.Server
	validator TokenValidator
	redis     *redis.Client
	metrics   *metrics.ServerMetrics
	logger    *zap.Logger

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
	ticks  sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the collectors the server reports to.
func WithMetrics(m *metrics.ServerMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithValidator replaces the JWT validator fetched from the login server.
func WithValidator(v TokenValidator) Option {
	return func(s *Server) { s.validator = v }
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:      cfg,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		logger:      zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.metrics == nil {
		srv.metrics = metrics.New()
	}

	if err := srv.init(); err != nil {
		srv.release()
		return nil, err
	}
	srv.logger.Info("server initialized",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("compression", cfg.Storage.Compression))
	return srv, nil
}

func (s *Server) init() error {
	cfg := s.config
	if cfg.Redis.Address != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(s.ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.logger.Info("connected to redis", zap.String("address", cfg.Redis.Address))
	}

	if s.validator == nil {
		v, err := NewJWTValidator(s.ctx, cfg, s.redis, s.logger.Named("auth"))
		if err != nil {
			return fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
		s.validator = v
	}

	backend, err := storage.Open(cfg.Storage, s.redis)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	comp, err := storage.NewCompressor(cfg.Storage.Compression)
	if err != nil {
		_ = backend.Close()
		return err
	}
	s.store = storage.NewInventoryStore(backend, comp, s.logger.Named("storage"), s.metrics)

	w, err := world.New(cfg,
		world.WithLogger(s.logger.Named("world")),
		world.WithProductionEvents(func(e production.Event) {
			s.metrics.ProductionEvents.WithLabelValues(e.Type.String()).Inc()
		}))
	if err != nil {
		return fmt.Errorf("failed to build world: %w", err)
	}
	if err := w.Load(s.ctx, s.store); err != nil {
		return err
	}
	s.world = w
	s.session = NewSession("main", cfg, w, s.store, s.metrics, s.logger)
	return nil
}

func (s *Server) release() {
	s.cancel()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("storage close error", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("redis close error", zap.Error(err))
		}
	}
}

// Session returns the game session.
func (s *Server) Session() *Session { return s.session }

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Start runs the tick loop and listens for connections until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.ticks.Add(1)
	go s.runTicks()

	s.logger.Info("starting websocket server",
		zap.String("ws", fmt.Sprintf("ws://%s/ws", addr)),
		zap.String("health", fmt.Sprintf("http://%s/health", addr)))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) runTicks() {
	defer s.ticks.Done()
	rate := s.config.Server.TickRate
	if rate <= 0 {
		rate = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.session.Tick(now)
		}
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server")
	s.cancel()
	s.ticks.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("http server shutdown error", zap.Error(err))
		}
	}

	s.connMu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connMu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}

	err := s.session.SaveAll(ctx)
	if err != nil {
		s.logger.Error("failed to save inventories", zap.Error(err))
	}
	s.release()
	s.logger.Info("server shutdown complete")
	return err
}

// handleWebSocket authenticates and upgrades a connection request
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		s.logger.Debug("missing jwt token", zap.String("remote", r.RemoteAddr))
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	player, err := s.validator.ValidateToken(tokenString)
	if err != nil {
		s.logger.Info("invalid jwt token", zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConnection(ws, s, player)
	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()
	s.logger.Info("websocket connection established",
		zap.String("player", player.ID),
		zap.String("username", player.Username),
		zap.String("remote", r.RemoteAddr))

	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()
	s.logger.Info("websocket connection closed", zap.String("player", player.ID))
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
