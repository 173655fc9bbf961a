package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/seritalien/vauban-rpc/internal/cache"
	"github.com/seritalien/vauban-rpc/internal/config"
	"github.com/seritalien/vauban-rpc/internal/proxy"
	"github.com/seritalien/vauban-rpc/internal/upstream"
)

// Server represents the main server
type Server struct {
	cfg        *config.Config
	cache      cache.Cache
	client     *upstream.Client
	handler    http.Handler
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates a new Server
func New(cfg *config.Config, logger zerolog.Logger) *Server {
	// Create cache based on config
	var rpcCache cache.Cache
	if cfg.IsCacheEnabled() {
		rpcCache = cache.NewFIFOCache(cfg.Cache.Size, cfg.Cache.GetTTLDuration())

		// Set disabled methods if configured
		if len(cfg.Cache.DisabledMethods) > 0 {
			cache.SetDisabledMethods(cfg.Cache.DisabledMethods)
			logger.Info().
				Strs("disabledMethods", cfg.Cache.DisabledMethods).
				Msg("cache disabled for specific methods")
		}

		logger.Info().
			Int("size", cfg.Cache.Size).
			Int("ttl", cfg.Cache.TTL).
			Msg("cache enabled")
	} else {
		rpcCache = cache.NewNoopCache()
		logger.Info().Msg("cache disabled")
	}

	client := upstream.NewClient(upstream.Config{
		Name:           cfg.Upstream.Name,
		RPCURL:         cfg.Upstream.RPCURL,
		RequestTimeout: cfg.GetRequestTimeoutDuration(),
		Logger:         logger,
	})

	rpcHandler := proxy.NewHandler(client, rpcCache, cfg, logger)

	router := mux.NewRouter()
	router.Use(proxy.RequestLogger(logger))
	router.HandleFunc("/rpc", rpcHandler.HandleRPC).Methods(http.MethodPost)
	router.HandleFunc("/rpc", rpcHandler.HandleClearCache).Methods(http.MethodDelete)
	router.HandleFunc("/healthz", rpcHandler.HandleHealth).Methods(http.MethodGet)

	var handler http.Handler = router
	if cfg.IsCORSEnabled() {
		c := cors.New(cors.Options{
			AllowedOrigins: cfg.GetAllowedOrigins(),
			AllowedMethods: []string{http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Accept"},
			MaxAge:         300,
		})
		handler = c.Handler(router)
		logger.Info().
			Strs("origins", cfg.GetAllowedOrigins()).
			Msg("CORS enabled")
	}

	return &Server{
		cfg:     cfg,
		cache:   rpcCache,
		client:  client,
		handler: handler,
		logger:  logger,
	}
}

// Handler returns the fully assembled HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("addr", addr).
			Str("upstream", s.cfg.Upstream.RPCURL).
			Msg("starting RPC gateway")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC gateway error")
		}
	}()

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.client.Close()
	s.cache.Close()

	if err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}
