// Package server wires the Indogram social runtime: storage, the JSON HTTP
// API and the gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/indogram/internal/platform/grpc"
	"github.com/louisbranch/indogram/internal/platform/timeouts"
	"github.com/louisbranch/indogram/internal/services/social/api/httpapi"
	"github.com/louisbranch/indogram/internal/services/social/authtoken"
	"github.com/louisbranch/indogram/internal/services/social/cache"
	"github.com/louisbranch/indogram/internal/services/social/domain"
	"github.com/louisbranch/indogram/internal/services/social/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// HealthServiceName is the gRPC health service name reported as SERVING.
const HealthServiceName = "indogram.social"

// Config carries the runtime settings of one social process.
type Config struct {
	HTTPAddr             string
	GRPCAddr             string
	DBPath               string
	JWTSecret            string
	TokenTTL             time.Duration
	TrendingCacheEnabled bool
	TrendingCacheTTL     time.Duration
	MaxConns             int
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = filepath.Join("data", "indogram.db")
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = timeouts.TokenLifetime
	}
	if c.TrendingCacheTTL <= 0 {
		c.TrendingCacheTTL = timeouts.TrendingCacheTTL
	}
	return c
}

// Server hosts the HTTP API and the gRPC health server.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *sqlite.Store
	trending     *cache.Trending
}

// New opens storage and binds both listeners.
func New(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	server := &Server{store: store}

	tokens, err := authtoken.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, nil)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("new token issuer: %w", err)
	}
	serviceConfig := domain.Config{
		Stores: domain.Stores{
			Users:         store,
			Followers:     store,
			Posts:         store,
			Groups:        store,
			Notifications: store,
		},
		Tokens: tokens,
	}
	if cfg.TrendingCacheEnabled {
		server.trending, err = cache.NewTrending(cfg.TrendingCacheTTL)
		if err != nil {
			server.Close()
			return nil, err
		}
		serviceConfig.Trending = server.trending
	}
	service, err := domain.NewService(serviceConfig)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("new social service: %w", err)
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	if cfg.MaxConns > 0 {
		httpListener = netutil.LimitListener(httpListener, cfg.MaxConns)
	}
	server.httpListener = httpListener
	server.httpServer = &http.Server{
		Handler:           httpapi.NewServer(service, tokens).Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	server.grpcListener = grpcListener
	server.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	server.health = platformgrpc.RegisterHealth(server.grpcServer, HealthServiceName)
	return server, nil
}

// HTTPAddr returns the bound HTTP API address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC health address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a social server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs both servers until ctx ends or either fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("http api listening at %v", s.httpListener.Addr())
	log.Printf("grpc health listening at %v", s.grpcListener.Addr())
	httpErr := make(chan error, 1)
	grpcErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()
	go func() {
		grpcErr <- s.grpcServer.Serve(s.grpcListener)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve http: %w", err)
		}
		httpErr <- nil
	case err := <-grpcErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr = fmt.Errorf("serve gRPC: %w", err)
		}
		grpcErr <- nil
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown http: %w", err)
	}
	s.grpcServer.GracefulStop()
	<-httpErr
	<-grpcErr
	return serveErr
}

// Close releases listeners, the cache and the store.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.trending != nil {
		s.trending.Close()
		s.trending = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close social store: %v", err)
		}
		s.store = nil
	}
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open social sqlite store: %w", err)
	}
	return store, nil
}
