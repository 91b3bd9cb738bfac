// Package indogram parses social service flags and launches the service.
package indogram

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/indogram/internal/platform/cmd"
	server "github.com/louisbranch/indogram/internal/services/social/app"
)

// Config holds indogram command configuration.
type Config struct {
	HTTPAddr             string        `env:"INDOGRAM_HTTP_ADDR" envDefault:":8080"`
	GRPCPort             int           `env:"INDOGRAM_GRPC_PORT" envDefault:"8091"`
	DBPath               string        `env:"INDOGRAM_DB_PATH" envDefault:"data/indogram.db"`
	JWTSecret            string        `env:"INDOGRAM_JWT_SECRET" envDefault:"change_me_to_a_long_random_string"`
	TokenTTL             time.Duration `env:"INDOGRAM_TOKEN_TTL" envDefault:"168h"`
	TrendingCacheEnabled bool          `env:"INDOGRAM_TRENDING_CACHE_ENABLED" envDefault:"true"`
	TrendingCacheTTL     time.Duration `env:"INDOGRAM_TRENDING_CACHE_TTL" envDefault:"1m"`
	MaxConns             int           `env:"INDOGRAM_HTTP_MAX_CONNS" envDefault:"512"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP API listen address")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "The gRPC health server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) serverConfig() server.Config {
	return server.Config{
		HTTPAddr:             c.HTTPAddr,
		GRPCAddr:             fmt.Sprintf(":%d", c.GRPCPort),
		DBPath:               c.DBPath,
		JWTSecret:            c.JWTSecret,
		TokenTTL:             c.TokenTTL,
		TrendingCacheEnabled: c.TrendingCacheEnabled,
		TrendingCacheTTL:     c.TrendingCacheTTL,
		MaxConns:             c.MaxConns,
	}
}

// Run starts the social HTTP API and gRPC health services.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceIndogram, func(runCtx context.Context) error {
		return server.Run(runCtx, cfg.serverConfig())
	})
}
