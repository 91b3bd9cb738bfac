package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/indogram/internal/platform/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		HTTPAddr:             "127.0.0.1:0",
		GRPCAddr:             "127.0.0.1:0",
		DBPath:               t.TempDir() + "/indogram.db",
		JWTSecret:            "test-secret",
		TrendingCacheEnabled: true,
		MaxConns:             8,
	}
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})
	return srv
}

func TestServerServesHTTPAndHealth(t *testing.T) {
	srv := startServer(t, testConfig(t))

	conn, err := grpc.NewClient(srv.GRPCAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial gRPC: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := conn.Close(); closeErr != nil {
			t.Fatalf("close gRPC connection: %v", closeErr)
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := platformgrpc.WaitForHealth(ctx, conn, HealthServiceName, nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}

	resp, err := http.Get("http://" + srv.HTTPAddr() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !body["ok"] {
		t.Fatalf("health body = %v", body)
	}

	post, err := http.Post(
		"http://"+srv.HTTPAddr()+"/api/auth/register",
		"application/json",
		strings.NewReader(`{"username":"alice","password":"secret1"}`),
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer post.Body.Close()
	if post.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", post.StatusCode)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = " "
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}

func TestNewFailsOnBusyAddress(t *testing.T) {
	first := startServer(t, testConfig(t))

	cfg := testConfig(t)
	cfg.HTTPAddr = first.HTTPAddr()
	if _, err := New(cfg); err == nil {
		t.Fatal("expected listen error on busy address")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.DBPath == "" || cfg.TokenTTL <= 0 || cfg.TrendingCacheTTL <= 0 {
		t.Fatalf("defaults = %+v", cfg)
	}
}
