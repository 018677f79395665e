package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap/zaptest"

	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

func TestNewClientPings(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := config.RedisSettings{Host: srv.Host(), Port: mustPort(t, srv.Port())}
	client, err := NewClient(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	defer client.Close()

	if err := client.Client().Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestNewClientFailsWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := config.RedisSettings{Host: srv.Host(), Port: mustPort(t, srv.Port())}
	srv.Close()

	if _, err := NewClient(context.Background(), cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected ping failure")
	}
}

func mustPort(t *testing.T, port string) int {
	t.Helper()
	n, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("invalid port %q: %v", port, err)
	}
	return n
}
