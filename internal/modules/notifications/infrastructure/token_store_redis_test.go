//go:build integration

package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"notificationRelay/internal/modules/notifications/domain"
)

const redisImage = "redis:7-alpine"

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// startRedis runs a throwaway redis container and returns a client bound to it.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if !dockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisTokenStore(t *testing.T) {
	client := startRedis(t)
	store := NewRedisTokenStore(client)
	ctx := context.Background()

	t.Run("put sets expiry atomically", func(t *testing.T) {
		if err := store.Put(ctx, "tok-ttl", "U1", time.Minute); err != nil {
			t.Fatalf("put: %v", err)
		}
		ttl, err := client.PTTL(ctx, store.key("tok-ttl")).Result()
		if err != nil {
			t.Fatalf("pttl: %v", err)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Fatalf("expected a ttl up to one minute, got %s", ttl)
		}
	})

	t.Run("collision is conflict", func(t *testing.T) {
		if err := store.Put(ctx, "tok-dup", "U1", time.Minute); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := store.Put(ctx, "tok-dup", "U2", time.Minute); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("resolves once", func(t *testing.T) {
		if err := store.Put(ctx, "tok-once", "U3", time.Minute); err != nil {
			t.Fatalf("put: %v", err)
		}
		user, err := store.Resolve(ctx, "tok-once")
		if err != nil || user != "U3" {
			t.Fatalf("expected U3, got %q (%v)", user, err)
		}
		_, err = store.Resolve(ctx, "tok-once")
		if !errors.Is(err, domain.ErrNotFound) || !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected not found and conflict on reuse, got %v", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := store.Resolve(ctx, "tok-missing")
		if !errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected plain not found, got %v", err)
		}
	})

	t.Run("expired token is unknown", func(t *testing.T) {
		if err := store.Put(ctx, "tok-short", "U4", 50*time.Millisecond); err != nil {
			t.Fatalf("put: %v", err)
		}
		time.Sleep(200 * time.Millisecond)
		if _, err := store.Resolve(ctx, "tok-short"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after expiry, got %v", err)
		}
	})

	t.Run("concurrent resolve has one winner", func(t *testing.T) {
		if err := store.Put(ctx, "tok-race", "U5", time.Minute); err != nil {
			t.Fatalf("put: %v", err)
		}
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Resolve(ctx, "tok-race"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins)
		}
	})

	t.Run("delete removes token", func(t *testing.T) {
		if err := store.Put(ctx, "tok-del", "U6", time.Minute); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := store.Delete(ctx, "tok-del"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if n, err := client.Exists(ctx, store.key("tok-del")).Result(); err != nil || n != 0 {
			t.Fatalf("expected key removed, got %d (%v)", n, err)
		}
	})
}
