package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	redisOnce      sync.Once
	redisContainer testcontainers.Container
	redisAddress   string
	redisErr       error
)

// RedisAddress starts one shared redis container and returns its host:port.
// The test is skipped under -short or when no container runtime is reachable.
func RedisAddress(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	redisOnce.Do(func() {
		defer func() {
			// testcontainers panics when no docker host can be found
			if p := recover(); p != nil {
				redisErr = errNoDocker
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		redisC, err := testcontainers.Run(
			ctx, "redis:7-alpine",
			testcontainers.WithExposedPorts("6379/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			),
		)
		if err != nil {
			redisErr = err
			return
		}
		redisContainer = redisC

		endpoint, err := redisC.Endpoint(ctx, "")
		if err != nil {
			_ = redisC.Terminate(context.Background())
			redisErr = err
			return
		}
		redisAddress = endpoint
	})

	if redisErr != nil {
		t.Skipf("redis container unavailable: %v", redisErr)
	}
	return redisAddress
}

// TerminateRedis stops the shared container; call it from TestMain
func TerminateRedis() {
	if redisContainer != nil {
		_ = redisContainer.Terminate(context.Background())
	}
}

var errNoDocker = errors.New("no docker host available")
