package suite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/movechain/internal/repository/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"

	// SUITE_REDIS=docker runs the tests against a real redis container.
	redisModeEnv = "SUITE_REDIS"
	redisDocker  = "docker"
)

type Suite struct {
	*testing.T
	Logger *zap.Logger

	Storage *redis.Client
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	var redisClient *redis.Client
	if os.Getenv(redisModeEnv) == redisDocker {
		redisClient = dockerRedis(ctx, t)
	} else {
		redisClient = memoryRedis(t)
	}

	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	return ctx, &Suite{
		T:       t,
		Logger:  zaptest.NewLogger(t),
		Storage: redisClient,
	}
}

// NewSQL - an in-memory sqlite database with the schema applied.
func NewSQL(t *testing.T) (context.Context, *storage.Storage) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	st, err := storage.NewSQLStorage(storage.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("could not open sqlite: %v", err)
	}

	t.Cleanup(func() {
		_ = st.Close()
	})

	if err = st.Init(ctx); err != nil {
		t.Fatalf("could not init sqlite: %v", err)
	}

	return ctx, st
}

func memoryRedis(t *testing.T) *redis.Client {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("could not start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{
		Addr: server.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func dockerRedis(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireDuration) // Tell docker to hard kill the container in 120 seconds

	redisHost := resource.GetHostPort(redisPort)

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = maxWaitDuration

	var redisClient *redis.Client
	if err = pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}

		t.Fatalf("could not connect to redis: %v", err)
	}

	t.Cleanup(func() {
		t.Helper()

		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}
	})

	return redisClient
}
