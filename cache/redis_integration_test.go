//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheIntegration(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("could not construct docker pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("could not connect to docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("could not purge redis: %s", err)
		}
	})

	var c *RedisCache
	pool.MaxWait = 60 * time.Second
	require.NoError(t, pool.Retry(func() error {
		c = NewRedisCache("localhost:"+resource.GetPort("6379/tcp"), nil)
		if err := c.Initialize(context.Background()); err != nil {
			c.Close()
			return err
		}
		return nil
	}))
	t.Cleanup(func() { c.Close() })

	testCacheProvider(t, c)
}
