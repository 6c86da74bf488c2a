//go:build integration

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/flawiddsouza/GameLiftLocal/internal/itest"
	"github.com/flawiddsouza/GameLiftLocal/internal/testutil"
)

func TestPresenceInRedis(t *testing.T) {
	h := itest.Start(t)
	rdb := itest.Redis(t, h.RedisAddr)

	ts, coord := newTestServer(t, WithPresence(rdb, "itest", 30*time.Second))
	conn := dial(t, ts, "?pID=99")
	testutil.Eventually(t, "registration", func() bool { return len(coord.Processes()) == 1 })
	key := presenceKey(coord.Processes()[0].ConnID)

	testutil.Eventually(t, "presence key", func() bool {
		n, err := rdb.Exists(context.Background(), key).Result()
		return err == nil && n == 1
	})
	ttl, err := rdb.TTL(context.Background(), key).Result()
	if err != nil || ttl <= 0 || ttl > 30*time.Second {
		t.Fatalf("unexpected ttl %v: %v", ttl, err)
	}

	_ = conn.Close()
	testutil.Eventually(t, "presence removal", func() bool {
		n, err := rdb.Exists(context.Background(), key).Result()
		return err == nil && n == 0
	})
}
