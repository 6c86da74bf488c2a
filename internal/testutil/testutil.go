package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestTimeout(t *testing.T) time.Duration {
	t.Helper()
	v := os.Getenv("TEST_TIMEOUT_SECONDS")
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		t.Logf("invalid TEST_TIMEOUT_SECONDS=%q, using default 10", v)
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Context(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), TestTimeout(t))
}

// Eventually polls cond until it holds or the test timeout elapses.
func Eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(TestTimeout(t))
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
