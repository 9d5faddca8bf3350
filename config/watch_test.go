package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thetooth/pinggraph/config"
)

func writeConf(t *testing.T, path, threshold string) {
	t.Helper()

	body := `{
    "target": "1.1.1.1",
    "probe_interval": "100ms",
    "rtt_threshold": "` + threshold + `",
    "hard_deadline": "500ms"
}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func startWatch(t *testing.T, path string) (<-chan *config.Config, context.CancelFunc, <-chan error) {
	t.Helper()

	applied := make(chan *config.Config, 16)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- config.Watch(ctx, path, func(cfg *config.Config) { applied <- cfg })
	}()
	// Give the watcher time to register before rewriting
	time.Sleep(100 * time.Millisecond)

	return applied, cancel, done
}

func TestWatchAppliesValidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinggraph.conf")
	writeConf(t, path, "150ms")

	applied, cancel, done := startWatch(t, path)
	defer cancel()

	writeConf(t, path, "300ms")

	select {
	case cfg := <-applied:
		if cfg.RTTThreshold.Duration != 300*time.Millisecond {
			t.Errorf("applied threshold %v, want 300ms", cfg.RTTThreshold.Duration)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid rewrite was never applied")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

// Rewrites that fail to parse or validate must be dropped, never applied.
func TestWatchDropsInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinggraph.conf")
	writeConf(t, path, "150ms")

	applied, cancel, done := startWatch(t, path)
	defer cancel()

	if err := os.WriteFile(path, []byte("{ not json"), 0644); err != nil {
		t.Fatal(err)
	}
	// Parses fine but fails validation, the threshold exceeds the deadline
	writeConf(t, path, "800ms")

	select {
	case cfg := <-applied:
		t.Fatalf("invalid reload applied: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
