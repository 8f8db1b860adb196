package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nekopara.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
log:
  level: debug
  console: true
crawler:
  workers: 4
  interval: 250ms
  dedup: false
checkpoint:
  enabled: true
  schedule: "@every 10s"
storage:
  driver: file
  path: ./snapshots
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	sc, err := cfg.SchedulerConfig()
	if err != nil {
		t.Fatalf("scheduler config: %v", err)
	}
	if sc.Workers != 4 {
		t.Fatalf("workers = %d, want 4", sc.Workers)
	}
	if sc.Interval != 250*time.Millisecond {
		t.Fatalf("interval = %v", sc.Interval)
	}
	if !sc.DisableDedup {
		t.Fatal("dedup: false should disable dedup")
	}
	if !cfg.Checkpoint.Enabled || cfg.Checkpoint.Schedule != "@every 10s" {
		t.Fatalf("checkpoint: %+v", cfg.Checkpoint)
	}
	if cfg.Storage.Driver != "file" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	lc := cfg.LogxConfig()
	if lc.Level != "debug" || !lc.Console {
		t.Fatalf("logx config: %+v", lc)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sc, err := cfg.SchedulerConfig()
	if err != nil {
		t.Fatalf("scheduler config: %v", err)
	}
	if sc.Workers != 1 || sc.Interval != 0 || sc.DisableDedup {
		t.Fatalf("defaults: %+v", sc)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("default log level: %q", cfg.Log.Level)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "crawlr:\n  workers: 2\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for misspelled section")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"bad interval":   "crawler:\n  interval: soon\n",
		"bad driver":     "storage:\n  driver: postgres\n",
		"empty schedule": "checkpoint:\n  enabled: true\n  schedule: \"\"\n",
	}
	for name, content := range cases {
		content := content
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, content)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %q", content)
			}
		})
	}
}

func TestManagerReload(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "crawler:\n  workers: 1\n")
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawler.Workers != 1 {
		t.Fatalf("workers = %d", cfg.Crawler.Workers)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// Give the watcher a moment to arm before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("crawler:\n  workers: 8\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case got := <-ch:
		if got.Crawler.Workers != 8 {
			t.Fatalf("reloaded workers = %d, want 8", got.Crawler.Workers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if m.Get().Crawler.Workers != 8 {
		t.Fatal("Get() did not observe the committed reload")
	}
}
