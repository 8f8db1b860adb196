package checkpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/internal/storage"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

type memStore struct {
	mu    sync.Mutex
	saves int
	last  *crawl.Node
}

func (m *memStore) SaveSnapshot(_ context.Context, _ string, root *crawl.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.last = root
	return nil
}

func (m *memStore) LoadSnapshot(context.Context, string) (*crawl.Node, error) {
	return nil, storage.ErrNotFound
}

func (m *memStore) ListSnapshots(context.Context) ([]storage.SnapshotInfo, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func finishedScheduler(t *testing.T) *crawl.Scheduler {
	t.Helper()
	s := crawl.New(crawl.Config{Workers: 1}, logx.Nop(), nil)
	if err := s.Register("leaf", func(context.Context, string, *crawl.Collector) error {
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	s.OnDone(func() { close(done) })
	if err := s.Start("leaf", "https://example.com/"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("crawl did not finish")
	}
	return s
}

func TestNewRejectsBadSchedule(t *testing.T) {
	sched := crawl.New(crawl.Config{}, logx.Nop(), nil)
	_, err := New(Config{Schedule: "not a schedule", Name: "run"}, sched, &memStore{}, logx.Nop())
	if err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestNewRequiresName(t *testing.T) {
	sched := crawl.New(crawl.Config{}, logx.Nop(), nil)
	_, err := New(Config{Schedule: "@every 1m"}, sched, &memStore{}, logx.Nop())
	if err == nil {
		t.Fatal("expected name error")
	}
}

func TestRunSavesOnSchedule(t *testing.T) {
	sched := finishedScheduler(t)
	store := &memStore{}
	svc, err := New(Config{Schedule: "@every 20ms", Name: "run"}, sched, store, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		svc.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("no scheduled saves observed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.last == nil || store.last.State != crawl.StateDone {
		t.Fatalf("saved snapshot root = %+v, want done task", store.last)
	}
}

func TestSaveNowSkipsBeforeStart(t *testing.T) {
	store := &memStore{}
	idle := crawl.New(crawl.Config{}, logx.Nop(), nil)
	svc, err := New(Config{Schedule: "@every 1m", Name: "run"}, idle, store, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	svc.SaveNow(context.Background())
	if store.count() != 0 {
		t.Fatalf("saves = %d, want 0 before Start", store.count())
	}
}
