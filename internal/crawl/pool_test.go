package crawl

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Chocolatl/nekopara/pkg/logx"
)

func TestPoolConcurrencyBound(t *testing.T) {
	t.Parallel()
	const limit = 3

	idle := make(chan struct{}, 1)
	p := newPool(limit, logx.Nop(), func() { idle <- struct{}{} })

	var cur, peak atomic.Int32
	for i := 0; i < 20; i++ {
		p.submit(func() {
			n := cur.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
		})
	}
	p.start()

	select {
	case <-idle:
	case <-time.After(5 * time.Second):
		t.Fatal("pool never went idle")
	}
	if got := peak.Load(); got > limit {
		t.Fatalf("peak concurrency %d exceeds limit %d", got, limit)
	}
	if got := cur.Load(); got != 0 {
		t.Fatalf("tasks still running after idle: %d", got)
	}
}

func TestPoolPausedUntilStart(t *testing.T) {
	t.Parallel()
	p := newPool(2, logx.Nop(), nil)

	var ran atomic.Int32
	p.submit(func() { ran.Add(1) })
	time.Sleep(20 * time.Millisecond)
	if ran.Load() != 0 {
		t.Fatal("task ran before start")
	}

	p.start()
	deadline := time.After(time.Second)
	for ran.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("task never ran after start")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestPoolTasksMaySubmitTasks(t *testing.T) {
	t.Parallel()
	idle := make(chan struct{}, 1)
	p := newPool(1, logx.Nop(), func() { idle <- struct{}{} })

	var ran atomic.Int32
	var enqueue func(depth int)
	enqueue = func(depth int) {
		p.submit(func() {
			ran.Add(1)
			if depth > 0 {
				enqueue(depth - 1)
				enqueue(depth - 1)
			}
		})
	}
	enqueue(4)
	p.start()

	select {
	case <-idle:
	case <-time.After(5 * time.Second):
		t.Fatal("pool never went idle")
	}
	if got := ran.Load(); got != 31 {
		t.Fatalf("expected 31 runs of the binary fanout, got %d", got)
	}
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	t.Parallel()
	idle := make(chan struct{}, 1)
	p := newPool(1, logx.Nop(), func() { idle <- struct{}{} })

	var wg sync.WaitGroup
	wg.Add(1)
	p.submit(func() { panic("boom") })
	p.submit(func() { wg.Done() })
	p.start()

	wg.Wait()
	select {
	case <-idle:
	case <-time.After(5 * time.Second):
		t.Fatal("pool never went idle after a panic")
	}
}
