package crawl

import (
	"sync"

	"github.com/Chocolatl/nekopara/pkg/logx"
)

// pool is a bounded-concurrency executor over an unbounded FIFO queue.
//
// Tasks enqueue more tasks from inside their own run, so submit must never
// block a worker; the queue grows as needed. The pool is created paused:
// submissions only queue until start(), which lets a resume enqueue the
// whole pending set before the first task runs (otherwise an early task
// could drain and fire a premature idle). onIdle fires each time the last
// in-flight task finishes with nothing queued.
type pool struct {
	log    logx.Logger
	onIdle func()

	mu      sync.Mutex
	limit   int
	queue   []func()
	running int
	started bool
}

func newPool(limit int, log logx.Logger, onIdle func()) *pool {
	if limit <= 0 {
		limit = 1
	}
	return &pool{limit: limit, log: log, onIdle: onIdle}
}

func (p *pool) submit(fn func()) {
	p.mu.Lock()
	p.queue = append(p.queue, fn)
	if p.started {
		p.spawnLocked()
	}
	p.mu.Unlock()
}

func (p *pool) start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.spawnLocked()
	p.mu.Unlock()
}

func (p *pool) spawnLocked() {
	for p.running < p.limit && len(p.queue) > 0 {
		fn := p.queue[0]
		p.queue = p.queue[1:]
		p.running++
		go p.run(fn)
	}
}

func (p *pool) run(fn func()) {
	for {
		p.exec(fn)

		p.mu.Lock()
		if len(p.queue) > 0 {
			fn = p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			continue
		}
		p.running--
		idle := p.running == 0
		p.mu.Unlock()

		if idle && p.onIdle != nil {
			p.onIdle()
		}
		return
	}
}

// exec isolates worker panics; a panicking task must not take the pool down.
func (p *pool) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic in pool worker", logx.Any("panic", r))
		}
	}()
	fn()
}
