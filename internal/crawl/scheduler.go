package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Chocolatl/nekopara/internal/eventbus"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

// TemplateFunc is the user-supplied unit of work for one URL. It performs
// arbitrary work (typically a network fetch plus extraction) and may call
// the collector any number of times before returning. Emits reach the tree
// only if it returns nil; an error or panic fails the task node instead.
type TemplateFunc func(ctx context.Context, url string, c *Collector) error

// Config controls one Scheduler instance.
type Config struct {
	// Workers bounds how many template invocations may be in flight at
	// once. Values below 1 mean 1.
	Workers int
	// Interval is the minimum spacing between successive dispatches
	// passing the delay gate. Zero disables spacing.
	Interval time.Duration
	// DisableDedup turns off URL deduplication. The zero value keeps it on.
	DisableDedup bool
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	return c
}

// Event types published on the bus.
const (
	EventData = "crawl.data"
	EventFail = "crawl.fail"
	EventDone = "crawl.done"
)

// DataEvent carries one committed data payload.
type DataEvent struct {
	Payload any
}

// FailEvent carries the error that moved a task node to fail.
type FailEvent struct {
	Template string
	URL      string
	Err      error
}

// Scheduler drives one crawl run. Each instance owns its template map,
// tree, dedup registry and stop flag outright; instances are fully
// independent. A Scheduler runs at most once: Start or Resume, then the
// tree stays inspectable for the instance's lifetime.
type Scheduler struct {
	log logx.Logger
	bus eventbus.Bus
	cfg Config

	gate *gate
	pool *pool

	mu        sync.Mutex
	templates map[string]TemplateFunc
	root      *Node
	seen      *registry
	started   bool

	stopped  atomic.Bool
	doneOnce sync.Once

	runCtx    context.Context
	runCancel context.CancelFunc
}

// New creates a scheduler. A nil bus gets a private one; use Bus to reach
// it. A zero log value disables logging.
func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Scheduler {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.New()
	}
	s := &Scheduler{
		log:       log,
		bus:       bus,
		cfg:       cfg,
		templates: map[string]TemplateFunc{},
		seen:      newRegistry(!cfg.DisableDedup),
	}
	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	s.gate = newGate(s.runCtx, cfg.Interval)
	s.pool = newPool(cfg.Workers, log, s.onPoolIdle)
	return s
}

// Bus exposes the event bus carrying crawl.data, crawl.fail and crawl.done.
func (s *Scheduler) Bus() eventbus.Bus { return s.bus }

// Register binds name to fn. Registering a name twice is a programmer
// error and fails immediately; there is no overwrite.
func (s *Scheduler) Register(name string, fn TemplateFunc) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("template name is required")
	}
	if fn == nil {
		return errors.New("template function is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[name]; ok {
		return fmt.Errorf("%w: %s", ErrTemplateExists, name)
	}
	s.templates[name] = fn
	return nil
}

// Start begins a fresh run rooted at template applied to url. It may be
// called once per instance (counting Resume); a second call fails.
func (s *Scheduler) Start(template, url string) error {
	if strings.TrimSpace(template) == "" || strings.TrimSpace(url) == "" {
		return errors.New("entry template and url are required")
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.seen.admit(url)
	root := &Node{Kind: KindTask, State: StateWaiting, Template: template, URL: url}
	s.root = root
	s.dispatchLocked(root)
	s.mu.Unlock()

	s.pool.start()
	s.log.Info("crawl started",
		logx.String("template", template),
		logx.String("url", url),
		logx.Int("workers", s.cfg.Workers),
		logx.Duration("interval", s.cfg.Interval))
	return nil
}

// Resume begins a run from a previously captured snapshot. The snapshot is
// deep-copied first, so the caller keeps ownership of its value. The dedup
// registry is rebuilt from the restored tree, then every task node not
// already done (waiting: interrupted, fail: retry-eligible) is reset to
// waiting and re-dispatched; done subtrees are left untouched. If nothing
// is pending, completion fires asynchronously without doing any work.
func (s *Scheduler) Resume(snapshot *Node) error {
	if snapshot == nil {
		return ErrEmptySnapshot
	}
	if snapshot.Kind != KindTask {
		return errors.New("snapshot root must be a task node")
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	root := snapshot.Clone()
	s.root = root
	s.seen.rebuild(root)
	pending := 0
	Walk(root, func(n *Node) {
		if n.Kind == KindTask && n.State != StateDone {
			n.State = StateWaiting
			s.dispatchLocked(n)
			pending++
		}
	})
	s.mu.Unlock()

	if pending == 0 {
		go s.onPoolIdle()
	} else {
		s.pool.start()
	}
	s.log.Info("crawl resumed", logx.Int("pending", pending))
	return nil
}

// Stop sets the stop flag. Cooperative and non-preemptive: in-flight
// template invocations finish naturally and still commit their children;
// dispatches that have not yet passed the stop check become no-ops. The
// done event is suppressed for this run.
func (s *Scheduler) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		s.log.Info("crawl stopped")
	}
}

// Results returns every data payload currently in the tree in depth-first
// discovery order, plus whether every task node is done. Safe to call at
// any time; mid-run it reflects a live, possibly partial view.
func (s *Scheduler) Results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collectResults(s.root)
}

// Snapshot returns a deep, independent copy of the current tree, safe to
// persist and later pass to Resume on a fresh instance. Nil before a run
// has begun.
func (s *Scheduler) Snapshot() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.Clone()
}

// OnData registers fn to be called asynchronously for every committed data
// payload. The returned func unsubscribes.
func (s *Scheduler) OnData(fn func(payload any)) (cancel func()) {
	ch, unsub := s.bus.Subscribe(64, EventData)
	go func() {
		for e := range ch {
			if d, ok := e.Data.(DataEvent); ok {
				fn(d.Payload)
			}
		}
	}()
	return unsub
}

// OnFail registers fn to be called asynchronously for every task node that
// transitions to fail. The returned func unsubscribes.
func (s *Scheduler) OnFail(fn func(ev FailEvent)) (cancel func()) {
	ch, unsub := s.bus.Subscribe(64, EventFail)
	go func() {
		for e := range ch {
			if f, ok := e.Data.(FailEvent); ok {
				fn(f)
			}
		}
	}()
	return unsub
}

// OnDone registers fn to be called asynchronously when the run completes.
// It never fires for a stopped run. The returned func unsubscribes.
func (s *Scheduler) OnDone(fn func()) (cancel func()) {
	ch, unsub := s.bus.Subscribe(4, EventDone)
	go func() {
		for range ch {
			fn()
		}
	}()
	return unsub
}

// ---- dispatch protocol ----

// dispatchLocked submits a task node's unit of work to the pool. Caller
// holds s.mu; children are always dispatched before their parent releases
// its pool slot, so the pool cannot go idle while the tree is growing.
func (s *Scheduler) dispatchLocked(n *Node) {
	s.pool.submit(func() { s.runTask(n) })
}

// runTask is the unit of work executed by the pool: stop check, template
// lookup, gate wait, template invocation, then one atomic commit of the
// buffered collector. The gate wait and the template's own work are the
// only suspension points; tree mutation happens synchronously under s.mu.
func (s *Scheduler) runTask(n *Node) {
	if s.stopped.Load() {
		// Cooperative stop: leave the node exactly as it is.
		return
	}

	s.mu.Lock()
	fn := s.templates[n.Template]
	s.mu.Unlock()
	if fn == nil {
		s.failTask(n, fmt.Errorf("%w: %s", ErrUnknownTemplate, n.Template))
		return
	}

	if err := s.gate.acquire(s.runCtx); err != nil {
		return
	}

	col := &Collector{}
	if err := s.invoke(fn, n.URL, col); err != nil {
		s.failTask(n, err)
		return
	}
	s.commit(n, col.drain())
}

// invoke runs the template, converting panics into task failures.
func (s *Scheduler) invoke(fn TemplateFunc, url string, col *Collector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("template panic: %v", r)
		}
	}()
	return fn(s.runCtx, url, col)
}

// commit replays the buffered emits in call order as one atomic mutation,
// then finalizes the node as done. Admitted task emits become waiting
// children and are dispatched recursively; data emits become leaf children
// and are announced on the bus after the lock is released.
func (s *Scheduler) commit(n *Node, emits []emit) {
	var payloads []any

	s.mu.Lock()
	for _, e := range emits {
		switch e.kind {
		case emitData:
			n.Children = append(n.Children, &Node{Kind: KindData, Data: e.data})
			payloads = append(payloads, e.data)
		case emitTask:
			if !s.seen.admit(e.url) {
				continue
			}
			child := &Node{Kind: KindTask, State: StateWaiting, Template: e.template, URL: e.url}
			n.Children = append(n.Children, child)
			s.dispatchLocked(child)
		}
	}
	n.State = StateDone
	s.mu.Unlock()

	for _, p := range payloads {
		s.bus.Publish(eventbus.Event{Type: EventData, Data: DataEvent{Payload: p}})
	}
	s.log.Debug("task done",
		logx.String("template", n.Template),
		logx.String("url", n.URL),
		logx.Int("children", len(emits)))
}

// failTask moves the node to fail with no children committed; the whole
// buffered collector queue for that invocation is discarded by the caller.
func (s *Scheduler) failTask(n *Node, err error) {
	s.mu.Lock()
	n.State = StateFail
	s.mu.Unlock()

	s.log.Warn("task failed",
		logx.String("template", n.Template),
		logx.String("url", n.URL),
		logx.Err(err))
	s.bus.Publish(eventbus.Event{Type: EventFail, Data: FailEvent{Template: n.Template, URL: n.URL, Err: err}})
}

// onPoolIdle fires when the pool has no queued and no in-flight work. The
// first idle after Start/Resume is the run's completion, unless the run
// was stopped: a stopped run may still be draining no-op dispatches, and
// the caller explicitly opted out of completion.
func (s *Scheduler) onPoolIdle() {
	s.runCancel() // the delay gate has nothing left to serve
	if s.stopped.Load() {
		return
	}
	s.doneOnce.Do(func() {
		s.log.Info("crawl complete")
		s.bus.Publish(eventbus.Event{Type: EventDone})
	})
}
