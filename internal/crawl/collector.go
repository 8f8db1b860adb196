package crawl

import "sync"

// Collector buffers the output of one template invocation.
//
// A template may call Data and Visit any number of times while its own
// work is in flight; nothing is applied to the tree until the invocation
// returns nil, and a failed invocation discards the whole buffer. This is
// what keeps a task node's children all-or-nothing, and what makes a
// snapshot taken at any moment a consistent, resumable view.
type Collector struct {
	mu    sync.Mutex
	emits []emit
}

type emitKind int

const (
	emitData emitKind = iota
	emitTask
)

type emit struct {
	kind     emitKind
	data     any
	template string
	url      string
}

// Data queues a data payload as a child of the current task.
func (c *Collector) Data(payload any) {
	c.mu.Lock()
	c.emits = append(c.emits, emit{kind: emitData, data: payload})
	c.mu.Unlock()
}

// Visit queues a follow-up task applying template to url as a child of the
// current task. Whether it becomes a node is decided at commit time by the
// dedup registry.
func (c *Collector) Visit(template, url string) {
	c.mu.Lock()
	c.emits = append(c.emits, emit{kind: emitTask, template: template, url: url})
	c.mu.Unlock()
}

func (c *Collector) drain() []emit {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.emits
	c.emits = nil
	return out
}
