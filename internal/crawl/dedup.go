package crawl

// registry tracks URLs that have been admitted as task nodes, for the
// whole run, not per subtree. It is only mutated under the scheduler's
// lock, during the commit step, so admit is check-and-set in one step from
// every caller's perspective. No eviction; it grows for the run's lifetime.
type registry struct {
	enabled bool
	seen    map[string]struct{}
}

func newRegistry(enabled bool) *registry {
	return &registry{enabled: enabled, seen: map[string]struct{}{}}
}

// admit reports whether url should become a new task node and records it.
// With dedup disabled it always admits.
func (r *registry) admit(url string) bool {
	if !r.enabled {
		return true
	}
	if _, ok := r.seen[url]; ok {
		return false
	}
	r.seen[url] = struct{}{}
	return true
}

// rebuild re-records every task URL already present in the tree, so a
// resumed run keeps previously-seen URLs deduplicated.
func (r *registry) rebuild(root *Node) {
	r.seen = map[string]struct{}{}
	Walk(root, func(n *Node) {
		if n.Kind == KindTask {
			r.seen[n.URL] = struct{}{}
		}
	})
}
