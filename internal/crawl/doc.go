// Package crawl implements a resumable, rate-limited, bounded-concurrency
// scheduler for recursive crawl workloads.
//
// A run applies a named template function to a URL. While it executes, the
// template may emit data payloads and follow-up (template, url) tasks
// through a Collector; emits are buffered and committed to the crawl tree
// in one atomic step only after the template returns successfully. The
// tree can be snapshotted at any moment into a deep, serializable copy and
// later re-driven to completion with Resume, which retries every task node
// that is not yet done.
//
// Scheduling is bounded two ways: a worker pool caps how many template
// invocations are in flight at once, and a delay gate spaces successive
// dispatches by a minimum interval, FIFO across the whole run.
package crawl
