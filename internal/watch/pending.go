package watch

import "time"

// pending collects event paths for the watch loop. Its timer fires once the
// debounce window passes without a new path.
type pending struct {
	window   time.Duration
	maxBatch int
	paths    map[string]bool
	timer    *time.Timer
}

func newPending(window time.Duration, maxBatch int) *pending {
	t := time.NewTimer(window)
	t.Stop()
	return &pending{window: window, maxBatch: maxBatch, paths: make(map[string]bool), timer: t}
}

// add records path and restarts the window.
func (q *pending) add(path string) {
	q.paths[path] = true
	q.timer.Reset(q.window)
}

// full reports whether maxBatch distinct paths are waiting. maxBatch <= 0
// never fills.
func (q *pending) full() bool {
	return q.maxBatch > 0 && len(q.paths) >= q.maxBatch
}

// take returns the waiting paths sorted and stops the window.
func (q *pending) take() []string {
	q.timer.Stop()
	out := sortedKeys(q.paths)
	q.paths = make(map[string]bool)
	return out
}
