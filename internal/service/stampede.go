package service

import "sync"

// stampedeTracker counts cache misses in flight per city key. A count above
// one means several requests missed the same key before the first refill
// landed, which is the stampede signature the metrics watch for.
type stampedeTracker struct {
	mu     sync.Mutex
	misses map[string]int // city key -> misses currently being refilled
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{misses: make(map[string]int)}
}

// RecordMiss notes that a request missed the cache for key and returns how
// many misses for that key are now in flight. Pair every RecordMiss with a
// RecordHit once the refill finishes, success or not.
func (st *stampedeTracker) RecordMiss(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.misses[key]++
	return st.misses[key]
}

// RecordHit marks one in-flight miss for key as resolved. Keys are dropped at
// zero so the map only holds cities with active refills.
func (st *stampedeTracker) RecordHit(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	n, ok := st.misses[key]
	if !ok || n == 0 {
		return
	}
	if n == 1 {
		delete(st.misses, key)
		return
	}
	st.misses[key] = n - 1
}

// active reports how many misses are currently in flight for key.
func (st *stampedeTracker) active(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.misses[key]
}
