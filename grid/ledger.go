package grid

import "sync"

// Ledger records the last known size of each index along one axis. Indices
// with no entry resolve to the ledger's default. Entries are only ever
// overwritten; Clear is reserved for the owner's teardown.
type Ledger struct {
	mu    sync.RWMutex
	def   int
	sizes map[int]int
}

// NewLedger returns an empty ledger falling back to def.
func NewLedger(def int) *Ledger {
	return &Ledger{def: def, sizes: make(map[int]int)}
}

// Get returns the recorded size for i, or the default.
func (l *Ledger) Get(i int) int {
	return l.GetOr(i, l.def)
}

// GetOr returns the recorded size for i, or def.
func (l *Ledger) GetOr(i, def int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.sizes[i]; ok {
		return v
	}
	return def
}

// Lookup reports the recorded size for i and whether one exists.
func (l *Ledger) Lookup(i int) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.sizes[i]
	return v, ok
}

// Set records size for i and reports whether the effective size changed.
func (l *Ledger) Set(i, size int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev, ok := l.sizes[i]
	l.sizes[i] = size
	if ok {
		return prev != size
	}
	return size != l.def
}

// Default returns the fallback size.
func (l *Ledger) Default() int { return l.def }

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sizes)
}

// Clear drops every entry.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.sizes)
}
