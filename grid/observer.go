package grid

import "sync"

// handle is a stable subscription whose target callback is swapped in
// place. Once detached it never calls out again.
type handle struct {
	mu       sync.Mutex
	fn       func(Size)
	detached bool
}

func newHandle(fn func(Size)) *handle {
	return &handle{fn: fn}
}

func (h *handle) swap(fn func(Size)) {
	h.mu.Lock()
	h.fn = fn
	h.mu.Unlock()
}

func (h *handle) deliver(s Size) bool {
	h.mu.Lock()
	fn, detached := h.fn, h.detached
	h.mu.Unlock()
	if detached || fn == nil {
		return false
	}
	fn(s)
	return true
}

func (h *handle) detach() {
	h.mu.Lock()
	h.detached = true
	h.fn = nil
	h.mu.Unlock()
}

// LayoutObserver watches a single box and reports every size change after
// it was attached. Notifications that arrive after Disconnect are dropped.
type LayoutObserver struct {
	mu       sync.Mutex
	target   *handle
	last     Size
	attached bool
}

func observe(initial Size, target *handle) *LayoutObserver {
	return &LayoutObserver{target: target, last: initial, attached: true}
}

// Notify records the box's current size and fires the target if it
// differs from the previous one.
func (o *LayoutObserver) Notify(s Size) bool {
	o.mu.Lock()
	if !o.attached || s == o.last {
		o.mu.Unlock()
		return false
	}
	o.last = s
	o.mu.Unlock()
	return o.target.deliver(s)
}

// Disconnect stops observation.
func (o *LayoutObserver) Disconnect() {
	o.mu.Lock()
	o.attached = false
	o.mu.Unlock()
}
