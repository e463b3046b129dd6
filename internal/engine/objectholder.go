package engine

import "sync"

// objectHolder keeps caller-owned values reachable for the scheduler's
// lifetime. It is a list, not a set: duplicate inserts are allowed, and
// Release removes only the first match.
type objectHolder struct {
	mu      sync.Mutex
	objects []any
}

func newObjectHolder() *objectHolder {
	return &objectHolder{}
}

// Hold appends obj to the list, even if it is already present.
func (h *objectHolder) Hold(obj any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects = append(h.objects, obj)
}

// Release removes the first occurrence of obj, if any. Reports whether it
// found one.
func (h *objectHolder) Release(obj any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, o := range h.objects {
		if o == obj {
			h.objects = append(h.objects[:i], h.objects[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every held object, used on shutdown.
func (h *objectHolder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects = nil
}

// Len reports how many references are currently held (duplicates counted).
func (h *objectHolder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.objects)
}
