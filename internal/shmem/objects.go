package shmem

import "sync"

// Objects is a named registry of shared, reference-counted Go values,
// layered on top of the same naming discipline as Segment. Real shared
// memory forces every "process" to reinterpret the same raw bytes as a
// typed header (dynamic config, connection state); within one Go process
// that typed header can simply be the same pointer, which is what this
// registry hands out. Used for the dynamic config segment (pkg/config)
// and the connection segment (pkg/pubsub), both of which are live,
// lock-protected structs rather than a flat byte buffer.
type Objects struct {
	mu    sync.Mutex
	items map[string]*objectEntry
}

type objectEntry struct {
	value    any
	refcount int
}

// NewObjects creates an empty object registry.
func NewObjects() *Objects {
	return &Objects{items: map[string]*objectEntry{}}
}

// Create registers a new named object, failing with ErrAlreadyExists if
// the name is taken.
func (o *Objects) Create(name string, value any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.items[name]; ok {
		return ErrAlreadyExists
	}
	o.items[name] = &objectEntry{value: value, refcount: 1}
	return nil
}

// OpenOrCreate attaches to the named object, creating it from makeFn if
// absent. makeFn is only invoked when the object does not yet exist.
func (o *Objects) OpenOrCreate(name string, makeFn func() any) (value any, created bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.items[name]; ok {
		entry.refcount++
		return entry.value, false
	}
	v := makeFn()
	o.items[name] = &objectEntry{value: v, refcount: 1}
	return v, true
}

// Open attaches to an existing named object.
func (o *Objects) Open(name string) (any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.items[name]
	if !ok {
		return nil, ErrDoesNotExist
	}
	entry.refcount++
	return entry.value, nil
}

// Exists reports whether a named object is currently registered.
func (o *Objects) Exists(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.items[name]
	return ok
}

// Release drops one reference, removing the object on last release. It
// reports whether this call removed it.
func (o *Objects) Release(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.items[name]
	if !ok {
		return false
	}
	entry.refcount--
	if entry.refcount <= 0 {
		delete(o.items, name)
		return true
	}
	return false
}

// Remove force-deletes a named object regardless of refcount.
func (o *Objects) Remove(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, name)
}

// Peek returns the named object's value without touching its refcount,
// for callers that only need to inspect state — a liveness check, say —
// without taking on a release obligation.
func (o *Objects) Peek(name string) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.items[name]
	if !ok {
		return nil, false
	}
	return entry.value, true
}
