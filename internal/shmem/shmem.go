// Package shmem is the in-process stand-in for the POSIX shared-memory
// primitive a real cross-process transport would use. Named storage from
// this package and the lock-free index queue in internal/spsc are the
// only low-level primitives the rest of this module depends on; the POSIX
// wrappers (files, message queues, unix datagram sockets) that would back
// them are not implemented.
// Every goroutine stands in for one process, and every named Segment is
// the single backing allocation every "process" maps in, exactly the
// role shm_open+mmap play across real processes.
package shmem

import (
	"fmt"
	"sync"
)

var (
	ErrAlreadyExists = fmt.Errorf("shmem: segment already exists")
	ErrDoesNotExist  = fmt.Errorf("shmem: segment does not exist")
)

// Segment is a named, reference-counted byte region.
type Segment struct {
	mu       sync.Mutex
	name     string
	data     []byte
	refcount int
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Segment{}
)

// Create allocates a new named segment, failing with ErrAlreadyExists if
// the name is already taken.
func Create(name string, size int) (*Segment, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return nil, ErrAlreadyExists
	}
	seg := &Segment{name: name, data: make([]byte, size), refcount: 1}
	registry[name] = seg
	return seg, nil
}

// OpenOrCreate attaches to the named segment if it exists, or creates one
// of the given size. Returns whether this call created it. Mirrors the
// dynamic storage's idempotent open_or_create.
func OpenOrCreate(name string, size int) (seg *Segment, created bool, err error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if existing, ok := registry[name]; ok {
		existing.mu.Lock()
		existing.refcount++
		existing.mu.Unlock()
		return existing, false, nil
	}
	seg = &Segment{name: name, data: make([]byte, size), refcount: 1}
	registry[name] = seg
	return seg, true, nil
}

// Open attaches to an existing segment, failing with ErrDoesNotExist if
// none is registered under that name.
func Open(name string) (*Segment, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	seg, ok := registry[name]
	if !ok {
		return nil, ErrDoesNotExist
	}
	seg.mu.Lock()
	seg.refcount++
	seg.mu.Unlock()
	return seg, nil
}

// Exists reports whether a segment of this name is currently registered.
func Exists(name string) bool {
	registryMu.Lock()
	defer registryMu.Unlock()
	_, ok := registry[name]
	return ok
}

// Remove force-deletes a segment regardless of its refcount.
func Remove(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Name returns the segment's registered name.
func (s *Segment) Name() string { return s.name }

// Bytes returns the segment's backing storage. Every holder of the same
// Segment sees the same slice, exactly as every process mapping the same
// shared-memory object sees the same bytes.
func (s *Segment) Bytes() []byte { return s.data }

// Release drops one reference. The last release removes the segment from
// the registry, so it is destroyed once its last owner drops it.
func (s *Segment) Release() {
	registryMu.Lock()
	defer registryMu.Unlock()
	s.mu.Lock()
	s.refcount--
	remaining := s.refcount
	s.mu.Unlock()
	if remaining <= 0 {
		delete(registry, s.name)
	}
}

// RefCount reports the current reference count, mainly for tests.
func (s *Segment) RefCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refcount
}
