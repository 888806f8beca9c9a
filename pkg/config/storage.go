package config

import (
	"os"
	"path/filepath"

	"github.com/iox2go/iox2/internal/shmem"
)

// StaticStorage implements the two-phase reserve/unlock contract: Reserve
// claims a name exclusively and fails fast if it is taken; Unlock
// publishes the bytes, from which point other processes may discover it.
// A reservation that is never unlocked (the creator died mid-creation)
// leaves a lock file behind rather than a readable one — readers can
// only Open a storage that has been unlocked.
type StaticStorage struct {
	dir    string
	suffix string
}

// NewStaticStorage returns a StaticStorage rooted at dir, writing files
// named <name><suffix>.
func NewStaticStorage(dir, suffix string) *StaticStorage {
	return &StaticStorage{dir: dir, suffix: suffix}
}

func (s *StaticStorage) path(name string) string {
	return filepath.Join(s.dir, name+s.suffix)
}

func (s *StaticStorage) lockPath(name string) string {
	return filepath.Join(s.dir, name+s.suffix+".lock")
}

// StaticReservation is the handle returned by Reserve; it must be unlocked
// or aborted to release the exclusive claim.
type StaticReservation struct {
	storage *StaticStorage
	name    string
}

// Reserve claims name exclusively, failing with ErrAlreadyExists if an
// unlocked storage of that name already exists, or
// ErrIsBeingCreatedByAnotherInstance if another reservation is in
// progress.
func (s *StaticStorage) Reserve(name string) (*StaticReservation, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.path(name)); err == nil {
		return nil, ErrAlreadyExists
	}
	f, err := os.OpenFile(s.lockPath(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrIsBeingCreatedByAnotherInstance
		}
		return nil, err
	}
	f.Close()
	return &StaticReservation{storage: s, name: name}, nil
}

// Unlock writes data to the final path and removes the lock, publishing
// the storage for other processes to Open.
func (r *StaticReservation) Unlock(data []byte) error {
	if err := os.WriteFile(r.storage.path(r.name), data, 0o644); err != nil {
		return err
	}
	return os.Remove(r.storage.lockPath(r.name))
}

// Abort releases the reservation without publishing, used when creation
// fails partway through.
func (r *StaticReservation) Abort() error {
	return os.Remove(r.storage.lockPath(r.name))
}

// Open reads an unlocked storage's bytes, failing with ErrDoesNotExist if
// no such storage has been published.
func (s *StaticStorage) Open(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, ErrDoesNotExist
	}
	return data, err
}

// Exists reports whether an unlocked storage of this name is present.
func (s *StaticStorage) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Remove deletes a published storage. Only the owning creator should call
// this.
func (s *StaticStorage) Remove(name string) error {
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return ErrDoesNotExist
	}
	return err
}

// List returns the storage keys of every published (unlocked) service
// under this storage's directory, for operator tooling that wants to
// enumerate what currently exists without opening any of them.
func (s *StaticStorage) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".lock" {
			continue
		}
		if trimmed, ok := trimSuffix(name, s.suffix); ok {
			names = append(names, trimmed)
		}
	}
	return names, nil
}

func trimSuffix(name, suffix string) (string, bool) {
	if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}

// DynamicStorage is the named shared-memory segment holding a live
// *DynamicConfig. It is backed by
// internal/shmem.Objects, the in-process stand-in for a shared-memory
// mapping: every "process" that OpenOrCreate/Opens the same name gets the
// same *DynamicConfig pointer.
type DynamicStorage struct {
	objects *shmem.Objects
}

// NewDynamicStorage returns an empty dynamic storage registry.
func NewDynamicStorage() *DynamicStorage {
	return &DynamicStorage{objects: shmem.NewObjects()}
}

// CreateAndMarkReady constructs a new DynamicConfig under name and marks it
// ready immediately, failing with ErrAlreadyExists if the name is taken.
// Used by the service creator, which builds the whole segment before any
// other process can reach it.
func (s *DynamicStorage) CreateAndMarkReady(name string, maxPublishers, maxSubscribers, maxNodes uint32) (*DynamicConfig, error) {
	dc := NewDynamicConfig(maxPublishers, maxSubscribers, maxNodes)
	if err := s.objects.Create(name, dc); err != nil {
		if err == shmem.ErrAlreadyExists {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	dc.MarkReady()
	return dc, nil
}

// OpenOrCreate idempotently attaches to the dynamic config under name,
// constructing one from the given capacities if none exists yet.
func (s *DynamicStorage) OpenOrCreate(name string, maxPublishers, maxSubscribers, maxNodes uint32) *DynamicConfig {
	v, created := s.objects.OpenOrCreate(name, func() any {
		return NewDynamicConfig(maxPublishers, maxSubscribers, maxNodes)
	})
	dc := v.(*DynamicConfig)
	if created {
		dc.MarkReady()
	}
	return dc
}

// Open attaches to an existing dynamic config, failing with
// ErrDoesNotExist if readiness has not been set.
func (s *DynamicStorage) Open(name string) (*DynamicConfig, error) {
	v, err := s.objects.Open(name)
	if err != nil {
		return nil, ErrDoesNotExist
	}
	dc := v.(*DynamicConfig)
	if !dc.IsReady() {
		s.objects.Release(name)
		return nil, ErrDoesNotExist
	}
	return dc, nil
}

// Release drops one reference to the named dynamic config, removing it on
// last release.
func (s *DynamicStorage) Release(name string) {
	s.objects.Release(name)
}

// Exists reports whether a dynamic config of this name is registered,
// regardless of readiness.
func (s *DynamicStorage) Exists(name string) bool {
	return s.objects.Exists(name)
}
