package service

import (
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/internal/namehash"
	"github.com/iox2go/iox2/pkg/config"
	"github.com/sirupsen/logrus"
)

// Service is a handle to one discovered (name, pattern) pair: its
// committed static config plus the live dynamic config segment.
type Service struct {
	key      string
	static   config.StaticConfig
	dynamic  *config.DynamicConfig
	registry *Registry
	owner    bool
	nodeID   config.NodeID
	hasNode  bool
}

// StaticConfig returns the service's immutable, committed configuration.
func (s *Service) StaticConfig() config.StaticConfig { return s.static }

// DynamicConfig returns the service's live, mutable configuration segment.
func (s *Service) DynamicConfig() *config.DynamicConfig { return s.dynamic }

// Key returns the content-addressed storage name this service was
// published under.
func (s *Service) Key() string { return s.key }

// Defaults returns the process-wide fallback capacities and policy knobs
// the service's registry was built with, for ports that need
// a setting never committed to static config — the subscriber's
// expired-connection buffer bound, for example.
func (s *Service) Defaults() config.Defaults { return s.registry.cfg.Defaults }

// NodeID returns the id this handle registered in the dynamic config's
// node set, and whether a node was registered at all (Create does not
// register one; only Open does).
func (s *Service) NodeID() (config.NodeID, bool) { return s.nodeID, s.hasNode }

// Drop releases this handle's reference to the dynamic segment and, if
// this handle is the owner (the creator) and that was the segment's last
// reference, removes the static storage too. An owner that drops while
// other handles still hold the segment leaves the static storage in place.
// Callers are expected to call Drop exactly once when the last port
// referencing the service goes away; pkg/node.Scan deregisters a dead
// node but does not call Drop on its behalf.
func (s *Service) Drop() error {
	if s.hasNode {
		s.dynamic.DeregisterNode(s.nodeID)
	}
	s.registry.dynamic.Release(s.key)
	if !s.owner {
		return nil
	}
	if s.registry.dynamic.Exists(s.key) {
		return nil
	}
	err := s.registry.static.Remove(s.key)
	if errors.Is(err, config.ErrDoesNotExist) {
		return nil
	}
	return err
}

// Registry implements the service creation and open workflow, backed by
// pkg/config's static/dynamic storage.
type Registry struct {
	cfg     config.Config
	static  *config.StaticStorage
	dynamic *config.DynamicStorage
	log     *logrus.Entry
}

// NewRegistry returns a registry rooted at cfg.Global.RootPath /
// cfg.Global.Service.Directory.
func NewRegistry(cfg config.Config, log *logrus.Entry) *Registry {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	dir := filepath.Join(cfg.Global.RootPath, cfg.Global.Service.Directory)
	return &Registry{
		cfg:     cfg,
		static:  config.NewStaticStorage(dir, cfg.Global.Service.StaticConfigStorageSuffix),
		dynamic: config.NewDynamicStorage(),
		log:     log,
	}
}

// storageKey derives the deterministic, content-addressed name a
// (serviceName, pattern) pair is stored under.
func (r *Registry) storageKey(serviceName string, pattern iox2.MessagingPattern) string {
	return r.cfg.Global.Prefix + namehash.Of(serviceName, pattern.String())
}

// Discover satisfies pkg/external.ServiceDiscovery: it resolves a
// (serviceName, pattern) pair to its committed static config without
// opening a node-scoped Service handle, the seam the out-of-scope
// messaging patterns would share with publish-subscribe.
func (r *Registry) Discover(serviceName string, pattern iox2.MessagingPattern) (config.StaticConfig, bool) {
	key := r.storageKey(serviceName, pattern)
	data, err := r.static.Open(key)
	if err != nil {
		return config.StaticConfig{}, false
	}
	sc, err := config.DecodeStaticConfig(data)
	if err != nil {
		return config.StaticConfig{}, false
	}
	return sc, true
}

// Create runs the service creation algorithm:
// reserve the name exclusively, adjust capacities to sane values, allocate
// the dynamic segment, serialize and publish the static config.
func (r *Registry) Create(sc config.StaticConfig) (*Service, error) {
	key := r.storageKey(sc.ServiceName, sc.Pattern)

	if r.static.Exists(key) {
		return nil, ErrAlreadyExists
	}

	res, err := r.static.Reserve(key)
	if err != nil {
		if errors.Is(err, config.ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	if err := sc.AdjustToSaneValues(r.log); err != nil {
		res.Abort()
		return nil, err
	}

	dc, err := r.dynamic.CreateAndMarkReady(key, sc.MaxPublishers, sc.MaxSubscribers, sc.MaxNodes)
	if err != nil {
		res.Abort()
		return nil, err
	}

	data, err := config.EncodeStaticConfig(sc)
	if err != nil {
		res.Abort()
		r.dynamic.Release(key)
		return nil, err
	}

	if err := res.Unlock(data); err != nil {
		r.dynamic.Release(key)
		return nil, err
	}

	return &Service{key: key, static: sc, dynamic: dc, registry: r, owner: true}, nil
}

// Open runs the service open algorithm: locate
// and deserialize the static file, verify requirements, open the dynamic
// segment and register a node slot, retrying the whole sequence up to
// CreationRetryLimit times if the dynamic segment open races a concurrent
// cleanup, bounded overall by Global.Service.CreationTimeout.
func (r *Registry) Open(serviceName string, pattern iox2.MessagingPattern, nodeName string, req config.Requirements) (*Service, error) {
	key := r.storageKey(serviceName, pattern)
	deadline := time.Now().Add(r.cfg.Global.Service.CreationTimeout)

	var lastErr error
	limit := r.cfg.Defaults.CreationRetryLimit
	if limit <= 0 {
		limit = 1
	}
	for attempt := 0; attempt < limit; attempt++ {
		svc, err := r.tryOpen(key, pattern, nodeName, req)
		if err == nil {
			return svc, nil
		}
		if !errors.Is(err, errRetryableRace) {
			return nil, err
		}
		lastErr = err
		if attempt == limit-1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(r.cfg.Defaults.CreationRetryBackoff)
	}
	r.log.WithError(lastErr).WithField("service", serviceName).
		Warn("service open retry budget exhausted")
	return nil, iox2.ErrServiceInCorruptedState
}

// errRetryableRace marks Open failures worth retrying: the dynamic
// segment open raced a concurrent node-count adjustment or cleanup.
var errRetryableRace = errors.New("service: transient open race")

func (r *Registry) tryOpen(key string, pattern iox2.MessagingPattern, nodeName string, req config.Requirements) (*Service, error) {
	data, err := r.static.Open(key)
	if err != nil {
		if errors.Is(err, config.ErrDoesNotExist) {
			return nil, ErrDoesNotExist
		}
		return nil, err
	}

	stored, err := config.DecodeStaticConfig(data)
	if err != nil {
		return nil, err
	}
	if stored.Pattern != pattern {
		return nil, config.ErrIncompatibleMessagingPattern
	}
	if err := config.Verify(stored, req); err != nil {
		return nil, err
	}

	dc, err := r.dynamic.Open(key)
	if err != nil {
		if errors.Is(err, config.ErrDoesNotExist) {
			return nil, errRetryableRace
		}
		return nil, err
	}

	// fail fast on MarkedForDestruction or a full
	// node set, otherwise atomically increment the registered-node count —
	// exactly what DynamicConfig.RegisterNode already enforces.
	nodeID, err := dc.RegisterNode(nodeName)
	if err != nil {
		r.dynamic.Release(key)
		switch {
		case errors.Is(err, config.ErrIsMarkedForDestruction):
			return nil, ErrIsMarkedForDestruction
		case errors.Is(err, config.ErrExceedsMaxNumberOfNodes):
			return nil, ErrExceedsMaxNumberOfNodes
		default:
			return nil, err
		}
	}

	return &Service{key: key, static: stored, dynamic: dc, registry: r, nodeID: nodeID, hasNode: true}, nil
}

// ServiceInfo is the summary List surfaces for operator tooling — just
// enough to identify and describe a committed service, without the
// overhead of opening a node-scoped handle onto it.
type ServiceInfo struct {
	Name    string
	Pattern iox2.MessagingPattern
}

// List enumerates every committed service this registry's static storage
// knows about, decoding just enough of each to report its name and
// pattern. A storage entry that fails to decode is skipped rather than
// failing the whole listing.
func (r *Registry) List() ([]ServiceInfo, error) {
	keys, err := r.static.List()
	if err != nil {
		return nil, err
	}
	infos := make([]ServiceInfo, 0, len(keys))
	for _, key := range keys {
		data, err := r.static.Open(key)
		if err != nil {
			continue
		}
		sc, err := config.DecodeStaticConfig(data)
		if err != nil {
			continue
		}
		infos = append(infos, ServiceInfo{Name: sc.ServiceName, Pattern: sc.Pattern})
	}
	return infos, nil
}

// ForceRemove deletes serviceName's committed static storage regardless of
// any still-live node, for operator cleanup of a service whose every
// process has already gone away uncleanly. It does not touch the dynamic
// segment or any port within it — pkg/node.Scan is the mechanism for
// reclaiming those once nothing can reach this entry anymore.
func (r *Registry) ForceRemove(serviceName string, pattern iox2.MessagingPattern) error {
	key := r.storageKey(serviceName, pattern)
	if err := r.static.Remove(key); err != nil {
		if errors.Is(err, config.ErrDoesNotExist) {
			return ErrDoesNotExist
		}
		return err
	}
	return nil
}
