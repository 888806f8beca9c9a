package config

import "sync"

// PublisherID, SubscriberID and NodeID identify live ports/nodes within a
// service's dynamic config. They are process-local monotonic handles, not
// persisted anywhere.
type PublisherID uint64
type SubscriberID uint64
type NodeID uint64

// PublisherDescriptor is the dynamic-config record for one live publisher.
type PublisherDescriptor struct {
	ID          PublisherID
	Node        NodeID
	SegmentName string
}

// SubscriberDescriptor is the dynamic-config record for one live
// subscriber.
type SubscriberDescriptor struct {
	ID         SubscriberID
	Node       NodeID
	BufferSize uint32
}

// NodeDescriptor is the dynamic-config record for one live node.
type NodeDescriptor struct {
	ID   NodeID
	Name string
}

// DynamicConfig is the shared-memory-resident, mutable half of a service:
// its live publisher, subscriber and node sets. Structural
// edits (insert/remove) are serialized by a single mutex held only
// across the O(1) slice mutation; readers take a point-in-time snapshot
// under the same lock rather than holding it while iterating.
type DynamicConfig struct {
	mu sync.Mutex

	maxPublishers  uint32
	maxSubscribers uint32
	maxNodes       uint32

	nextPublisherID  PublisherID
	nextSubscriberID SubscriberID
	nextNodeID       NodeID

	publishers  []PublisherDescriptor
	subscribers []SubscriberDescriptor
	nodes       []NodeDescriptor

	markedForDestruction bool
	ready                bool
}

// NewDynamicConfig creates the dynamic config sized from the service's
// static capacities.
func NewDynamicConfig(maxPublishers, maxSubscribers, maxNodes uint32) *DynamicConfig {
	return &DynamicConfig{
		maxPublishers:  maxPublishers,
		maxSubscribers: maxSubscribers,
		maxNodes:       maxNodes,
	}
}

// ErrExceedsMaxSupportedPublishers / ...Subscribers / ExceedsMaxNumberOfNodes
// are returned when a capacity-bounded set is already full.
var (
	ErrExceedsMaxSupportedPublishers  = newCapacityError("max_publishers")
	ErrExceedsMaxSupportedSubscribers = newCapacityError("max_subscribers")
	ErrExceedsMaxNumberOfNodes        = newCapacityError("max_nodes")
)

type capacityError struct{ field string }

func newCapacityError(field string) *capacityError { return &capacityError{field: field} }

func (e *capacityError) Error() string {
	return "config: exceeds max supported " + e.field
}

// RegisterPublisher adds a publisher descriptor, failing with
// ErrExceedsMaxSupportedPublishers once MaxPublishers live publishers are
// already registered.
func (d *DynamicConfig) RegisterPublisher(node NodeID, segmentName string) (PublisherID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if uint32(len(d.publishers)) >= d.maxPublishers {
		return 0, ErrExceedsMaxSupportedPublishers
	}
	d.nextPublisherID++
	id := d.nextPublisherID
	d.publishers = append(d.publishers, PublisherDescriptor{ID: id, Node: node, SegmentName: segmentName})
	return id, nil
}

// DeregisterPublisher removes a publisher descriptor by id.
func (d *DynamicConfig) DeregisterPublisher(id PublisherID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publishers = removePublisher(d.publishers, id)
}

// RegisterSubscriber adds a subscriber descriptor, failing with
// ErrExceedsMaxSupportedSubscribers once MaxSubscribers are registered.
func (d *DynamicConfig) RegisterSubscriber(node NodeID, bufferSize uint32) (SubscriberID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if uint32(len(d.subscribers)) >= d.maxSubscribers {
		return 0, ErrExceedsMaxSupportedSubscribers
	}
	d.nextSubscriberID++
	id := d.nextSubscriberID
	d.subscribers = append(d.subscribers, SubscriberDescriptor{ID: id, Node: node, BufferSize: bufferSize})
	return id, nil
}

// DeregisterSubscriber removes a subscriber descriptor by id.
func (d *DynamicConfig) DeregisterSubscriber(id SubscriberID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = removeSubscriber(d.subscribers, id)
}

// RegisterNode adds a node descriptor, failing with
// ErrExceedsMaxNumberOfNodes once MaxNodes are already registered.
func (d *DynamicConfig) RegisterNode(name string) (NodeID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.markedForDestruction {
		return 0, ErrIsMarkedForDestruction
	}
	if uint32(len(d.nodes)) >= d.maxNodes {
		return 0, ErrExceedsMaxNumberOfNodes
	}
	d.nextNodeID++
	id := d.nextNodeID
	d.nodes = append(d.nodes, NodeDescriptor{ID: id, Name: name})
	return id, nil
}

// DeregisterNode removes a node descriptor by id.
func (d *DynamicConfig) DeregisterNode(id NodeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes = removeNode(d.nodes, id)
}

// Snapshot returns point-in-time copies of the three sets.
func (d *DynamicConfig) Snapshot() (publishers []PublisherDescriptor, subscribers []SubscriberDescriptor, nodes []NodeDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	publishers = append(publishers, d.publishers...)
	subscribers = append(subscribers, d.subscribers...)
	nodes = append(nodes, d.nodes...)
	return
}

// NodeCount returns the number of currently registered nodes.
func (d *DynamicConfig) NodeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.nodes)
}

// MarkForDestruction sets the destruction flag; subsequent RegisterNode
// calls fail with ErrIsMarkedForDestruction.
func (d *DynamicConfig) MarkForDestruction() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markedForDestruction = true
}

// IsMarkedForDestruction reports the destruction flag.
func (d *DynamicConfig) IsMarkedForDestruction() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markedForDestruction
}

// MarkReady sets the readiness byte, written last by the initializer once
// the segment is fully constructed.
func (d *DynamicConfig) MarkReady() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ready = true
}

// IsReady reports whether the initializer has finished constructing this
// segment. An opener must not observe a DynamicConfig before this is true.
func (d *DynamicConfig) IsReady() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

func removePublisher(in []PublisherDescriptor, id PublisherID) []PublisherDescriptor {
	out := in[:0]
	for _, p := range in {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func removeSubscriber(in []SubscriberDescriptor, id SubscriberID) []SubscriberDescriptor {
	out := in[:0]
	for _, s := range in {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func removeNode(in []NodeDescriptor, id NodeID) []NodeDescriptor {
	out := in[:0]
	for _, n := range in {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
