package pubsub

import (
	"github.com/iox2go/iox2/internal/bitset"
	"github.com/iox2go/iox2/internal/spsc"
)

// ConnectionDescriptor is the set of capacities a connection is built
// from, cross-checked whenever a second party attaches to one that
// already exists.
type ConnectionDescriptor struct {
	BufferSize           uint32
	MaxBorrowedSamples   uint32
	EnableSafeOverflow   bool
}

const connectionNumSegments = 1

// Connection is the shared-memory object between exactly one publisher
// and one subscriber: a submission queue, a completion queue and a
// used-chunk bitset over the publisher's data-segment slots, plus the
// compare-exchange-only role state
//
// The bitset here tracks chunks outstanding *to this connection
// specifically*, not the publisher's segment as a whole: each of a
// publisher's connections gets its own view, addressed by the same slot
// indices as the shared segment. This is what lets dead-subscriber
// reclaim (pkg/node) clear exactly the chunks stuck in one subscriber's
// queues via AcquireUsedOffsets without disturbing slots still correctly
// in flight to the publisher's other, live subscribers.
type Connection struct {
	descriptor ConnectionDescriptor
	submission *spsc.Queue
	completion *spsc.Queue
	used       *bitset.Bitset
	state      connState
}

// NewConnection builds a connection sized for desc, addressing
// segmentSlots used-chunk bits.
func NewConnection(desc ConnectionDescriptor, segmentSlots int) *Connection {
	return &Connection{
		descriptor: desc,
		submission: spsc.New(int(desc.BufferSize)),
		completion: spsc.New(int(desc.BufferSize) + int(desc.MaxBorrowedSamples) + 1),
		used:       bitset.New(segmentSlots),
	}
}

// Descriptor returns the capacities this connection was built from.
func (c *Connection) Descriptor() ConnectionDescriptor { return c.descriptor }

// CheckCompatible cross-checks a second attacher's requested descriptor
// against this connection's, the same check an opening subscriber or
// publisher runs before reusing an existing connection.
func (c *Connection) CheckCompatible(want ConnectionDescriptor) error {
	if c.descriptor.BufferSize != want.BufferSize {
		return ErrIncompatibleBufferSize
	}
	if c.descriptor.MaxBorrowedSamples != want.MaxBorrowedSamples {
		return ErrIncompatibleSamplesPerSegment
	}
	if c.descriptor.EnableSafeOverflow != want.EnableSafeOverflow {
		return ErrIncompatibleOverflowSetting
	}
	return nil
}

// RegisterRole attaches role to this connection's state machine.
func (c *Connection) RegisterRole(role Role) error { return c.state.Register(role) }

// ClearRole detaches role, reporting whether the connection is now
// marked for destruction.
func (c *Connection) ClearRole(role Role) (markedForDestruction bool) { return c.state.Clear(role) }

// Roles returns the currently registered roles.
func (c *Connection) Roles() Role { return c.state.Snapshot() }

// IsMarkedForDestruction reports whether a reaper should remove this
// connection.
func (c *Connection) IsMarkedForDestruction() bool { return c.state.IsMarkedForDestruction() }

// SetUsed marks slotIndex as outstanding on this connection. It reports
// false on a duplicate set; callers treat that as a logic bug rather
// than a recoverable error.
func (c *Connection) SetUsed(slotIndex int) bool { return c.used.Set(slotIndex) }

// ClearUsed clears slotIndex's outstanding mark.
func (c *Connection) ClearUsed(slotIndex int) bool { return c.used.Clear(slotIndex) }

// AcquireUsedOffsets atomically drains every outstanding slot index this
// connection still holds, used by dead-port cleanup to reclaim a crashed
// subscriber's chunks.
func (c *Connection) AcquireUsedOffsets() []int { return c.used.AcquireSet() }

// PushSubmission enqueues a raw offset without overflow, failing if full.
func (c *Connection) PushSubmission(offset uint64) bool { return c.submission.TryPush(offset) }

// PushSubmissionOverflow enqueues a raw offset, evicting the oldest entry
// if the queue was full.
func (c *Connection) PushSubmissionOverflow(offset uint64) (evicted uint64, didEvict bool) {
	return c.submission.PushOverflow(offset)
}

// PopSubmission dequeues the oldest pending offset.
func (c *Connection) PopSubmission() (uint64, bool) { return c.submission.TryPop() }

// SubmissionLen reports a point-in-time estimate of pending samples,
// used by HasSamples to avoid a pop-then-push round trip.
func (c *Connection) SubmissionLen() int { return c.submission.Len() }

// PushCompletion returns a released offset to the publisher.
func (c *Connection) PushCompletion(offset uint64) bool { return c.completion.TryPush(offset) }

// PopCompletion dequeues a released offset, publisher-side.
func (c *Connection) PopCompletion() (uint64, bool) { return c.completion.TryPop() }

// CompletionLen reports a point-in-time estimate of pending completions.
func (c *Connection) CompletionLen() int { return c.completion.Len() }
