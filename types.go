package iox2

import "fmt"

// offsetBits is the width of the byte-offset portion of a PointerOffset;
// the remaining high byte carries the segment id, packing the pair into
// a single 64-bit value (segment_id: u8, offset: u56).
const offsetBits = 56

const maxOffset = uint64(1)<<offsetBits - 1

// PointerOffset identifies one payload slot: the data segment it lives in,
// and its byte offset inside that segment. It is the only thing ever
// pushed through a submission or completion queue — the payload itself
// never crosses the queue.
type PointerOffset uint64

// NewPointerOffset packs a segment id and byte offset into a PointerOffset.
// offset must fit in 56 bits; callers derive it from a data segment they
// own, so this only fails on a programming error.
func NewPointerOffset(segmentID uint8, offset uint64) (PointerOffset, error) {
	if offset > maxOffset {
		return 0, fmt.Errorf("iox2: offset %d exceeds %d-bit range", offset, offsetBits)
	}
	return PointerOffset(uint64(segmentID)<<offsetBits | offset), nil
}

// SegmentID returns the data segment this offset addresses.
func (p PointerOffset) SegmentID() uint8 { return uint8(p >> offsetBits) }

// Offset returns the byte offset inside that segment.
func (p PointerOffset) Offset() uint64 { return uint64(p) & maxOffset }

func (p PointerOffset) String() string {
	return fmt.Sprintf("PointerOffset{segment=%d, offset=%d}", p.SegmentID(), p.Offset())
}

// TypeVariant distinguishes a fixed-size payload from a dynamically sized
// slice payload.
type TypeVariant uint8

const (
	TypeVariantFixedSize TypeVariant = iota
	TypeVariantDynamic
)

func (v TypeVariant) String() string {
	if v == TypeVariantDynamic {
		return "dynamic"
	}
	return "fixed-size"
}

// TypeDetail type-erases a payload (or user-header) type down to the
// fields the transport actually needs to check compatibility: how the
// language binding reinterprets raw bytes is left to it.
type TypeDetail struct {
	Variant   TypeVariant
	TypeName  string
	Size      uint64
	Alignment uint64
}

// Equal reports whether two descriptors describe an identical wire layout
// — used verbatim by the compatibility verifier (stored type must equal
// the opener's requested type in everything but alignment, where the
// stored value only needs to be at least as strict).
func (t TypeDetail) Equal(other TypeDetail) bool {
	return t.Variant == other.Variant && t.TypeName == other.TypeName && t.Size == other.Size
}

// MessagingPattern tags which messaging pattern a service implements. Only
// PublishSubscribe is implemented by this core; the others are named here
// so the service-discovery machinery can still tell services of different
// patterns apart (see pkg/external).
type MessagingPattern uint8

const (
	MessagingPatternPublishSubscribe MessagingPattern = iota
	MessagingPatternEvent
	MessagingPatternRequestResponse
	MessagingPatternBlackboard
)

func (p MessagingPattern) String() string {
	switch p {
	case MessagingPatternPublishSubscribe:
		return "publish-subscribe"
	case MessagingPatternEvent:
		return "event"
	case MessagingPatternRequestResponse:
		return "request-response"
	case MessagingPatternBlackboard:
		return "blackboard"
	default:
		return "unknown"
	}
}
