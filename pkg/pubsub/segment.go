package pubsub

import (
	"encoding/binary"
	"sync"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/internal/shmem"
	"github.com/iox2go/iox2/pkg/config"
)

// segmentID is always 0: each publisher owns exactly one data segment, so
// a PointerOffset's segment id only ever needs to disambiguate which
// publisher produced it, not which of several segments within one
// publisher — a publisher never has more than one.
const segmentID uint8 = 0

// payloadHeaderSize is the width of the little-endian length prefix
// written at the front of every slot, advertising how many of its
// capacity bytes the current occupant actually uses. A TypeVariantFixedSize
// payload always fills the header with its full capacity; a
// TypeVariantDynamic one fills it with whatever length was loaned.
const payloadHeaderSize = 8

// DataSegment is a publisher's fixed-slot payload memory: slots numbered
// 0..N, each sized to hold a payloadHeaderSize length prefix plus up to
// capacity payload bytes. Allocation returns the lowest free slot.
// Free-list maintenance is publisher-private — a plain mutex is enough
// since subscribers never write to it and only the owning publisher ever
// allocates or frees a slot.
type DataSegment struct {
	mu          sync.Mutex
	shm         *shmem.Segment
	slotSize    uint64 // header + capacity, the physical stride between slots
	headerSpace uint64 // payloadHeaderSize rounded up to alignment, so payload bytes stay aligned
	capacity    uint64 // max payload bytes a single slot can advertise
	free        []bool
}

// NewDataSegment allocates a segment of slotCount slots, each able to
// hold up to payloadSize bytes aligned to payloadAlignment, under the
// given shared-memory name.
func NewDataSegment(name string, slotCount int, payloadSize, payloadAlignment uint64) (*DataSegment, error) {
	capacity := roundUp(payloadSize, payloadAlignment)
	headerSpace := roundUp(payloadHeaderSize, payloadAlignment)
	slotSize := headerSpace + capacity
	shm, err := shmem.Create(name, int(slotSize)*slotCount)
	if err != nil {
		return nil, err
	}
	return &DataSegment{shm: shm, slotSize: slotSize, headerSpace: headerSpace, capacity: capacity, free: make([]bool, slotCount)}, nil
}

// OpenDataSegment attaches to an existing publisher's data segment by
// name, for a subscriber reading its delivered samples. capacity and
// alignment must match the publisher's static config, since the
// subscriber computes them the same way rather than reading them off the
// segment itself.
func OpenDataSegment(name string, payloadSize, payloadAlignment uint64, slotCount int) (*DataSegment, error) {
	shm, err := shmem.Open(name)
	if err != nil {
		return nil, err
	}
	capacity := roundUp(payloadSize, payloadAlignment)
	headerSpace := roundUp(payloadHeaderSize, payloadAlignment)
	slotSize := headerSpace + capacity
	return &DataSegment{shm: shm, slotSize: slotSize, headerSpace: headerSpace, capacity: capacity, free: make([]bool, slotCount)}, nil
}

// segmentSlotCount derives the per-publisher slot count from static
// config: subscriber_max_buffer_size + subscriber_max_borrowed_samples +
// history_size + publisher_max_loaned_samples, multiplied by
// max_subscribers. Both the owning publisher (sizing its segment) and
// every attaching subscriber (sizing a connection's used-chunk bitset)
// compute it identically so neither side needs to read it off the other.
func segmentSlotCount(sc config.StaticConfig) int {
	perSubscriber := sc.SubscriberMaxBufferSize + sc.SubscriberMaxBorrowedSamples + sc.HistorySize + sc.PublisherMaxLoanedSamples
	n := int(perSubscriber) * int(sc.MaxSubscribers)
	if n <= 0 {
		n = 1
	}
	return n
}

func roundUp(size, alignment uint64) uint64 {
	if alignment == 0 {
		alignment = 1
	}
	if size == 0 {
		size = alignment
	}
	rem := size % alignment
	if rem == 0 {
		return size
	}
	return size + (alignment - rem)
}

// SlotSize returns the physical per-slot byte stride, header included.
func (d *DataSegment) SlotSize() uint64 { return d.slotSize }

// Capacity returns the maximum payload length a single slot can advertise.
func (d *DataSegment) Capacity() uint64 { return d.capacity }

// SlotCount returns the total number of slots.
func (d *DataSegment) SlotCount() int { return len(d.free) }

// Allocate reserves the lowest free slot for a length-byte payload and
// returns its pointer-offset plus the writable range for exactly those
// length bytes, failing with ErrSegmentOutOfMemory if every slot is in
// use or ErrPayloadTooLarge if length exceeds the segment's capacity.
// length is recorded in the slot's header so a subscriber later recovers
// the advertised length from Bytes without renegotiating it out of band.
func (d *DataSegment) Allocate(length uint64) (iox2.PointerOffset, []byte, error) {
	if length > d.capacity {
		return 0, nil, ErrPayloadTooLarge
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, used := range d.free {
		if !used {
			d.free[i] = true
			off, err := iox2.NewPointerOffset(segmentID, uint64(i)*d.slotSize)
			if err != nil {
				return 0, nil, err
			}
			start := uint64(i) * d.slotSize
			d.writeLength(start, length)
			payloadStart := start + d.headerSpace
			return off, d.shm.Bytes()[payloadStart : payloadStart+length], nil
		}
	}
	return 0, nil, ErrSegmentOutOfMemory
}

// Free releases the slot addressed by offset back to the free list.
func (d *DataSegment) Free(offset iox2.PointerOffset) error {
	idx, err := d.slotIndex(offset)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.free[idx] = false
	return nil
}

// Bytes returns the live byte range addressed by offset, trimmed to the
// length its publisher recorded in the slot's header — the full capacity
// for a fixed-size payload, or whatever shorter length was loaned for a
// dynamic one.
func (d *DataSegment) Bytes(offset iox2.PointerOffset) ([]byte, error) {
	idx, err := d.slotIndex(offset)
	if err != nil {
		return nil, err
	}
	start := uint64(idx) * d.slotSize
	length := d.readLength(start)
	if length > d.capacity {
		return nil, ErrInvalidPointerOffset
	}
	payloadStart := start + d.headerSpace
	return d.shm.Bytes()[payloadStart : payloadStart+length], nil
}

func (d *DataSegment) writeLength(slotStart, length uint64) {
	binary.LittleEndian.PutUint64(d.shm.Bytes()[slotStart:slotStart+payloadHeaderSize], length)
}

func (d *DataSegment) readLength(slotStart uint64) uint64 {
	return binary.LittleEndian.Uint64(d.shm.Bytes()[slotStart : slotStart+payloadHeaderSize])
}

// SlotIndex exposes offset/size for the used-chunk bitset, which is
// indexed identically.
func (d *DataSegment) SlotIndex(offset iox2.PointerOffset) (int, error) {
	return d.slotIndex(offset)
}

func (d *DataSegment) slotIndex(offset iox2.PointerOffset) (int, error) {
	if offset.SegmentID() != segmentID {
		return 0, ErrInvalidPointerOffset
	}
	if offset.Offset()%d.slotSize != 0 {
		return 0, ErrInvalidPointerOffset
	}
	idx := int(offset.Offset() / d.slotSize)
	if idx < 0 || idx >= len(d.free) {
		return 0, ErrInvalidPointerOffset
	}
	return idx, nil
}

// Release drops this segment's reference to its shared-memory backing,
// destroying it once the publisher is the last owner.
func (d *DataSegment) Release() {
	d.shm.Release()
}
