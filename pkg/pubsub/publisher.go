package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/internal/namehash"
	"github.com/iox2go/iox2/pkg/config"
	"github.com/iox2go/iox2/pkg/metrics"
	"github.com/iox2go/iox2/pkg/service"
	"github.com/sirupsen/logrus"
)

// UnableToDeliverStrategy is the publisher-configured fallback when a
// subscriber's buffer is full or its connection can't be created.
type UnableToDeliverStrategy int

const (
	// DiscardSample skips the unreachable subscriber and continues: Send
	// skips a subscriber whose buffer is full, and both Send and
	// BlockingSend skip one whose connection can't be created.
	// BlockingSend still waits on a full buffer rather than skipping it.
	DiscardSample UnableToDeliverStrategy = iota
	// Block tells Send to fail the whole call as soon as one connection's
	// buffer is full, rather than silently skipping it. A publisher
	// configured with Block is expected to call BlockingSend, which waits
	// out a full connection with adaptive backoff instead of failing.
	Block
)

var publisherSegmentCounter atomic.Uint64

// Publisher is the write-side port: it owns exactly one
// data segment, loans slots out of it, and fans sent samples out across
// one connection per currently-known subscriber.
type Publisher struct {
	svc    *service.Service
	nodeID config.NodeID
	id     config.PublisherID

	segment *DataSegment
	history *history

	strategy UnableToDeliverStrategy
	log      *logrus.Entry

	mu          sync.Mutex
	connections map[config.SubscriberID]*publisherConn
	loaned      map[iox2.PointerOffset]bool

	rec *metrics.Recorder
}

// SetMetrics attaches a recorder samples and loan/overflow counts are
// reported through; passing nil disables reporting again. Safe to call
// from any goroutine that isn't concurrently calling Loan/Send/Drop.
func (p *Publisher) SetMetrics(r *metrics.Recorder) { p.rec = r }

func (p *Publisher) idLabel() string { return fmt.Sprintf("%d", p.id) }

type publisherConn struct {
	key  string
	conn *Connection
}

// NewPublisher registers a new publisher against svc's dynamic config and
// allocates its data segment, sized so every currently and future-known
// subscriber can hold its full buffer, borrowed samples and history
// entries plus this publisher's own loan limit.
func NewPublisher(svc *service.Service, strategy UnableToDeliverStrategy, log *logrus.Entry) (*Publisher, error) {
	sc := svc.StaticConfig()
	nodeID, _ := svc.NodeID()

	slotCount := segmentSlotCount(sc)

	segmentName := namehash.Of(svc.Key(), fmt.Sprintf("%d", nodeID), fmt.Sprintf("%d", publisherSegmentCounter.Add(1)))
	segment, err := NewDataSegment(segmentName, slotCount, sc.Payload.Size, sc.Payload.Alignment)
	if err != nil {
		return nil, err
	}

	id, err := svc.DynamicConfig().RegisterPublisher(nodeID, segmentName)
	if err != nil {
		segment.Release()
		return nil, err
	}

	return &Publisher{
		svc:         svc,
		nodeID:      nodeID,
		id:          id,
		segment:     segment,
		history:     newHistory(int(sc.HistorySize)),
		strategy:    strategy,
		log:         log,
		connections: map[config.SubscriberID]*publisherConn{},
		loaned:      map[iox2.PointerOffset]bool{},
	}, nil
}

// Loan allocates one full-capacity slot from the data segment, failing
// with ErrExceedsMaxLoanedSamples if the per-publisher loan limit is
// already reached. For a TypeVariantFixedSize payload this is the only
// loan a publisher ever needs; for TypeVariantDynamic use LoanSlice to
// request a shorter length.
func (p *Publisher) Loan() (*SampleMut, error) {
	return p.LoanSlice(p.segment.Capacity())
}

// LoanSlice allocates a slot sized to hold exactly length payload bytes,
// failing with ErrPayloadTooLarge if length exceeds the service's payload
// capacity or ErrExceedsMaxLoanedSamples if the per-publisher loan limit
// is already reached. The length travels with the slot in its header, so
// a subscriber recovers exactly length bytes from Sample.Bytes regardless
// of the segment's fixed slot capacity.
func (p *Publisher) LoanSlice(length uint64) (*SampleMut, error) {
	sc := p.svc.StaticConfig()
	if sc.Payload.Variant != iox2.TypeVariantDynamic && length != p.segment.Capacity() {
		return nil, ErrFixedSizePayloadLengthMismatch
	}

	p.mu.Lock()
	if uint32(len(p.loaned)) >= p.svc.StaticConfig().PublisherMaxLoanedSamples {
		p.mu.Unlock()
		return nil, ErrExceedsMaxLoanedSamples
	}
	p.mu.Unlock()

	offset, buf, err := p.segment.Allocate(length)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.loaned[offset] = true
	n := len(p.loaned)
	p.mu.Unlock()

	p.rec.SetLoaned(p.svc.StaticConfig().ServiceName, p.idLabel(), n)

	return &SampleMut{publisher: p, offset: offset, payload: buf}, nil
}

// Send pushes sample's offset into every currently connected subscriber's
// submission queue and into the history ring, returning the number of
// subscribers that received it. A connection whose buffer is full is
// handled per the publisher's UnableToDeliverStrategy: DiscardSample
// skips it and keeps going, Block fails the call immediately — use
// BlockingSend instead if the connection should be waited on.
func (p *Publisher) Send(sample *SampleMut) (int, error) {
	conns, idx, err := p.beginSend(sample)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, c := range conns {
		if err := p.pushTo(c, idx, sample.offset); err != nil {
			if p.strategy == DiscardSample {
				continue
			}
			return delivered, err
		}
		delivered++
	}

	p.finishSend(sample, delivered)
	return delivered, nil
}

// BlockingSend behaves like Send, but for every connection whose buffer
// is currently full it waits with adaptive backoff for room to open up
// instead of giving up, the same wait_while-then-send shape as
// blocking_send in iceoryx2-cal/src/zero_copy_connection/common.rs. It
// returns ctx.Err() if ctx is cancelled before every connection accepts
// the sample, leaving the connections already delivered to as delivered.
func (p *Publisher) BlockingSend(ctx context.Context, sample *SampleMut) (int, error) {
	conns, idx, err := p.beginSend(sample)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, c := range conns {
		if err := p.pushBlocking(ctx, c, idx, sample.offset); err != nil {
			return delivered, err
		}
		delivered++
	}

	p.finishSend(sample, delivered)
	return delivered, nil
}

// beginSend validates sample hasn't already been sent, refreshes the
// connection set and reports the loan count freed by sending, and
// resolves sample's slot index — the prelude shared by Send and
// BlockingSend before they diverge on how they handle a full connection.
func (p *Publisher) beginSend(sample *SampleMut) ([]*Connection, int, error) {
	if sample.sent {
		return nil, 0, errors.New("pubsub: sample already sent")
	}

	if err := p.UpdateConnections(); err != nil {
		return nil, 0, err
	}

	p.mu.Lock()
	delete(p.loaned, sample.offset)
	n := len(p.loaned)
	conns := make([]*Connection, 0, len(p.connections))
	for _, c := range p.connections {
		conns = append(conns, c.conn)
	}
	p.mu.Unlock()

	p.rec.SetLoaned(p.svc.StaticConfig().ServiceName, p.idLabel(), n)

	idx, err := p.segment.SlotIndex(sample.offset)
	if err != nil {
		return nil, 0, err
	}
	return conns, idx, nil
}

func (p *Publisher) finishSend(sample *SampleMut, delivered int) {
	p.history.Push(sample.offset, uint64(len(sample.payload)))
	sample.sent = true
	p.rec.AddDelivered(p.svc.StaticConfig().ServiceName, p.idLabel(), delivered)
}

// pushBlocking retries pushTo against c until it succeeds, fails for a
// reason other than a full buffer, or ctx is cancelled. Safe-overflow
// connections never report a full buffer, so this only ever waits on a
// non-overflowing one.
func (p *Publisher) pushBlocking(ctx context.Context, c *Connection, slotIndex int, offset iox2.PointerOffset) error {
	var wait backoff
	for {
		err := p.pushTo(c, slotIndex, offset)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrReceiveBufferFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		wait.wait()
	}
}

// pushTo implements the per-connection send contract. size is no longer
// needed here: Allocate already recorded the loaned length in the slot's
// header, so a subscriber recovers it from the segment rather than the
// submission queue.
func (p *Publisher) pushTo(c *Connection, slotIndex int, offset iox2.PointerOffset) error {
	if !c.SetUsed(slotIndex) {
		return fmt.Errorf("pubsub: duplicate used-chunk set for slot %d", slotIndex)
	}

	desc := c.Descriptor()
	if desc.EnableSafeOverflow {
		evicted, didEvict := c.PushSubmissionOverflow(uint64(offset))
		if didEvict {
			if evictedIdx, err := p.segment.SlotIndex(iox2.PointerOffset(evicted)); err == nil {
				c.ClearUsed(evictedIdx)
			}
			p.rec.AddOverflowed(p.svc.StaticConfig().ServiceName, p.idLabel(), 1)
		}
		return nil
	}

	if !c.PushSubmission(uint64(offset)) {
		c.ClearUsed(slotIndex)
		return ErrReceiveBufferFull
	}
	return nil
}

// Reclaim pops one released offset from conn's completion queue,
// publisher-side.
func (p *Publisher) Reclaim(c *Connection) (iox2.PointerOffset, bool, error) {
	raw, ok := c.PopCompletion()
	if !ok {
		return 0, false, nil
	}
	offset := iox2.PointerOffset(raw)
	idx, err := p.segment.SlotIndex(offset)
	if err != nil {
		return 0, false, ErrReceiverReturnedCorruptedPointerOffset
	}
	if !c.ClearUsed(idx) {
		return 0, false, ErrReceiverReturnedCorruptedPointerOffset
	}
	return offset, true, nil
}

// UpdateConnections creates connections for newly-known subscribers and
// tears down connections for subscribers no longer in the dynamic config.
func (p *Publisher) UpdateConnections() error {
	_, subscribers, _ := p.svc.DynamicConfig().Snapshot()

	known := map[config.SubscriberID]bool{}
	for _, s := range subscribers {
		known[s.ID] = true
		if err := p.ensureConnection(s); err != nil && p.strategy != DiscardSample {
			return err
		}
	}

	name := p.svc.StaticConfig().ServiceName
	p.mu.Lock()
	for id, pc := range p.connections {
		if !known[id] {
			pc.conn.ClearRole(RoleSender)
			releaseConnectionChecked(pc.key, pc.conn)
			delete(p.connections, id)
			continue
		}
		p.rec.SetSubmissionDepth(name, p.idLabel(), fmt.Sprintf("%d", id), pc.conn.SubmissionLen())
		p.rec.SetCompletionDepth(name, p.idLabel(), fmt.Sprintf("%d", id), pc.conn.CompletionLen())
	}
	p.mu.Unlock()
	return nil
}

// ensureConnection attaches (creating if necessary) the shared connection
// object for sub, registers this publisher's sender role on it, and
// primes it with the publisher's history, whichever side created it.
func (p *Publisher) ensureConnection(sub config.SubscriberDescriptor) error {
	p.mu.Lock()
	if _, ok := p.connections[sub.ID]; ok {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	sc := p.svc.StaticConfig()
	key := connectionKey(p.svc, p.id, sub.ID)
	desc := ConnectionDescriptor{
		BufferSize:         sub.BufferSize,
		MaxBorrowedSamples: sc.SubscriberMaxBorrowedSamples,
		EnableSafeOverflow: sc.EnableSafeOverflow,
	}
	c, created := openOrCreateConnection(key, desc, p.segment.SlotCount())
	if !created {
		if err := c.CheckCompatible(desc); err != nil {
			releaseConnectionChecked(key, c)
			return err
		}
	}
	if err := c.RegisterRole(RoleSender); err != nil {
		releaseConnectionChecked(key, c)
		return err
	}

	for _, e := range p.history.Entries() {
		idx, err := p.segment.SlotIndex(e.offset)
		if err != nil {
			continue
		}
		_ = p.pushTo(c, idx, e.offset)
	}

	p.mu.Lock()
	p.connections[sub.ID] = &publisherConn{key: key, conn: c}
	p.mu.Unlock()
	return nil
}

// Drop deregisters the publisher, clears its sender role on every
// connection, and releases the data segment.
func (p *Publisher) Drop() {
	p.mu.Lock()
	conns := make([]*publisherConn, 0, len(p.connections))
	for _, pc := range p.connections {
		conns = append(conns, pc)
	}
	p.connections = map[config.SubscriberID]*publisherConn{}
	p.mu.Unlock()

	for _, pc := range conns {
		pc.conn.ClearRole(RoleSender)
		releaseConnectionChecked(pc.key, pc.conn)
	}

	p.svc.DynamicConfig().DeregisterPublisher(p.id)
	p.segment.Release()
}
