package pubsub

import (
	"sync"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/pkg/config"
	"github.com/iox2go/iox2/pkg/service"
	"github.com/sirupsen/logrus"
)

// subscriberConn pairs a shared connection with the DataSegment mapping
// its owning publisher's samples are read through.
type subscriberConn struct {
	key     string
	pubID   config.PublisherID
	conn    *Connection
	segment *DataSegment
}

// Subscriber is the read-side port: it attaches one
// connection per currently-known publisher, round-robins samples off
// them, and keeps a bounded buffer of connections whose publisher has
// already disconnected so their last unconsumed samples are not lost.
type Subscriber struct {
	svc        *service.Service
	nodeID     config.NodeID
	id         config.SubscriberID
	bufferSize uint32
	log        *logrus.Entry

	mu          sync.Mutex
	connections map[config.PublisherID]*subscriberConn
	expired     []*subscriberConn
	rrCursor    int
	borrowed    int
}

// NewSubscriber registers a new subscriber against svc's dynamic config.
func NewSubscriber(svc *service.Service, bufferSize uint32, log *logrus.Entry) (*Subscriber, error) {
	nodeID, _ := svc.NodeID()
	id, err := svc.DynamicConfig().RegisterSubscriber(nodeID, bufferSize)
	if err != nil {
		return nil, err
	}
	return &Subscriber{
		svc:         svc,
		nodeID:      nodeID,
		id:          id,
		bufferSize:  bufferSize,
		log:         log,
		connections: map[config.PublisherID]*subscriberConn{},
	}, nil
}

// UpdateConnections attaches to every currently-known publisher not yet
// connected, and retires connections whose publisher is no longer in the
// dynamic config into the expired buffer.
func (s *Subscriber) UpdateConnections() error {
	publishers, _, _ := s.svc.DynamicConfig().Snapshot()

	known := map[config.PublisherID]bool{}
	for _, p := range publishers {
		known[p.ID] = true
		s.mu.Lock()
		_, have := s.connections[p.ID]
		s.mu.Unlock()
		if !have {
			if err := s.ensureConnection(p); err != nil {
				s.logWarn(err, "subscriber failed to attach to publisher")
			}
		}
	}

	s.mu.Lock()
	var departed []*subscriberConn
	for id, sc := range s.connections {
		if !known[id] {
			departed = append(departed, sc)
			delete(s.connections, id)
		}
	}
	s.mu.Unlock()

	bound := int(s.svc.Defaults().SubscriberExpiredConnectionBuffer)
	for _, sc := range departed {
		s.retire(sc, bound)
	}
	return nil
}

// retire moves sc into the expired buffer, or tears it down immediately
// if bound is 0, meaning no expired-connection buffering.
func (s *Subscriber) retire(sc *subscriberConn, bound int) {
	if bound <= 0 {
		s.releaseConn(sc)
		return
	}
	s.mu.Lock()
	s.expired = append(s.expired, sc)
	for len(s.expired) > bound {
		oldest := s.expired[0]
		s.expired = s.expired[1:]
		s.mu.Unlock()
		s.releaseConn(oldest)
		s.mu.Lock()
	}
	s.mu.Unlock()
}

func (s *Subscriber) releaseConn(sc *subscriberConn) {
	sc.conn.ClearRole(RoleReceiver)
	releaseConnectionChecked(sc.key, sc.conn)
	sc.segment.Release()
}

func (s *Subscriber) ensureConnection(pub config.PublisherDescriptor) error {
	sc := s.svc.StaticConfig()
	key := connectionKey(s.svc, pub.ID, s.id)
	desc := ConnectionDescriptor{
		BufferSize:         s.bufferSize,
		MaxBorrowedSamples: sc.SubscriberMaxBorrowedSamples,
		EnableSafeOverflow: sc.EnableSafeOverflow,
	}
	slots := segmentSlotCount(sc)
	c, created := openOrCreateConnection(key, desc, slots)
	if !created {
		if err := c.CheckCompatible(desc); err != nil {
			releaseConnectionChecked(key, c)
			return err
		}
	}
	if err := c.RegisterRole(RoleReceiver); err != nil {
		releaseConnectionChecked(key, c)
		return err
	}

	segment, err := OpenDataSegment(pub.SegmentName, sc.Payload.Size, sc.Payload.Alignment, slots)
	if err != nil {
		c.ClearRole(RoleReceiver)
		releaseConnectionChecked(key, c)
		return err
	}

	s.mu.Lock()
	s.connections[pub.ID] = &subscriberConn{key: key, pubID: pub.ID, conn: c, segment: segment}
	s.mu.Unlock()
	return nil
}

// HasSamples reports whether any attached connection, expired or live,
// currently holds an unconsumed sample, without dequeuing one.
func (s *Subscriber) HasSamples() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.expired {
		if sc.conn.SubmissionLen() > 0 {
			return true
		}
	}
	for _, sc := range s.connections {
		if sc.conn.SubmissionLen() > 0 {
			return true
		}
	}
	return false
}

// Receive pops the next available sample, draining the expired buffer
// before live connections, enforcing the subscriber_max_borrowed_samples
// cap. Returns (nil, nil) if nothing is currently pending.
func (s *Subscriber) Receive() (*Sample, error) {
	if err := s.UpdateConnections(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if uint32(s.borrowed) >= s.svc.StaticConfig().SubscriberMaxBorrowedSamples {
		s.mu.Unlock()
		return nil, ErrReceiveWouldExceedMaxBorrowValue
	}
	s.mu.Unlock()

	if sample, err := s.receiveFromExpired(); sample != nil || err != nil {
		return sample, err
	}
	return s.receiveFromLive()
}

func (s *Subscriber) receiveFromExpired() (*Sample, error) {
	for {
		s.mu.Lock()
		if len(s.expired) == 0 {
			s.mu.Unlock()
			return nil, nil
		}
		sc := s.expired[0]
		s.mu.Unlock()

		raw, ok := sc.conn.PopSubmission()
		if !ok {
			s.mu.Lock()
			if len(s.expired) > 0 && s.expired[0] == sc {
				s.expired = s.expired[1:]
			}
			s.mu.Unlock()
			s.releaseConn(sc)
			continue
		}
		return s.buildSample(sc, raw)
	}
}

func (s *Subscriber) receiveFromLive() (*Sample, error) {
	s.mu.Lock()
	conns := make([]*subscriberConn, 0, len(s.connections))
	for _, sc := range s.connections {
		conns = append(conns, sc)
	}
	if len(conns) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	start := s.rrCursor % len(conns)
	s.mu.Unlock()

	for i := 0; i < len(conns); i++ {
		sc := conns[(start+i)%len(conns)]
		if raw, ok := sc.conn.PopSubmission(); ok {
			s.mu.Lock()
			s.rrCursor = (start + i + 1) % len(conns)
			s.mu.Unlock()
			return s.buildSample(sc, raw)
		}
	}
	return nil, nil
}

func (s *Subscriber) buildSample(sc *subscriberConn, raw uint64) (*Sample, error) {
	offset := iox2.PointerOffset(raw)
	payload, err := sc.segment.Bytes(offset)
	if err != nil {
		return nil, ErrReceiverReturnedCorruptedPointerOffset
	}

	s.mu.Lock()
	s.borrowed++
	s.mu.Unlock()

	return &Sample{subscriber: s, conn: sc, offset: offset, payload: payload}, nil
}

// release returns sample's offset to its connection's completion queue
// and decrements the borrow counter. A full completion queue indicates a
// sizing invariant was violated elsewhere and is reported as
// ErrRetrieveBufferFull rather than retried.
func (s *Subscriber) release(sample *Sample) error {
	s.mu.Lock()
	s.borrowed--
	s.mu.Unlock()

	if !sample.conn.conn.PushCompletion(uint64(sample.offset)) {
		return ErrRetrieveBufferFull
	}
	return nil
}

// Drop deregisters the subscriber and clears its receiver role on every
// connection it still holds, live or expired.
func (s *Subscriber) Drop() {
	s.mu.Lock()
	all := make([]*subscriberConn, 0, len(s.connections)+len(s.expired))
	for _, sc := range s.connections {
		all = append(all, sc)
	}
	all = append(all, s.expired...)
	s.connections = map[config.PublisherID]*subscriberConn{}
	s.expired = nil
	s.mu.Unlock()

	for _, sc := range all {
		s.releaseConn(sc)
	}
	s.svc.DynamicConfig().DeregisterSubscriber(s.id)
}

func (s *Subscriber) logWarn(err error, msg string) {
	if s.log != nil {
		s.log.WithError(err).Warn(msg)
	}
}
