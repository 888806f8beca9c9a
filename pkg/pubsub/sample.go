package pubsub

import "github.com/iox2go/iox2"

// SampleMut is a publisher's write handle onto a freshly loaned slot.
// It is consumed by Publisher.Send; a loan that is never sent keeps its
// slot until Discard is called.
type SampleMut struct {
	publisher *Publisher
	offset    iox2.PointerOffset
	payload   []byte
	sent      bool
}

// Bytes returns the live, writable payload mapping.
func (s *SampleMut) Bytes() []byte { return s.payload }

// Offset returns the pointer-offset this loan addresses.
func (s *SampleMut) Offset() iox2.PointerOffset { return s.offset }

// Discard releases the loaned slot back to the publisher's segment
// without sending it. A no-op once the sample has been sent.
func (s *SampleMut) Discard() {
	if s.sent {
		return
	}
	s.publisher.mu.Lock()
	delete(s.publisher.loaned, s.offset)
	n := len(s.publisher.loaned)
	s.publisher.mu.Unlock()
	s.publisher.segment.Free(s.offset)
	s.publisher.rec.SetLoaned(s.publisher.svc.StaticConfig().ServiceName, s.publisher.idLabel(), n)
}

// Sample is a subscriber's read-only handle onto a delivered payload.
// The payload remains readable until Release is called; the connection
// it came from keeps the backing segment mapped alive in the meantime.
type Sample struct {
	subscriber *Subscriber
	conn       *subscriberConn
	offset     iox2.PointerOffset
	payload    []byte
	released   bool
}

// Bytes returns the live, read-only payload mapping.
func (s *Sample) Bytes() []byte { return s.payload }

// Offset returns the pointer-offset this sample addresses.
func (s *Sample) Offset() iox2.PointerOffset { return s.offset }

// Release returns the sample to its connection's completion queue and
// decrements the subscriber's borrow counter. Calling it more than once is a no-op.
func (s *Sample) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.subscriber.release(s)
}
