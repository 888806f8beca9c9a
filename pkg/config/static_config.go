package config

import (
	"github.com/iox2go/iox2"
	"github.com/sirupsen/logrus"
)

// StaticConfig is the immutable-after-creation description of a
// publish-subscribe service. Once committed to storage it is
// never mutated; Open only ever reads one back.
type StaticConfig struct {
	ServiceName string
	Pattern     iox2.MessagingPattern

	Payload    iox2.TypeDetail
	UserHeader iox2.TypeDetail

	MaxPublishers                uint32
	MaxSubscribers                uint32
	MaxNodes                      uint32
	HistorySize                   uint32
	SubscriberMaxBufferSize       uint32
	SubscriberMaxBorrowedSamples  uint32
	PublisherMaxLoanedSamples     uint32
	EnableSafeOverflow            bool

	Attributes AttributeSet
}

// DefaultStaticConfig returns a StaticConfig seeded from defaults.* —
// callers only need to override what their service actually needs before
// calling AdjustToSaneValues.
func DefaultStaticConfig(serviceName string, d Defaults) StaticConfig {
	return StaticConfig{
		ServiceName:                  serviceName,
		Pattern:                      iox2.MessagingPatternPublishSubscribe,
		MaxPublishers:                d.MaxPublishers,
		MaxSubscribers:               d.MaxSubscribers,
		MaxNodes:                     d.MaxNodes,
		HistorySize:                  d.PublisherHistorySize,
		SubscriberMaxBufferSize:      d.SubscriberMaxBufferSize,
		SubscriberMaxBorrowedSamples: d.SubscriberMaxBorrowedSamples,
		PublisherMaxLoanedSamples:    d.PublisherMaxLoanedSamples,
		EnableSafeOverflow:           d.EnableSafeOverflow,
		Attributes:                   NewAttributeSet(),
	}
}

// AdjustToSaneValues silently promotes any zero capacity field to 1,
// logging one warning per field adjusted, then checks the
// buffer-vs-history invariant. This only runs at creation time.
func (c *StaticConfig) AdjustToSaneValues(log *logrus.Entry) error {
	adjust := func(name string, v *uint32) {
		if *v == 0 {
			*v = 1
			if log != nil {
				log.WithField("field", name).Warn("requested capacity of 0 is not valid, adjusted to 1")
			}
		}
	}
	adjust("max_publishers", &c.MaxPublishers)
	adjust("max_subscribers", &c.MaxSubscribers)
	adjust("max_nodes", &c.MaxNodes)
	adjust("history_size", &c.HistorySize)
	adjust("subscriber_max_buffer_size", &c.SubscriberMaxBufferSize)
	adjust("subscriber_max_borrowed_samples", &c.SubscriberMaxBorrowedSamples)
	adjust("publisher_max_loaned_samples", &c.PublisherMaxLoanedSamples)

	if !c.EnableSafeOverflow && c.SubscriberMaxBufferSize < c.HistorySize {
		return ErrSubscriberBufferMustBeLargerThanHistorySize
	}
	return nil
}
