package service

import (
	"errors"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/pkg/config"
)

// Builder configures a publish-subscribe service before creating or
// opening it. Every setter just mutates a plain StaticConfig/Requirements
// pair in place and returns the builder for chaining.
type Builder struct {
	registry *Registry
	name     string

	sc  config.StaticConfig
	req config.Requirements
}

// NewBuilder starts building a publish-subscribe service named name,
// seeding defaults from registry's configured Defaults.
func NewBuilder(registry *Registry, name string) *Builder {
	return &Builder{
		registry: registry,
		name:     name,
		sc:       config.DefaultStaticConfig(name, registry.cfg.Defaults),
	}
}

// PayloadType sets the payload type descriptor; also recorded in
// Requirements so Open() checks it against whatever a prior creator
// committed.
func (b *Builder) PayloadType(typeName string, size, alignment uint64) *Builder {
	t := iox2.TypeDetail{Variant: iox2.TypeVariantFixedSize, TypeName: typeName, Size: size, Alignment: alignment}
	b.sc.Payload = t
	b.req.Payload = &t
	return b
}

// PayloadSliceType sets a dynamically sized payload: maxElementSize is
// the largest length in bytes a publisher may loan in one sample, the
// same role iceoryx2's initial_max_slice_len plays in the FFI binding.
func (b *Builder) PayloadSliceType(typeName string, maxElementSize, alignment uint64) *Builder {
	t := iox2.TypeDetail{Variant: iox2.TypeVariantDynamic, TypeName: typeName, Size: maxElementSize, Alignment: alignment}
	b.sc.Payload = t
	b.req.Payload = &t
	return b
}

// UserHeaderType sets the user-header type descriptor, same dual-purpose
// rule as PayloadType.
func (b *Builder) UserHeaderType(typeName string, size, alignment uint64) *Builder {
	t := iox2.TypeDetail{Variant: iox2.TypeVariantFixedSize, TypeName: typeName, Size: size, Alignment: alignment}
	b.sc.UserHeader = t
	b.req.UserHeader = &t
	return b
}

// MaxPublishers sets the maximum concurrently live publishers.
func (b *Builder) MaxPublishers(n uint32) *Builder {
	b.sc.MaxPublishers = n
	b.req.MaxPublishers = &b.sc.MaxPublishers
	return b
}

// MaxSubscribers sets the maximum concurrently live subscribers.
func (b *Builder) MaxSubscribers(n uint32) *Builder {
	b.sc.MaxSubscribers = n
	b.req.MaxSubscribers = &b.sc.MaxSubscribers
	return b
}

// MaxNodes sets the maximum number of nodes that may have this service
// open simultaneously.
func (b *Builder) MaxNodes(n uint32) *Builder {
	b.sc.MaxNodes = n
	b.req.MaxNodes = &b.sc.MaxNodes
	return b
}

// HistorySize sets how many past samples are replayed to a newly attached
// subscriber.
func (b *Builder) HistorySize(n uint32) *Builder {
	b.sc.HistorySize = n
	b.req.HistorySize = &b.sc.HistorySize
	return b
}

// SubscriberMaxBufferSize sets the per-subscriber submission queue
// capacity.
func (b *Builder) SubscriberMaxBufferSize(n uint32) *Builder {
	b.sc.SubscriberMaxBufferSize = n
	b.req.SubscriberMaxBufferSize = &b.sc.SubscriberMaxBufferSize
	return b
}

// SubscriberMaxBorrowedSamples sets how many samples a subscriber may hold
// on loan at once.
func (b *Builder) SubscriberMaxBorrowedSamples(n uint32) *Builder {
	b.sc.SubscriberMaxBorrowedSamples = n
	b.req.SubscriberMaxBorrowedSamples = &b.sc.SubscriberMaxBorrowedSamples
	return b
}

// PublisherMaxLoanedSamples sets how many samples a publisher may hold on
// loan at once before Loan fails.
func (b *Builder) PublisherMaxLoanedSamples(n uint32) *Builder {
	b.sc.PublisherMaxLoanedSamples = n
	return b
}

// EnableSafeOverflow sets whether a full subscriber buffer discards its
// oldest entry (true) or rejects delivery (false).
func (b *Builder) EnableSafeOverflow(enable bool) *Builder {
	b.sc.EnableSafeOverflow = enable
	b.req.EnableSafeOverflow = &b.sc.EnableSafeOverflow
	return b
}

// Attribute sets an attribute to commit at creation time, and requires it
// to be present with this exact value when opening.
func (b *Builder) Attribute(key, value string) *Builder {
	if b.sc.Attributes == nil {
		b.sc.Attributes = config.NewAttributeSet()
	}
	b.sc.Attributes.Insert(key, value)
	if b.req.Attributes == nil {
		b.req.Attributes = config.NewAttributeVerifier()
	}
	b.req.Attributes.Require(key, value)
	return b
}

// Create commits a brand-new service from the accumulated StaticConfig,
// failing with ErrAlreadyExists if one of this (name, pattern) already
// exists.
func (b *Builder) Create() (*Service, error) {
	return b.registry.Create(b.sc)
}

// Open attaches nodeName to an existing service, verifying every setter
// called on this builder against the stored StaticConfig.
func (b *Builder) Open(nodeName string) (*Service, error) {
	return b.registry.Open(b.name, iox2.MessagingPatternPublishSubscribe, nodeName, b.req)
}

// OpenOrCreate attaches nodeName if the service already exists and is
// compatible, otherwise creates it — the common case for a process that
// doesn't care which side of the race it ends up on.
func (b *Builder) OpenOrCreate(nodeName string) (*Service, error) {
	svc, err := b.Open(nodeName)
	if err == nil {
		return svc, nil
	}
	if !errors.Is(err, ErrDoesNotExist) {
		return nil, err
	}
	created, err := b.Create()
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrAlreadyExists) {
		return b.Open(nodeName)
	}
	return nil, err
}
