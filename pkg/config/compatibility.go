package config

import "github.com/iox2go/iox2"

// Requirements is the opener-side half of the compatibility check: every
// field is optional, and only the ones the opener explicitly sets are
// checked; unset fields are accepted as-is.
type Requirements struct {
	Payload    *iox2.TypeDetail
	UserHeader *iox2.TypeDetail

	MaxPublishers                *uint32
	MaxSubscribers                *uint32
	MaxNodes                      *uint32
	HistorySize                   *uint32
	SubscriberMaxBufferSize       *uint32
	SubscriberMaxBorrowedSamples  *uint32
	EnableSafeOverflow            *bool

	Attributes *AttributeVerifier
}

// Verify checks requested requirements against a service's committed
// StaticConfig, returning the first violated rule.
func Verify(stored StaticConfig, req Requirements) error {
	if req.Payload != nil {
		if !typeCompatible(*req.Payload, stored.Payload) {
			return ErrIncompatibleTypes
		}
	}
	if req.UserHeader != nil {
		if !typeCompatible(*req.UserHeader, stored.UserHeader) {
			return ErrIncompatibleTypes
		}
	}
	if req.MaxPublishers != nil && stored.MaxPublishers < *req.MaxPublishers {
		return ErrDoesNotSupportRequestedMaxPublishers
	}
	if req.MaxSubscribers != nil && stored.MaxSubscribers < *req.MaxSubscribers {
		return ErrDoesNotSupportRequestedMaxSubscribers
	}
	if req.MaxNodes != nil && stored.MaxNodes < *req.MaxNodes {
		return ErrDoesNotSupportRequestedMaxNodes
	}
	if req.HistorySize != nil && stored.HistorySize < *req.HistorySize {
		return ErrDoesNotSupportRequestedHistorySize
	}
	if req.SubscriberMaxBufferSize != nil && stored.SubscriberMaxBufferSize < *req.SubscriberMaxBufferSize {
		return ErrDoesNotSupportRequestedSubscriberMaxBufferSize
	}
	if req.SubscriberMaxBorrowedSamples != nil && stored.SubscriberMaxBorrowedSamples < *req.SubscriberMaxBorrowedSamples {
		return ErrDoesNotSupportRequestedSubscriberMaxBorrowedSamples
	}
	if req.EnableSafeOverflow != nil && *req.EnableSafeOverflow != stored.EnableSafeOverflow {
		return ErrIncompatibleOverflowSetting
	}
	if req.Attributes != nil && !req.Attributes.Verify(stored.Attributes) {
		return ErrIncompatibleAttributes
	}
	return nil
}

// typeCompatible implements the payload/user-header rule: type-name,
// variant and size must match exactly; the stored alignment only needs to
// be at least as strict as requested.
func typeCompatible(requested, stored iox2.TypeDetail) bool {
	return requested.Equal(stored) && stored.Alignment >= requested.Alignment
}
