// Package pubsub implements the zero-copy publish-subscribe transport:
// the shared-memory connection between one publisher and one subscriber,
// the publisher and subscriber ports built on top of it, and the
// fixed-slot data-segment allocator that backs loaned samples.
package pubsub

import "errors"

var (
	ErrReceiveBufferFull                    = errors.New("pubsub: receive buffer full")
	ErrRetrieveBufferFull                    = errors.New("pubsub: retrieve buffer full, connection is corrupted")
	ErrReceiveWouldExceedMaxBorrowValue      = errors.New("pubsub: receive would exceed max borrowed samples")
	ErrReceiverReturnedCorruptedPointerOffset = errors.New("pubsub: receiver returned a corrupted pointer offset")
	ErrExceedsMaxLoanedSamples               = errors.New("pubsub: exceeds max loaned samples")
	ErrAnotherInstanceIsAlreadyConnected     = errors.New("pubsub: another instance already holds this role")
	ErrConnectionMarkedForDestruction        = errors.New("pubsub: connection is marked for destruction")

	ErrIncompatibleBufferSize      = errors.New("pubsub: connection buffer size mismatch")
	ErrIncompatibleSamplesPerSegment = errors.New("pubsub: connection samples-per-segment mismatch")
	ErrIncompatibleNumberOfSegments  = errors.New("pubsub: connection number-of-segments mismatch")
	ErrIncompatibleOverflowSetting   = errors.New("pubsub: connection overflow setting mismatch")

	ErrSegmentOutOfMemory             = errors.New("pubsub: data segment has no free slots")
	ErrInvalidPointerOffset           = errors.New("pubsub: pointer offset does not belong to this segment")
	ErrPayloadTooLarge                = errors.New("pubsub: loaned length exceeds the service's payload capacity")
	ErrFixedSizePayloadLengthMismatch = errors.New("pubsub: a fixed-size payload service can only loan its full capacity")
)
