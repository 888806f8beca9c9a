package config

import "errors"

// Compatibility and static-config errors, returned by Verify and by the
// adjust-to-sane-values policy at service creation.
var (
	ErrIncompatibleMessagingPattern                    = errors.New("config: incompatible messaging pattern")
	ErrIncompatibleTypes                                = errors.New("config: incompatible payload or header type")
	ErrIncompatibleAttributes                           = errors.New("config: required attribute not present in stored attribute set")
	ErrDoesNotSupportRequestedMaxPublishers              = errors.New("config: service does not support requested max_publishers")
	ErrDoesNotSupportRequestedMaxSubscribers             = errors.New("config: service does not support requested max_subscribers")
	ErrDoesNotSupportRequestedMaxNodes                   = errors.New("config: service does not support requested max_nodes")
	ErrDoesNotSupportRequestedHistorySize                = errors.New("config: service does not support requested history_size")
	ErrDoesNotSupportRequestedSubscriberMaxBufferSize    = errors.New("config: service does not support requested subscriber_max_buffer_size")
	ErrDoesNotSupportRequestedSubscriberMaxBorrowedSamples = errors.New("config: service does not support requested subscriber_max_borrowed_samples")
	ErrIncompatibleOverflowSetting                       = errors.New("config: enable_safe_overflow does not match")
	ErrSubscriberBufferMustBeLargerThanHistorySize       = errors.New("config: subscriber_max_buffer_size must be >= history_size when safe overflow is disabled")

	ErrAlreadyExists                   = errors.New("config: storage already exists")
	ErrDoesNotExist                    = errors.New("config: storage does not exist")
	ErrIsBeingCreatedByAnotherInstance = errors.New("config: storage is being created by another instance")
	ErrIsMarkedForDestruction          = errors.New("config: storage is marked for destruction")
)
