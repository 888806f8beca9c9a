package iox2

import "errors"

// Cross-cutting sentinel errors, returned by more than one layer. Layer
// specific errors (service lifecycle, compatibility, connection teardown)
// live in their owning package; see pkg/service, pkg/config and pkg/pubsub.
var (
	ErrInternalFailure         = errors.New("iox2: internal failure")
	ErrOutOfResources          = errors.New("iox2: out of resources")
	ErrInsufficientPermissions = errors.New("iox2: insufficient permissions")
	ErrServiceInCorruptedState = errors.New("iox2: service is in a corrupted state")
)
