// Package service implements the service creation/open workflow: giving
// exactly one (name, pattern) pair a persistent static config file plus
// a shared dynamic config segment, detecting concurrent creators, and
// allowing safe opening from any process.
package service

import "errors"

// Lifecycle errors returned by Create/Open, layered on top of the storage
// and compatibility errors from pkg/config.
var (
	ErrAlreadyExists         = errors.New("service: already exists")
	ErrDoesNotExist          = errors.New("service: does not exist")
	ErrExceedsMaxNumberOfNodes = errors.New("service: exceeds max_nodes, already at capacity")
	ErrIsMarkedForDestruction  = errors.New("service: marked for destruction")
)
