// Package external names the messaging patterns this module does not
// implement: event notification, request-response, and blackboard
// services. They are collaborators that would
// share service discovery and the static/dynamic config machinery with
// pkg/pubsub, never its data path, so only their seams are declared
// here — no queue, no segment, no wire format.
package external

import (
	"context"

	"github.com/iox2go/iox2"
	"github.com/iox2go/iox2/pkg/config"
)

// ServiceDiscovery is the seam every messaging pattern attaches through:
// resolving a service name to its static config without caring which
// pattern backs it, the way pkg/service.Registry.Open does for
// publish-subscribe today.
type ServiceDiscovery interface {
	Discover(serviceName string, pattern iox2.MessagingPattern) (config.StaticConfig, bool)
}

// NotificationService would implement MessagingPatternEvent: a listener
// waiting on a bitset of notifier ids rather than any shared payload.
type NotificationService interface {
	Notify(ctx context.Context, id uint64) error
	WaitOneOf(ctx context.Context, ids []uint64) (uint64, error)
}

// RequestResponseService would implement MessagingPatternRequestResponse:
// a client loaning a request, a server loaning the matching response, both
// over the same kind of data segment pkg/pubsub already allocates.
type RequestResponseService interface {
	SendRequest(payload []byte) (requestID uint64, err error)
	SendResponse(requestID uint64, payload []byte) error
}

// BlackboardService would implement MessagingPatternBlackboard: a single
// shared record multiple writers update in place and multiple readers
// observe, trading pkg/pubsub's queued delivery for last-value semantics.
type BlackboardService interface {
	Write(key string, payload []byte) error
	Read(key string) ([]byte, bool)
}
