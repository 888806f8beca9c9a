package pubsub

import (
	"fmt"

	"github.com/iox2go/iox2/internal/namehash"
	"github.com/iox2go/iox2/internal/shmem"
	"github.com/iox2go/iox2/pkg/config"
	"github.com/iox2go/iox2/pkg/service"
)

// connections is the named registry every publisher and subscriber in the
// process looks a (publisher, subscriber) connection up in — the
// in-process stand-in for the single shared-memory object both sides of
// a real connection would mmap by name.
var connections = shmem.NewObjects()

func connectionKey(svc *service.Service, pubID config.PublisherID, subID config.SubscriberID) string {
	return namehash.Of(svc.Key(), fmt.Sprintf("%d", pubID), fmt.Sprintf("%d", subID))
}

// openOrCreateConnection attaches to the named connection, building one
// from desc if it does not exist yet. It reports whether this call
// created it, so the caller knows whether to run a compatibility check.
func openOrCreateConnection(key string, desc ConnectionDescriptor, segmentSlots int) (*Connection, bool) {
	v, created := connections.OpenOrCreate(key, func() any {
		return NewConnection(desc, segmentSlots)
	})
	return v.(*Connection), created
}

// openConnection attaches to an existing named connection, failing if
// the other side has not created it yet.
func openConnection(key string) (*Connection, error) {
	v, err := connections.Open(key)
	if err != nil {
		return nil, err
	}
	return v.(*Connection), nil
}

// releaseConnection drops one reference to the named connection.
func releaseConnection(key string) { connections.Release(key) }

// releaseConnectionChecked drops one reference to the named connection,
// and force-removes it from the registry instead if c is marked for
// destruction — a lone sender or receiver that never paired, or a pair
// that both cleared, must not linger as a zombie waiting for whatever
// process happens to drop the last ordinary reference.
func releaseConnectionChecked(key string, c *Connection) {
	if c.IsMarkedForDestruction() {
		connections.Remove(key)
		return
	}
	connections.Release(key)
}
