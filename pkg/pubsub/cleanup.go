package pubsub

import (
	"github.com/iox2go/iox2/internal/shmem"
	"github.com/iox2go/iox2/pkg/config"
	"github.com/iox2go/iox2/pkg/service"
)

// ReclaimPublisher tears down every connection a now-dead publisher left
// behind: clears the sender role, drains whatever used-chunk marks were
// still outstanding on the subscriber's side, and force-removes the
// orphaned data segment, since no process remains to call Drop on it.
// Called by pkg/node's dead-port scan, never by live publisher code.
func ReclaimPublisher(svc *service.Service, pub config.PublisherDescriptor) {
	_, subscribers, _ := svc.DynamicConfig().Snapshot()
	for _, sub := range subscribers {
		key := connectionKey(svc, pub.ID, sub.ID)
		conn, err := openConnection(key)
		if err != nil {
			continue
		}
		conn.AcquireUsedOffsets()
		conn.ClearRole(RoleSender)
		releaseConnectionChecked(key, conn)
	}
	shmem.Remove(pub.SegmentName)
}

// ReclaimSubscriber clears a now-dead subscriber's receiver role on every
// connection it held, releasing this node's reference to each.
func ReclaimSubscriber(svc *service.Service, sub config.SubscriberDescriptor) {
	publishers, _, _ := svc.DynamicConfig().Snapshot()
	for _, pub := range publishers {
		key := connectionKey(svc, pub.ID, sub.ID)
		conn, err := openConnection(key)
		if err != nil {
			continue
		}
		conn.ClearRole(RoleReceiver)
		releaseConnectionChecked(key, conn)
	}
}
