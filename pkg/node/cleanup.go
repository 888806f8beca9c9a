package node

import (
	"github.com/iox2go/iox2/pkg/metrics"
	"github.com/iox2go/iox2/pkg/pubsub"
	"github.com/iox2go/iox2/pkg/service"
	"github.com/sirupsen/logrus"
)

// Scan walks svc's dynamic config for registered nodes whose liveness
// token shows no living owning process, and for each dead one:
//   - reclaims every publisher and subscriber it owned, clearing the
//     opposite role's obligations on each connection and (publisher side)
//     draining leaked used-chunk marks;
//   - removes its dynamic-config entries for those ports;
//   - deregisters the node itself.
//
// Callers decide when to run this — on service creation, on service
// destruction, or on a timer — by checking their own Global.Node policy
// flags; Scan has no opinion on when it should run.
func Scan(svc *service.Service, log *logrus.Entry, rec *metrics.Recorder) (reclaimed int, err error) {
	dc := svc.DynamicConfig()
	publishers, subscribers, nodes := dc.Snapshot()

	for _, nd := range nodes {
		if IsAlive(nd.Name) {
			continue
		}

		for _, p := range publishers {
			if p.Node != nd.ID {
				continue
			}
			pubsub.ReclaimPublisher(svc, p)
			dc.DeregisterPublisher(p.ID)
			reclaimed++
		}
		for _, s := range subscribers {
			if s.Node != nd.ID {
				continue
			}
			pubsub.ReclaimSubscriber(svc, s)
			dc.DeregisterSubscriber(s.ID)
			reclaimed++
		}

		dc.DeregisterNode(nd.ID)
		if log != nil {
			log.WithField("node", nd.Name).Warn("node: reclaimed dead node")
		}
	}
	if reclaimed > 0 {
		rec.AddDeadNodesReclaimed(svc.StaticConfig().ServiceName, reclaimed)
	}
	return reclaimed, nil
}
