package node

import (
	"context"
	"sync"
	"time"

	"github.com/iox2go/iox2/pkg/metrics"
	"github.com/iox2go/iox2/pkg/service"
	"github.com/sirupsen/logrus"
)

// Reaper periodically runs Scan across a caller-supplied set of services,
// the background half of dead-port cleanup. A caller that also wants a
// scan on port creation calls Scan itself; NewPublisher and NewSubscriber
// do not run one.
type Reaper struct {
	log      *logrus.Entry
	services func() []*service.Service
	period   time.Duration
	rec      *metrics.Recorder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper builds a reaper that, once started, scans whatever services
// fn currently returns every period. rec may be nil.
func NewReaper(fn func() []*service.Service, period time.Duration, log *logrus.Entry, rec *metrics.Recorder) *Reaper {
	return &Reaper{services: fn, period: period, log: log, rec: rec}
}

// Start launches the background scan loop. Call Stop to end it and Wait
// to block until it has.
func (r *Reaper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, svc := range r.services() {
				if _, err := Scan(svc, r.log, r.rec); err != nil && r.log != nil {
					r.log.WithError(err).Warn("node: reaper scan failed")
				}
			}
		}
	}
}

// Stop signals the scan loop to exit. Call Wait afterward to block until
// it has actually returned.
func (r *Reaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Wait blocks until the scan loop has exited.
func (r *Reaper) Wait() {
	r.wg.Wait()
}
