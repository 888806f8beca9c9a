// Package metrics records the observability surface every port and the
// node reaper report into: per-connection queue depths, delivery and
// overflow counters, and dead-node reclamation counts, exposed via
// prometheus/client_golang.
// Nothing on the data path blocks on a Recorder; a nil one is a valid,
// no-op stand-in for a caller that hasn't wired metrics at all.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder holds the registry-bound collectors every port reports into.
// Every method is nil-receiver safe, so callers can pass a nil *Recorder
// anywhere one is expected and get silent no-ops instead of a panic.
type Recorder struct {
	submissionDepth *prometheus.GaugeVec
	completionDepth *prometheus.GaugeVec
	delivered       *prometheus.CounterVec
	overflowed      *prometheus.CounterVec
	loaned          *prometheus.GaugeVec
	deadNodes       *prometheus.CounterVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
// Pass prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for the process-wide one.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		submissionDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iox2_submission_queue_depth",
			Help: "Pending entries in a connection's submission queue.",
		}, []string{"service", "publisher", "subscriber"}),
		completionDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iox2_completion_queue_depth",
			Help: "Pending entries in a connection's completion queue.",
		}, []string{"service", "publisher", "subscriber"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iox2_samples_delivered_total",
			Help: "Samples successfully pushed to a subscriber connection.",
		}, []string{"service", "publisher"}),
		overflowed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iox2_samples_overflowed_total",
			Help: "Samples evicted from a full submission queue under safe overflow.",
		}, []string{"service", "publisher"}),
		loaned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iox2_samples_loaned",
			Help: "Samples currently on loan from a publisher.",
		}, []string{"service", "publisher"}),
		deadNodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iox2_dead_nodes_reclaimed_total",
			Help: "Nodes reclaimed by the dead-port cleanup scan.",
		}, []string{"service"}),
	}

	collectors := []prometheus.Collector{
		r.submissionDepth, r.completionDepth, r.delivered, r.overflowed, r.loaned, r.deadNodes,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) SetSubmissionDepth(service, publisher, subscriber string, depth int) {
	if r == nil {
		return
	}
	r.submissionDepth.WithLabelValues(service, publisher, subscriber).Set(float64(depth))
}

func (r *Recorder) SetCompletionDepth(service, publisher, subscriber string, depth int) {
	if r == nil {
		return
	}
	r.completionDepth.WithLabelValues(service, publisher, subscriber).Set(float64(depth))
}

func (r *Recorder) AddDelivered(service, publisher string, n int) {
	if r == nil {
		return
	}
	r.delivered.WithLabelValues(service, publisher).Add(float64(n))
}

func (r *Recorder) AddOverflowed(service, publisher string, n int) {
	if r == nil {
		return
	}
	r.overflowed.WithLabelValues(service, publisher).Add(float64(n))
}

func (r *Recorder) SetLoaned(service, publisher string, n int) {
	if r == nil {
		return
	}
	r.loaned.WithLabelValues(service, publisher).Set(float64(n))
}

func (r *Recorder) AddDeadNodesReclaimed(service string, n int) {
	if r == nil {
		return
	}
	r.deadNodes.WithLabelValues(service).Add(float64(n))
}
