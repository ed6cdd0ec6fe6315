package pile

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts write and snapshot activity. One Metrics may be shared by
// several files.
type Metrics struct {
	BlobsWritten   prometheus.Counter
	BytesWritten   prometheus.Counter
	PaddingWords   prometheus.Counter
	Commits        prometheus.Counter
	Snapshots      prometheus.Counter
	SnapshotRemaps prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlobsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoard",
			Subsystem: "pile",
			Name:      "blobs_written_total",
			Help:      "Blob and root frames appended.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoard",
			Subsystem: "pile",
			Name:      "bytes_written_total",
			Help:      "Bytes appended, including padding and marks.",
		}),
		PaddingWords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoard",
			Subsystem: "pile",
			Name:      "padding_words_total",
			Help:      "Zero words inserted to keep blob words from colliding with marks.",
		}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoard",
			Subsystem: "pile",
			Name:      "commits_total",
			Help:      "Roots committed.",
		}),
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoard",
			Subsystem: "pile",
			Name:      "snapshots_total",
			Help:      "Snapshots handed out.",
		}),
		SnapshotRemaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hoard",
			Subsystem: "pile",
			Name:      "snapshot_remaps_total",
			Help:      "Snapshots that required a new mapping.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.BlobsWritten, m.BytesWritten, m.PaddingWords, m.Commits, m.Snapshots, m.SnapshotRemaps)
	}
	return m
}
