package pile

import (
	"github.com/sirupsen/logrus"

	"github.com/oda/hoard/internal/mmap"
)

// Access hints how snapshots will be read.
type Access = mmap.Access

const (
	AccessRandom     = mmap.Random
	AccessSequential = mmap.Sequential
)

// DefaultBufferSize is the size of the append buffer.
const DefaultBufferSize = 64 << 10

// Option configures how a File is opened or created.
type Option func(*config)

type config struct {
	log           logrus.FieldLogger
	metrics       *Metrics
	syncOnCommit  bool
	access        Access
	exclusiveLock bool
	bufferSize    int
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithMetrics records write and snapshot activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithSyncOnCommit controls whether Commit fsyncs after writing the mark.
// It defaults to true; turning it off trades durability for speed.
func WithSyncOnCommit(sync bool) Option {
	return func(c *config) {
		c.syncOnCommit = sync
	}
}

// WithAccess sets the madvise hint for snapshot mappings.
func WithAccess(a Access) Option {
	return func(c *config) {
		c.access = a
	}
}

// WithExclusiveLock takes a non-blocking flock on a sidecar .lock file,
// so a second process opening the same pile fails with ErrLocked.
func WithExclusiveLock() Option {
	return func(c *config) {
		c.exclusiveLock = true
	}
}

// WithBufferSize sets the append buffer size in bytes.
func WithBufferSize(n int) Option {
	return func(c *config) {
		c.bufferSize = n
	}
}

func applyOptions(opts []Option) config {
	cfg := config{
		log:          logrus.StandardLogger(),
		syncOnCommit: true,
		access:       AccessRandom,
		bufferSize:   DefaultBufferSize,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = NewMetrics(nil)
	}
	if cfg.bufferSize <= 0 {
		cfg.bufferSize = DefaultBufferSize
	}
	return cfg
}
