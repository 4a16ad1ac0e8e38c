package zelastic

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/zelastic/internal/db"
)

// Option configures a Store.
type Option interface {
	apply(*storeConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*storeConfig)

func (f optionFunc) apply(c *storeConfig) { f(c) }

type storeConfig struct {
	path     string
	inMemory bool
	noSync   bool

	addrs     []string
	password  string
	db        int
	keyPrefix string

	bulk     bool
	bulkSize int
	pageSize int
	maxHits  int

	engine db.Engine
	logger *zap.Logger
}

// WithPath sets the primary store directory.
func WithPath(path string) Option {
	return optionFunc(func(c *storeConfig) {
		c.path = path
	})
}

// WithInMemory keeps the primary store in memory. Data is lost on Close.
func WithInMemory() Option {
	return optionFunc(func(c *storeConfig) {
		c.inMemory = true
	})
}

// WithNoSync skips fsync on primary store writes.
func WithNoSync() Option {
	return optionFunc(func(c *storeConfig) {
		c.noSync = true
	})
}

// WithRedis connects the search projection to a Redis instance with Redis Search.
// Without it the Store runs an embedded in-process engine.
func WithRedis(addrs ...string) Option {
	return optionFunc(func(c *storeConfig) {
		c.addrs = append(c.addrs, addrs...)
	})
}

// WithPassword sets the Redis password.
func WithPassword(password string) Option {
	return optionFunc(func(c *storeConfig) {
		c.password = password
	})
}

// WithDB selects the Redis logical database.
func WithDB(n int) Option {
	return optionFunc(func(c *storeConfig) {
		c.db = n
	})
}

// WithKeyPrefix namespaces every search key and index name (default "zelastic:").
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *storeConfig) {
		c.keyPrefix = prefix
	})
}

// WithBulk queues search mutations and sends them size at a time.
// Call Store.Flush to send a partial batch.
func WithBulk(size int) Option {
	return optionFunc(func(c *storeConfig) {
		c.bulk = true
		c.bulkSize = size
	})
}

// WithPageSize sets how many hits are fetched per search round-trip.
func WithPageSize(n int) Option {
	return optionFunc(func(c *storeConfig) {
		c.pageSize = n
	})
}

// WithMaxHits caps the number of hits a single search collects.
func WithMaxHits(n int) Option {
	return optionFunc(func(c *storeConfig) {
		c.maxHits = n
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *storeConfig) {
		c.logger = l
	})
}

// withEngine injects a search engine; used by tests.
func withEngine(e db.Engine) Option {
	return optionFunc(func(c *storeConfig) {
		c.engine = e
	})
}
