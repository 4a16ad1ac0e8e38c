package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/zelastic/internal/domain"
	domcontainer "github.com/kailas-cloud/zelastic/internal/domain/container"
	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
	"github.com/kailas-cloud/zelastic/internal/domain/search/filter"
	"github.com/kailas-cloud/zelastic/internal/usecase/result"
)

// Container is a named record collection whose indexed fields are mirrored
// into the search engine. Writes go to the primary store first; a failed
// mirror leaves the primary write in place and returns the error.
type Container struct {
	name    string
	records Records
	schemas SchemaRegistry
	index   SearchIndex
	newID   IDGenerator
	logger  *zap.Logger

	// mu guards dropped; mutations hold the read side for their whole duration.
	mu      sync.RWMutex
	dropped bool
}

// New binds a container name to its collaborators.
func New(name string, records Records, schemas SchemaRegistry, index SearchIndex, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Container{
		name:    name,
		records: records,
		schemas: schemas,
		index:   index,
		newID:   uuid.NewString,
		logger:  logger.With(zap.String("container", name)),
	}
}

// WithIDGenerator replaces the UUID generator.
func (c *Container) WithIDGenerator(gen IDGenerator) *Container {
	if gen != nil {
		c.newID = gen
	}
	return c
}

// Name returns the container name.
func (c *Container) Name() string { return c.name }

// MarkDropped detaches the handle once in-flight mutations finish. Later
// mutations fail with domain.ErrNotFound instead of writing under the name.
func (c *Container) MarkDropped() {
	c.mu.Lock()
	c.dropped = true
	c.mu.Unlock()
}

// acquire takes the mutation side of the handle; the caller must release it.
func (c *Container) acquire() (func(), error) {
	c.mu.RLock()
	if c.dropped {
		c.mu.RUnlock()
		return nil, fmt.Errorf("container %s was dropped: %w", c.name, domain.ErrNotFound)
	}
	return c.mu.RUnlock, nil
}

// Insert stores a new record. An empty id is replaced by a generated one that
// is not yet present; a supplied id that already exists fails with
// domain.ErrDuplicateKey. Returns the identity used.
func (c *Container) Insert(ctx context.Context, rec record.Record, id string) (string, error) {
	release, err := c.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	if id == "" {
		generated, err := c.freshID(ctx)
		if err != nil {
			return "", err
		}
		id = generated
	} else {
		if err := domcontainer.ValidateID(id); err != nil {
			return "", err
		}
		exists, err := c.records.Exists(ctx, c.name, id)
		if err != nil {
			return "", fmt.Errorf("insert: %w", err)
		}
		if exists {
			return "", domain.NewDuplicateKey(c.name, id)
		}
	}

	if err := c.write(ctx, rec, id); err != nil {
		return id, err
	}
	return id, nil
}

func (c *Container) freshID(ctx context.Context) (string, error) {
	for {
		id := c.newID()
		exists, err := c.records.Exists(ctx, c.name, id)
		if err != nil {
			return "", fmt.Errorf("insert: %w", err)
		}
		if !exists {
			return id, nil
		}
		c.logger.Debug("Generated id collision, regenerating", zap.String("id", id))
	}
}

// Update replaces an existing record in full; domain.ErrNotFound when absent.
func (c *Container) Update(ctx context.Context, rec record.Record, id string) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := domcontainer.ValidateID(id); err != nil {
		return err
	}
	exists, err := c.records.Exists(ctx, c.name, id)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if !exists {
		return domain.NewNotFound(c.name, id)
	}
	return c.write(ctx, rec, id)
}

func (c *Container) write(ctx context.Context, rec record.Record, id string) error {
	if err := c.records.Put(ctx, c.name, id, rec); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := c.index.Upsert(ctx, c.name, rec, id); err != nil {
		c.logger.Warn("Search document not updated", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("index %s: %w", id, err)
	}
	return nil
}

// Delete removes a record and its search document; domain.ErrNotFound when absent.
func (c *Container) Delete(ctx context.Context, id string) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	exists, err := c.records.Exists(ctx, c.name, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !exists {
		return domain.NewNotFound(c.name, id)
	}
	if err := c.records.Delete(ctx, c.name, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if err := c.index.Remove(ctx, c.name, id); err != nil {
		c.logger.Warn("Search document not removed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("unindex %s: %w", id, err)
	}
	return nil
}

// Get returns the stored record verbatim; domain.ErrNotFound when absent.
func (c *Container) Get(ctx context.Context, id string) (record.Record, error) {
	rec, err := c.records.Get(ctx, c.name, id)
	if err != nil {
		return record.Record{}, err //nolint:wrapcheck // repository errors carry the identity
	}
	return rec, nil
}

// Contains reports whether id is present in the primary store.
func (c *Container) Contains(ctx context.Context, id string) (bool, error) {
	return c.records.Exists(ctx, c.name, id) //nolint:wrapcheck // repository adds context
}

// Size returns the number of records.
func (c *Container) Size(ctx context.Context) (int, error) {
	return c.records.Count(ctx, c.name) //nolint:wrapcheck // repository adds context
}

// Keys returns every record identity in ascending order.
func (c *Container) Keys(ctx context.Context) ([]string, error) {
	return c.records.IDs(ctx, c.name) //nolint:wrapcheck // repository adds context
}

// Schema returns the current index definitions.
func (c *Container) Schema(ctx context.Context) (domschema.Schema, error) {
	return c.schemas.Get(ctx, c.name) //nolint:wrapcheck // registry adds context
}

// AddIndex registers field under indexType and re-declares the search mapping.
// Records written earlier are not re-projected.
func (c *Container) AddIndex(ctx context.Context, field, indexType string) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()

	def, err := c.schemas.Set(ctx, c.name, field, indexType)
	if err != nil {
		return fmt.Errorf("add index %q: %w", field, err)
	}
	if err := c.index.EnsureMapping(ctx, c.name); err != nil {
		return fmt.Errorf("add index %q: %w", field, err)
	}
	c.logger.Info("Index added",
		zap.String("field", def.Field()),
		zap.String("type", string(def.Type())),
	)
	return nil
}

// Search returns the records matching expr ordered by sortKey (identity when empty).
// The records are resolved from the primary store on access.
func (c *Container) Search(ctx context.Context, expr filter.Expression, sortKey string) (*result.Resolver, error) {
	hits, err := c.index.Query(ctx, c.name, expr, sortKey)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return result.New(c, hits.IDs, hits.Total), nil
}

// SearchFields searches for records whose indexed fields equal every value in fields.
func (c *Container) SearchFields(ctx context.Context, fields map[string]any, sortKey string) (*result.Resolver, error) {
	expr, err := filter.Equals(fields)
	if err != nil {
		return nil, fmt.Errorf("search: %v: %w", err, domain.ErrInvalidFilter)
	}
	return c.Search(ctx, expr, sortKey)
}
