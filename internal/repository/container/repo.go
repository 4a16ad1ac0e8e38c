package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/domain"
	domcontainer "github.com/kailas-cloud/zelastic/internal/domain/container"
)

// store is the consumer interface for container metadata (ISP).
type store interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Set(ctx context.Context, key, value []byte) error
	DeletePrefix(ctx context.Context, prefixes ...[]byte) error
	Keys(ctx context.Context, prefix []byte) ([][]byte, error)
}

// Repo is the durable catalog of containers.
type Repo struct {
	store store
}

// New creates a container repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores container metadata, overwriting any previous entry.
func (r *Repo) Create(ctx context.Context, c domcontainer.Container) error {
	data, err := containerToJSON(c)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, domain.ContainerKey(c.Name()), data); err != nil {
		return fmt.Errorf("set container %s: %w", c.Name(), err)
	}
	return nil
}

// Get returns container metadata; domain.ErrNotFound when absent.
func (r *Repo) Get(ctx context.Context, name string) (domcontainer.Container, error) {
	data, err := r.store.Get(ctx, domain.ContainerKey(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcontainer.Container{}, domain.ErrNotFound
		}
		return domcontainer.Container{}, fmt.Errorf("get container %s: %w", name, err)
	}
	return containerFromJSON(data)
}

// List returns container names in ascending order.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, domain.ContainersPrefix())
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = domain.ContainerName(k)
	}
	return names, nil
}

// Delete removes the metadata, every record and every index definition of a
// container in one atomic batch. Absent containers are not an error.
func (r *Repo) Delete(ctx context.Context, name string) error {
	err := r.store.DeletePrefix(ctx,
		domain.RecordPrefix(name),
		domain.SchemaPrefix(name),
		domain.ContainerKey(name),
	)
	if err != nil {
		return fmt.Errorf("delete container %s: %w", name, err)
	}
	return nil
}
