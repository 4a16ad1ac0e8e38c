package store

import (
	"context"

	domcontainer "github.com/kailas-cloud/zelastic/internal/domain/container"
	"github.com/kailas-cloud/zelastic/internal/usecase/container"
)

// Catalog is the durable list of containers.
type Catalog interface {
	Create(ctx context.Context, c domcontainer.Container) error
	Get(ctx context.Context, name string) (domcontainer.Container, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Records is the primary record storage shared by all containers.
type Records = container.Records

// SchemaRegistry is the index definition storage shared by all containers.
type SchemaRegistry = container.SchemaRegistry

// SearchIndex is the search adapter shared by all containers.
type SearchIndex = container.SearchIndex
