package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/zelastic/internal/domain"
	domcontainer "github.com/kailas-cloud/zelastic/internal/domain/container"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
	"github.com/kailas-cloud/zelastic/internal/usecase/container"
)

// Service owns the namespace of containers and hands out bound Container handles.
type Service struct {
	catalog Catalog
	records Records
	schemas SchemaRegistry
	index   SearchIndex
	logger  *zap.Logger

	mu   sync.Mutex
	open map[string]*container.Container
}

// New creates a store service.
func New(catalog Catalog, records Records, schemas SchemaRegistry, index SearchIndex, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog: catalog,
		records: records,
		schemas: schemas,
		index:   index,
		logger:  logger.Named("store"),
		open:    make(map[string]*container.Container),
	}
}

// Container returns the named container, creating it on first use. Creation
// declares the search mapping once; existing containers never touch the engine.
func (s *Service) Container(ctx context.Context, name string) (*container.Container, error) {
	if err := domcontainer.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.open[name]; ok {
		return c, nil
	}

	_, err := s.catalog.Get(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		if err := s.create(ctx, name); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("open container %s: %w", name, err)
	}

	c := container.New(name, s.records, s.schemas, s.index, s.logger)
	s.open[name] = c
	return c, nil
}

func (s *Service) create(ctx context.Context, name string) error {
	meta, err := domcontainer.New(name)
	if err != nil {
		return err
	}
	if err := s.index.EnsureMapping(ctx, name); err != nil {
		return fmt.Errorf("create container %s: %w", name, err)
	}
	if err := s.catalog.Create(ctx, meta); err != nil {
		return fmt.Errorf("create container %s: %w", name, err)
	}
	s.logger.Info("Container created", zap.String("container", name))
	return nil
}

// Exists reports whether the container has been created.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := s.catalog.Get(ctx, name); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get container %s: %w", name, err)
	}
	return true, nil
}

// Drop deletes a container with all its records and index definitions. The
// search engine mapping and documents are left in place. Handles obtained
// before the drop stop accepting mutations. Dropping an absent container succeeds.
func (s *Service) Drop(ctx context.Context, name string) error {
	if err := domcontainer.ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.open[name]; ok {
		c.MarkDropped()
		delete(s.open, name)
	}
	if err := s.catalog.Delete(ctx, name); err != nil {
		return fmt.Errorf("drop container %s: %w", name, err)
	}
	s.logger.Info("Container dropped", zap.String("container", name))
	return nil
}

// List returns every container name in ascending order.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	return names, nil
}

// Info returns the stored container metadata; domain.ErrNotFound when absent.
func (s *Service) Info(ctx context.Context, name string) (domcontainer.Container, error) {
	c, err := s.catalog.Get(ctx, name)
	if err != nil {
		return domcontainer.Container{}, fmt.Errorf("container %s: %w", name, err)
	}
	return c, nil
}

// Meta returns the index definitions of an existing container.
func (s *Service) Meta(ctx context.Context, name string) (domschema.Schema, error) {
	if _, err := s.Info(ctx, name); err != nil {
		return domschema.Schema{}, err
	}
	sch, err := s.schemas.Get(ctx, name)
	if err != nil {
		return domschema.Schema{}, fmt.Errorf("meta %s: %w", name, err)
	}
	return sch, nil
}
