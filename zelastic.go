// Package zelastic is a durable record store organized into named containers.
// Selected record fields are mirrored into a Redis Search index; search hits are
// resolved back to the primary records.
package zelastic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/db/memengine"
	"github.com/kailas-cloud/zelastic/internal/db/pebblekv"
	dbRedis "github.com/kailas-cloud/zelastic/internal/db/redis"
	containerrepo "github.com/kailas-cloud/zelastic/internal/repository/container"
	recordrepo "github.com/kailas-cloud/zelastic/internal/repository/record"
	schemarepo "github.com/kailas-cloud/zelastic/internal/repository/schema"
	searchrepo "github.com/kailas-cloud/zelastic/internal/repository/search"
	storeuc "github.com/kailas-cloud/zelastic/internal/usecase/store"
)

const defaultReadinessTimeout = 10 * time.Second

// Store is the zelastic entry point.
type Store struct {
	kv      *pebblekv.Store
	engine  db.Engine
	adapter *searchrepo.Adapter
	svc     *storeuc.Service
}

// Open opens the primary store and connects the search engine.
func Open(opts ...Option) (*Store, error) {
	cfg := &storeConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.path == "" && !cfg.inMemory {
		return nil, errors.New("zelastic: storage path required (use WithPath or WithInMemory)")
	}

	kv, err := pebblekv.Open(pebblekv.Config{
		Path:     cfg.path,
		InMemory: cfg.inMemory,
		NoSync:   cfg.noSync,
	})
	if err != nil {
		return nil, fmt.Errorf("zelastic: open storage: %w", err)
	}

	engine, err := createEngine(cfg)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	if err := engine.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
		engine.Close()
		_ = kv.Close()
		return nil, fmt.Errorf("zelastic: search engine not ready: %w", err)
	}

	return wireStore(kv, engine, cfg), nil
}

func createEngine(cfg *storeConfig) (db.Engine, error) {
	if cfg.engine != nil {
		return cfg.engine, nil
	}
	if len(cfg.addrs) == 0 {
		return memengine.New(), nil
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("zelastic: create redis store: %w", err)
	}
	return s, nil
}

func wireStore(kv *pebblekv.Store, engine db.Engine, cfg *storeConfig) *Store {
	schemas := schemarepo.NewRegistry(kv)
	adapter := searchrepo.New(engine, schemas, searchrepo.Options{
		KeyPrefix: cfg.keyPrefix,
		Bulk:      cfg.bulk,
		BulkSize:  cfg.bulkSize,
		PageSize:  cfg.pageSize,
		MaxHits:   cfg.maxHits,
	}, cfg.logger)
	svc := storeuc.New(containerrepo.New(kv), recordrepo.New(kv), schemas, adapter, cfg.logger)

	return &Store{kv: kv, engine: engine, adapter: adapter, svc: svc}
}

// Container returns the named container, creating it on first access.
func (s *Store) Container(ctx context.Context, name string) (*Container, error) {
	c, err := s.svc.Container(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Container{c: c}, nil
}

// Exists reports whether the named container has been created.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	return s.svc.Exists(ctx, name)
}

// Drop deletes a container with its records and index definitions.
// Documents already in the search engine are left in place.
func (s *Store) Drop(ctx context.Context, name string) error {
	return s.svc.Drop(ctx, name)
}

// List returns the container names in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.svc.List(ctx)
}

// Meta returns the index definitions of an existing container.
func (s *Store) Meta(ctx context.Context, name string) ([]IndexInfo, error) {
	sch, err := s.svc.Meta(ctx, name)
	if err != nil {
		return nil, err
	}
	return toIndexInfo(sch), nil
}

// Flush sends search mutations queued in bulk mode.
func (s *Store) Flush(ctx context.Context) error {
	return s.adapter.Flush(ctx)
}

// Ping checks both the primary store and the search engine.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err != nil {
		return fmt.Errorf("ping storage: %w", err)
	}
	if err := s.engine.Ping(ctx); err != nil {
		return fmt.Errorf("ping search: %w", err)
	}
	return nil
}

// Close flushes queued search mutations and releases all resources.
func (s *Store) Close(ctx context.Context) error {
	flushErr := s.adapter.Close(ctx)
	s.engine.Close()
	return errors.Join(flushErr, s.kv.Close())
}
