package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/domain"
	"github.com/kailas-cloud/zelastic/internal/domain/record"
	domschema "github.com/kailas-cloud/zelastic/internal/domain/schema"
	"github.com/kailas-cloud/zelastic/internal/domain/search/filter"
	"github.com/kailas-cloud/zelastic/internal/metrics"
)

// Defaults for Options.
const (
	DefaultBulkSize = 400
	DefaultPageSize = 1000
	DefaultMaxHits  = 10000
)

// engine is the consumer interface for the search engine (ISP).
type engine interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	ReplaceHash(ctx context.Context, key string, fields map[string]string) error
	Apply(ctx context.Context, ops []db.HashOp) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Search(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

// schemaSource yields the index definitions of a container.
type schemaSource interface {
	Get(ctx context.Context, container string) (domschema.Schema, error)
}

// Options tunes the adapter.
type Options struct {
	// KeyPrefix namespaces hashes and indexes (default "zelastic:").
	KeyPrefix string
	// Bulk queues mutations and sends them in pipelined batches of BulkSize.
	Bulk     bool
	BulkSize int
	// PageSize is the LIMIT of a single FT.SEARCH page.
	PageSize int
	// MaxHits caps the number of ids a query collects.
	MaxHits int
}

// Hits is the ordered outcome of a query.
type Hits struct {
	IDs []string
	// Total is the engine-reported match count; it may exceed len(IDs) when MaxHits truncates.
	Total int
}

// Adapter mirrors container records into per-container FT indexes and queries them.
type Adapter struct {
	engine  engine
	schemas schemaSource
	opts    Options
	logger  *zap.Logger

	mu    sync.Mutex
	queue []db.HashOp
}

// New creates a search adapter.
func New(e engine, schemas schemaSource, opts Options, logger *zap.Logger) *Adapter {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.BulkSize <= 0 {
		opts.BulkSize = DefaultBulkSize
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxHits <= 0 {
		opts.MaxHits = DefaultMaxHits
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		engine:  e,
		schemas: schemas,
		opts:    opts,
		logger:  logger.Named("search"),
	}
}

// KeyPrefix returns the configured namespace prefix.
func (a *Adapter) KeyPrefix() string { return a.opts.KeyPrefix }

// EnsureMapping declares the container index from its current schema.
// An existing index is dropped (documents kept) and declared again.
func (a *Adapter) EnsureMapping(ctx context.Context, container string) error {
	sch, err := a.schemas.Get(ctx, container)
	if err != nil {
		return fmt.Errorf("load schema %s: %w", container, err)
	}
	def, err := a.buildIndex(container, sch)
	if err != nil {
		return fmt.Errorf("build index %s: %w", container, err)
	}

	err = a.createIndex(ctx, def)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}

	a.logger.Info("Redeclaring mapping",
		zap.String("container", container),
		zap.Int("fields", sch.Len()),
	)

	start := time.Now()
	err = a.engine.DropIndex(ctx, def.Name)
	metrics.ObserveSearchOp("drop_index", start, err)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", def.Name, err)
	}

	if err := a.createIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

func (a *Adapter) createIndex(ctx context.Context, def *db.IndexDefinition) error {
	start := time.Now()
	err := a.engine.CreateIndex(ctx, def)
	metrics.ObserveSearchOp("create_index", start, err)
	return err //nolint:wrapcheck // callers add context
}

// buildIndex maps the schema onto an FT index definition through the type table.
func (a *Adapter) buildIndex(container string, sch domschema.Schema) (*db.IndexDefinition, error) {
	b := db.NewIndex(IndexName(a.opts.KeyPrefix, container)).
		Prefix(docPrefix(a.opts.KeyPrefix, container)).
		TagWithOpts(FieldKey, TagSeparator, true, true).
		TagWithOpts(FieldContainer, TagSeparator, true, false)
	for _, d := range sch.Definitions() {
		b.Field(typeTable[d.Type()].field(d.Field()))
	}
	return b.Build()
}

// Upsert replaces the search document of a record with the schema-selected fields.
func (a *Adapter) Upsert(ctx context.Context, container string, rec record.Record, id string) error {
	sch, err := a.schemas.Get(ctx, container)
	if err != nil {
		return fmt.Errorf("load schema %s: %w", container, err)
	}

	op := db.HashOp{
		Key:    DocKey(a.opts.KeyPrefix, container, id),
		Fields: a.buildDocument(container, id, rec, sch),
	}
	if a.opts.Bulk {
		return a.enqueue(ctx, op)
	}

	start := time.Now()
	err = a.engine.ReplaceHash(ctx, op.Key, op.Fields)
	metrics.ObserveSearchOp("upsert", start, err)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", op.Key, err)
	}
	return nil
}

// buildDocument encodes the indexed fields of rec; values that cannot be encoded as
// the declared type are left out of the document.
func (a *Adapter) buildDocument(container, id string, rec record.Record, sch domschema.Schema) map[string]string {
	doc := make(map[string]string, sch.Len()+2)
	doc[FieldKey] = id
	doc[FieldContainer] = container

	for _, d := range sch.Definitions() {
		v, ok := rec.Get(d.Field())
		if !ok || v.IsNull() {
			continue
		}
		encoded, ok := typeTable[d.Type()].encode(v)
		if !ok {
			a.logger.Debug("Skipping unencodable value",
				zap.String("container", container),
				zap.String("id", id),
				zap.String("field", d.Field()),
				zap.String("type", string(d.Type())),
				zap.Stringer("kind", v.Kind()),
			)
			continue
		}
		doc[d.Field()] = encoded
	}
	return doc
}

// MappingExists reports whether the engine currently holds the container index.
func (a *Adapter) MappingExists(ctx context.Context, container string) (bool, error) {
	name := IndexName(a.opts.KeyPrefix, container)
	start := time.Now()
	ok, err := a.engine.IndexExists(ctx, name)
	metrics.ObserveSearchOp("index_exists", start, err)
	if err != nil {
		return false, fmt.Errorf("index %s: %w", name, err)
	}
	return ok, nil
}

// Document returns the search document of a record with str values decoded;
// domain.ErrNotFound when the engine holds none. Queued bulk mutations are not visible.
func (a *Adapter) Document(ctx context.Context, container, id string) (map[string]string, error) {
	sch, err := a.schemas.Get(ctx, container)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", container, err)
	}

	key := DocKey(a.opts.KeyPrefix, container, id)
	start := time.Now()
	fields, err := a.engine.HGetAll(ctx, key)
	metrics.ObserveSearchOp("document", start, err)
	if errors.Is(err, db.ErrKeyNotFound) || (err == nil && len(fields) == 0) {
		return nil, domain.NewNotFound(container, id)
	}
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", key, err)
	}

	for name, raw := range fields {
		def, ok := sch.Lookup(name)
		if !ok || def.Type() != domschema.Str {
			continue
		}
		if decoded, ok := decodeStr(raw); ok {
			fields[name] = decoded
		}
	}
	return fields, nil
}

// Remove deletes the search document of a record; a missing document is not an error.
func (a *Adapter) Remove(ctx context.Context, container, id string) error {
	key := DocKey(a.opts.KeyPrefix, container, id)
	if a.opts.Bulk {
		return a.enqueue(ctx, db.HashOp{Key: key, Delete: true})
	}

	start := time.Now()
	err := a.engine.Del(ctx, key)
	metrics.ObserveSearchOp("remove", start, err)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Query returns the ids of the container records matching expr, ordered ascending by
// sortKey (record identity when empty).
func (a *Adapter) Query(
	ctx context.Context, container string, expr filter.Expression, sortKey string,
) (*Hits, error) {
	sch, err := a.schemas.Get(ctx, container)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", container, err)
	}

	q, err := buildQuery(sch, expr, sortKey)
	if err != nil {
		return nil, err
	}
	q.IndexName = IndexName(a.opts.KeyPrefix, container)
	q.ReturnFields = []string{FieldKey}

	hits := &Hits{}
	for {
		q.Limit = min(a.opts.PageSize, a.opts.MaxHits-len(hits.IDs))

		start := time.Now()
		res, err := a.engine.Search(ctx, q)
		metrics.ObserveSearchOp("query", start, err)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", container, err)
		}

		if q.Offset == 0 {
			hits.Total = res.Total
			if hits.IDs == nil {
				hits.IDs = make([]string, 0, min(res.Total, a.opts.MaxHits))
			}
		}
		for _, e := range res.Entries {
			hits.IDs = append(hits.IDs, a.entryID(e))
		}

		q.Offset += len(res.Entries)
		if len(res.Entries) == 0 || q.Offset >= res.Total || len(hits.IDs) >= a.opts.MaxHits {
			break
		}
	}
	return hits, nil
}

func (a *Adapter) entryID(e db.SearchEntry) string {
	if id, ok := e.Fields[FieldKey]; ok {
		return id
	}
	if _, id, ok := ParseDocKey(a.opts.KeyPrefix, e.Key); ok {
		return id
	}
	return e.Key
}

// buildQuery translates a filter expression into engine predicates typed by the schema.
func buildQuery(sch domschema.Schema, expr filter.Expression, sortKey string) (*db.Query, error) {
	q := &db.Query{SortBy: FieldKey}
	if sortKey != "" && sortKey != FieldKey {
		if _, ok := sch.Lookup(sortKey); !ok {
			return nil, fmt.Errorf("sort by %q: field is not indexed: %w", sortKey, domain.ErrInvalidFilter)
		}
		q.SortBy = sortKey
	}

	var err error
	if q.Must, err = buildPredicates(sch, expr.Must()); err != nil {
		return nil, err
	}
	if q.Should, err = buildPredicates(sch, expr.Should()); err != nil {
		return nil, err
	}
	if q.MustNot, err = buildPredicates(sch, expr.MustNot()); err != nil {
		return nil, err
	}
	return q, nil
}

func buildPredicates(sch domschema.Schema, conds []filter.Condition) ([]db.Predicate, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	preds := make([]db.Predicate, 0, len(conds))
	for _, c := range conds {
		p, err := buildPredicate(sch, c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func buildPredicate(sch domschema.Schema, c filter.Condition) (db.Predicate, error) {
	def, ok := sch.Lookup(c.Key())
	if !ok {
		return db.Predicate{}, fmt.Errorf("filter %q: field is not indexed: %w", c.Key(), domain.ErrInvalidFilter)
	}
	spec := typeTable[def.Type()]

	if c.IsRange() {
		if !def.Type().IsNumeric() {
			return db.Predicate{}, fmt.Errorf("filter %q: range on %s field: %w", c.Key(), def.Type(), domain.ErrInvalidFilter)
		}
		return rangePredicate(c.Key(), c.Range()), nil
	}

	encoded, ok := spec.encode(c.Match())
	if !ok {
		return db.Predicate{}, fmt.Errorf("filter %q: value %s is not a valid %s: %w",
			c.Key(), c.Match(), def.Type(), domain.ErrInvalidFilter)
	}

	p := db.Predicate{Field: c.Key(), Kind: spec.match, Value: encoded}
	if spec.match == db.PredicateNumeric {
		n, err := parseEncodedNumber(encoded)
		if err != nil {
			return db.Predicate{}, fmt.Errorf("filter %q: %w", c.Key(), domain.ErrInvalidFilter)
		}
		p.Min, p.Max = n, n
	}
	return p, nil
}

func rangePredicate(field string, r *filter.Range) db.Predicate {
	p := db.Predicate{Field: field, Kind: db.PredicateNumeric, Min: math.Inf(-1), Max: math.Inf(1)}
	switch {
	case r.GT() != nil:
		p.Min, p.MinExclusive = *r.GT(), true
	case r.GTE() != nil:
		p.Min = *r.GTE()
	}
	switch {
	case r.LT() != nil:
		p.Max, p.MaxExclusive = *r.LT(), true
	case r.LTE() != nil:
		p.Max = *r.LTE()
	}
	return p
}
