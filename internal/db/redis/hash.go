package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/zelastic/internal/db"
)

// ReplaceHash pipelines DEL and HSET so the hash holds exactly fields afterwards.
func (s *Store) ReplaceHash(ctx context.Context, key string, fields map[string]string) error {
	return s.Apply(ctx, []db.HashOp{{Key: key, Fields: fields}})
}

// Apply sends every op in a single DoMulti round-trip, preserving order.
// A replace expands to DEL + HSET; a delete to DEL.
func (s *Store) Apply(ctx context.Context, ops []db.HashOp) error {
	if len(ops) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(ops)*2)
	owners := make([]int, 0, len(ops)*2)
	for i, op := range ops {
		cmds = append(cmds, s.b().Del().Key(op.Key).Build())
		owners = append(owners, i)
		if op.Delete || len(op.Fields) == 0 {
			continue
		}
		cmds = append(cmds, s.hset(op.Key, op.Fields))
		owners = append(owners, i)
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpPipeline, Err: fmt.Errorf("key %s: %w", ops[owners[i]].Key, err)}
		}
	}
	return nil
}

// hset builds HSET with fields in name order, which keeps the wire form deterministic.
func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	cmd := s.b().Hset().Key(key).FieldValue()
	for _, k := range names {
		cmd = cmd.FieldValue(k, fields[k])
	}
	return cmd.Build()
}

// HGetAll returns all fields of a hash.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// Del deletes keys; absent keys are not an error.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cmd := s.b().Del().Key(keys...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}
