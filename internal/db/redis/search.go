package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/zelastic/internal/db"
)

// Search runs a filtered, sorted, paginated FT.SEARCH.
// Without ReturnFields the query uses NOCONTENT and entries carry only keys.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	args, err := buildSearchArgs(q)
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	if len(q.ReturnFields) == 0 {
		return parseKeysResult(raw)
	}
	return parseListResult(raw)
}

func buildSearchArgs(q *db.Query) ([]string, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, errors.New("offset and limit must be non-negative")
	}

	args := []string{q.IndexName, buildQuery(q)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	} else {
		args = append(args, "NOCONTENT")
	}

	if q.SortBy != "" {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args, nil
}

// --- Result parsing ---

func parseTotal(raw []rueidis.RedisMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return int(total), nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseKeysResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)-1)
	// 1-stride: [total, key1, key2, ...]
	for i := 1; i < len(raw); i++ {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{Key: key})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildQuery translates the predicate groups into an FT.SEARCH query string; no predicates means "*".
func buildQuery(q *db.Query) string {
	if q.IsMatchAll() {
		return "*"
	}

	var parts []string

	for _, p := range q.Must {
		parts = append(parts, buildPredicate(p))
	}

	if shouldParts := buildShouldGroup(q.Should); shouldParts != "" {
		parts = append(parts, shouldParts)
	}

	for _, p := range q.MustNot {
		parts = append(parts, "-"+buildPredicate(p))
	}

	if len(q.Must) == 0 && len(q.Should) == 0 {
		// a purely negative query needs a positive anchor
		parts = append([]string{"*"}, parts...)
	}

	return strings.Join(parts, " ")
}

func buildPredicate(p db.Predicate) string {
	switch p.Kind {
	case db.PredicateTag:
		return buildTagFilter(p.Field, p.Value)
	case db.PredicateText:
		return fmt.Sprintf("@%s:(%s)", p.Field, escapeQuery(p.Value))
	case db.PredicateNumeric:
		return buildNumericFilter(p)
	default:
		return ""
	}
}

func buildShouldGroup(preds []db.Predicate) string {
	if len(preds) == 0 {
		return ""
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, buildPredicate(p))
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func buildTagFilter(key, value string) string {
	escaped := tagEscaper.Replace(value)
	return fmt.Sprintf("@%s:{%s}", key, escaped)
}

func buildNumericFilter(p db.Predicate) string {
	minBound := formatBound(p.Min, "-inf")
	if p.MinExclusive && !math.IsInf(p.Min, 0) {
		minBound = "(" + minBound
	}
	maxBound := formatBound(p.Max, "+inf")
	if p.MaxExclusive && !math.IsInf(p.Max, 0) {
		maxBound = "(" + maxBound
	}
	return fmt.Sprintf("@%s:[%s %s]", p.Field, minBound, maxBound)
}

func formatBound(v float64, inf string) string {
	if math.IsInf(v, 0) {
		return inf
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	"?", "\\?",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)
