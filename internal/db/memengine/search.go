package memengine

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/zelastic/internal/db"
)

// Search evaluates q against the documents covered by its index.
func (e *Engine) Search(_ context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, errors.New("offset and limit must be non-negative")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	def, ok := e.indexes[q.IndexName]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}

	var matched []hashItem
	e.scan(def, func(it hashItem) {
		if matches(def, q, it.fields) {
			matched = append(matched, it)
		}
	})

	if q.SortBy != "" {
		sortItems(matched, def, q.SortBy, q.SortDesc)
	}

	res := &db.SearchResult{Total: len(matched)}
	if q.Offset >= len(matched) {
		return res, nil
	}
	end := min(q.Offset+q.Limit, len(matched))
	for _, it := range matched[q.Offset:end] {
		entry := db.SearchEntry{Key: it.key}
		if len(q.ReturnFields) > 0 {
			entry.Fields = make(map[string]string, len(q.ReturnFields))
			for _, f := range q.ReturnFields {
				if v, ok := it.fields[f]; ok {
					entry.Fields[f] = v
				}
			}
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func matches(def *db.IndexDefinition, q *db.Query, fields map[string]string) bool {
	for _, p := range q.Must {
		if !matchPredicate(def, p, fields) {
			return false
		}
	}
	if len(q.Should) > 0 {
		hit := false
		for _, p := range q.Should {
			if matchPredicate(def, p, fields) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, p := range q.MustNot {
		if matchPredicate(def, p, fields) {
			return false
		}
	}
	return true
}

// matchPredicate applies p to a document; fields not declared in the index never match.
func matchPredicate(def *db.IndexDefinition, p db.Predicate, fields map[string]string) bool {
	f, ok := def.Field(p.Field)
	if !ok {
		return false
	}
	raw, ok := fields[f.Name]
	if !ok {
		return false
	}

	switch p.Kind {
	case db.PredicateTag:
		if f.Type != db.IndexFieldTag {
			return false
		}
		return matchTag(f, raw, p.Value)
	case db.PredicateText:
		if f.Type != db.IndexFieldText {
			return false
		}
		return matchText(raw, p.Value)
	case db.PredicateNumeric:
		if f.Type != db.IndexFieldNumeric {
			return false
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return false
		}
		return inRange(n, p)
	default:
		return false
	}
}

func matchTag(f db.IndexField, raw, want string) bool {
	tags := []string{raw}
	if f.TagSeparator != "" {
		tags = strings.Split(raw, f.TagSeparator)
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if f.TagCaseSensitive {
			if tag == want {
				return true
			}
		} else if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

// matchText requires every query term to occur among the document terms.
func matchText(raw, query string) bool {
	terms := tokenize(query)
	if len(terms) == 0 {
		return false
	}
	doc := make(map[string]bool)
	for _, t := range tokenize(raw) {
		doc[t] = true
	}
	for _, t := range terms {
		if !doc[t] {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func inRange(n float64, p db.Predicate) bool {
	if p.MinExclusive {
		if n <= p.Min {
			return false
		}
	} else if n < p.Min {
		return false
	}
	if p.MaxExclusive {
		return n < p.Max
	}
	return n <= p.Max
}

// sortItems orders by the sort field; documents without it go last, ties keep key order.
func sortItems(items []hashItem, def *db.IndexDefinition, field string, desc bool) {
	numeric := false
	if f, ok := def.Field(field); ok {
		numeric = f.Type == db.IndexFieldNumeric
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, aok := items[i].fields[field]
		b, bok := items[j].fields[field]
		if !aok || !bok {
			return aok && !bok
		}
		c := compareValues(a, b, numeric)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b string, numeric bool) int {
	if numeric {
		x, errA := strconv.ParseFloat(a, 64)
		y, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a, b)
}
