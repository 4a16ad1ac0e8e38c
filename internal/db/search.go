package db

// PredicateKind selects how a predicate value is matched.
type PredicateKind int

const (
	// PredicateTag is an exact TAG match.
	PredicateTag PredicateKind = iota
	// PredicateText is a TEXT phrase match.
	PredicateText
	// PredicateNumeric is a NUMERIC range match.
	PredicateNumeric
)

// Predicate is a single engine-level filter clause on an indexed field.
// Numeric bounds may be infinite.
type Predicate struct {
	Field        string
	Kind         PredicateKind
	Value        string
	Min          float64
	Max          float64
	MinExclusive bool
	MaxExclusive bool
}

// Query is the input for a filtered, sorted, paginated search.
// Must clauses are ANDed, Should clauses form one OR group, MustNot clauses are negated.
type Query struct {
	IndexName    string
	Must         []Predicate
	Should       []Predicate
	MustNot      []Predicate
	SortBy       string
	SortDesc     bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// IsMatchAll reports whether the query has no predicates.
func (q *Query) IsMatchAll() bool {
	return len(q.Must) == 0 && len(q.Should) == 0 && len(q.MustNot) == 0
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
