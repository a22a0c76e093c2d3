package query

import (
	"github.com/leapstack-labs/insightql/pkg/core"
)

// Query is a parsed and validated query.
type Query struct {
	Where           Filter
	Options         Options
	Transformations *Transformations // nil when absent

	// Dataset is the single dataset id every qualified key refers to.
	Dataset string
}

// Options holds the projection and ordering of a query.
type Options struct {
	Columns []string
	Order   *Order // nil when absent
}

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "DOWN"
	}
	return "UP"
}

// Order is a sort specification. The string form of ORDER parses to a
// single ascending key.
type Order struct {
	Dir  Direction
	Keys []string
}

// Key is a qualified field key "<dataset>_<field>".
type Key struct {
	Dataset string
	Field   string
}

func (k Key) String() string {
	return core.QualifiedKey(k.Dataset, k.Field)
}

// ParseKey parses a qualified key. The dataset part and the field part must
// both be non-empty.
func ParseKey(s string) (Key, error) {
	ds, field, ok := core.SplitKey(s)
	if !ok {
		return Key{}, core.NewValidationErrorf("invalid key %q: expected <dataset>_<field>", s)
	}
	if ds == "" || field == "" {
		return Key{}, core.NewValidationErrorf("invalid key %q: dataset and field must be non-empty", s)
	}
	return Key{Dataset: ds, Field: field}, nil
}

// isQualified reports whether a column string is written as a qualified key.
func isQualified(s string) bool {
	_, _, ok := core.SplitKey(s)
	return ok
}

// Transformations is a GROUP/APPLY specification.
type Transformations struct {
	Group []Key
	Apply []ApplyRule
}

// AggKind is an aggregation function.
type AggKind string

// Aggregation functions.
const (
	AggMax   AggKind = "MAX"
	AggMin   AggKind = "MIN"
	AggSum   AggKind = "SUM"
	AggAvg   AggKind = "AVG"
	AggCount AggKind = "COUNT"
)

func parseAggKind(s string) (AggKind, bool) {
	switch k := AggKind(s); k {
	case AggMax, AggMin, AggSum, AggAvg, AggCount:
		return k, true
	}
	return "", false
}

// ApplyRule computes Agg over Field for every group, emitted under Alias.
type ApplyRule struct {
	Alias string
	Agg   AggKind
	Field Key
}
