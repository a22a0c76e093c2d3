package query

import (
	"slices"
	"sort"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// Keys returns every qualified key the query references, in the order they
// appear: WHERE, COLUMNS, ORDER, GROUP, then APPLY targets. Unqualified
// column and order entries (APPLY aliases) are skipped.
func Keys(q *Query) ([]Key, error) {
	var keys []Key
	if q.Where != nil {
		q.Where.walkKeys(func(k Key) { keys = append(keys, k) })
	}

	addColumn := func(name string) error {
		if !isQualified(name) {
			return nil
		}
		k, err := ParseKey(name)
		if err != nil {
			return err
		}
		keys = append(keys, k)
		return nil
	}
	for _, c := range q.Options.Columns {
		if err := addColumn(c); err != nil {
			return nil, err
		}
	}
	if q.Options.Order != nil {
		for _, c := range q.Options.Order.Keys {
			if err := addColumn(c); err != nil {
				return nil, err
			}
		}
	}

	if t := q.Transformations; t != nil {
		keys = append(keys, t.Group...)
		for _, rule := range t.Apply {
			keys = append(keys, rule.Field)
		}
	}
	return keys, nil
}

// ResolveDataset returns the single dataset id referenced by the query.
func ResolveDataset(q *Query) (string, error) {
	keys, err := Keys(q)
	if err != nil {
		return "", err
	}

	seen := make(map[string]struct{})
	for _, k := range keys {
		seen[k.Dataset] = struct{}{}
	}
	if len(seen) != 1 {
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return "", core.NewValidationErrorf("query must reference exactly one dataset, found %d %v", len(ids), ids)
	}
	for id := range seen {
		return id, nil
	}
	return "", nil
}

// validateColumns checks COLUMNS against the transformation output and ORDER
// against COLUMNS.
func validateColumns(q *Query) error {
	cols := q.Options.Columns

	if t := q.Transformations; t != nil {
		groups := make(map[string]bool, len(t.Group))
		for _, g := range t.Group {
			groups[g.String()] = true
		}
		aliases := make(map[string]bool, len(t.Apply))
		for _, r := range t.Apply {
			aliases[r.Alias] = true
		}

		for _, c := range cols {
			switch {
			case isQualified(c):
				if !groups[c] {
					return core.NewValidationErrorf("column %q must be a GROUP key when TRANSFORMATIONS is present", c)
				}
			case !aliases[c]:
				return core.NewValidationErrorf("column %q is not an APPLY key", c)
			}
		}
	} else {
		for _, c := range cols {
			if !isQualified(c) {
				return core.NewValidationErrorf("column %q is not a key of the form <dataset>_<field>", c)
			}
		}
	}

	if o := q.Options.Order; o != nil {
		for _, k := range o.Keys {
			if !slices.Contains(cols, k) {
				return core.NewValidationErrorf("ORDER key %q must be in COLUMNS", k)
			}
		}
	}
	return nil
}
