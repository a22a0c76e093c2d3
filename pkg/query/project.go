package query

import (
	"slices"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// Project builds one output row per record with the requested columns in
// order. A column present verbatim on the record (GROUP keys and APPLY
// aliases after a transformation) is taken as is; a qualified key otherwise
// resolves its field part.
func Project(rows []core.Record, columns []string) []core.Row {
	out := make([]core.Row, len(rows))
	for i, rec := range rows {
		row := make(core.Row, len(columns))
		for j, col := range columns {
			row[j] = core.Field{Key: col, Value: resolveColumn(rec, col)}
		}
		out[i] = row
	}
	return out
}

func resolveColumn(rec core.Record, col string) core.Value {
	if v, ok := rec[col]; ok {
		return v
	}
	if _, field, ok := core.SplitKey(col); ok {
		return rec.Get(field)
	}
	return core.Null
}

// Sort orders rows in place by the order keys, each key breaking ties of the
// previous ones. The sort is stable.
func Sort(rows []core.Row, order *Order) {
	if order == nil || len(order.Keys) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b core.Row) int {
		for _, k := range order.Keys {
			va, _ := a.Get(k)
			vb, _ := b.Get(k)
			if c := va.Compare(vb); c != 0 {
				if order.Dir == Down {
					return -c
				}
				return c
			}
		}
		return 0
	})
}
