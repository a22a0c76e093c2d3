package query

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// group is one partition of the filtered rows.
type group struct {
	rows []core.Record
}

// Transform partitions rows by the GROUP tuple and computes every APPLY rule
// per group. Output rows are keyed by the qualified GROUP keys and the APPLY
// aliases. Groups are emitted in first-seen order.
func Transform(rows []core.Record, t *Transformations) ([]core.Record, error) {
	index := make(map[string]int)
	var groups []*group

	var buf strings.Builder
	for _, rec := range rows {
		buf.Reset()
		for _, g := range t.Group {
			appendTupleKey(&buf, rec.Get(g.Field))
		}
		key := buf.String()

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &group{})
		}
		groups[i].rows = append(groups[i].rows, rec)
	}

	out := make([]core.Record, 0, len(groups))
	for _, grp := range groups {
		rec := make(core.Record, len(t.Group)+len(t.Apply))
		first := grp.rows[0]
		for _, g := range t.Group {
			rec[g.String()] = first.Get(g.Field)
		}
		for _, rule := range t.Apply {
			v, err := Aggregate(rule.Agg, rule.Field, grp.rows)
			if err != nil {
				return nil, err
			}
			rec[rule.Alias] = v
		}
		out = append(out, rec)
	}
	return out, nil
}

// appendTupleKey encodes one tuple element. The type tag and length prefix
// keep tuples like ("a|b") and ("a", "b"), or 98 and "98", apart.
func appendTupleKey(b *strings.Builder, v core.Value) {
	b.WriteString(strconv.Itoa(int(v.Type)))
	b.WriteByte(':')
	s := v.String()
	if v.IsNull() {
		s = ""
	}
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// Aggregate computes one aggregation over the field of every row.
// MAX, MIN, SUM and AVG require every value to be a finite number.
// SUM and AVG accumulate in decimal and round to two places.
func Aggregate(kind AggKind, field Key, rows []core.Record) (core.Value, error) {
	if kind == AggCount {
		distinct := make(map[string]struct{}, len(rows))
		for _, rec := range rows {
			distinct[rec.Get(field.Field).String()] = struct{}{}
		}
		return core.NewNumber(float64(len(distinct))), nil
	}

	nums := make([]float64, 0, len(rows))
	for _, rec := range rows {
		v := rec.Get(field.Field)
		if !v.IsNumber() {
			return core.Null, core.NewValidationErrorf("%s on %s requires numeric values, found %s", kind, field, v.Type)
		}
		nums = append(nums, v.Num)
	}
	if len(nums) == 0 {
		return core.Null, nil
	}

	switch kind {
	case AggMax, AggMin:
		best := nums[0]
		for _, n := range nums[1:] {
			if (kind == AggMax && n > best) || (kind == AggMin && n < best) {
				best = n
			}
		}
		return core.NewNumber(best), nil

	case AggSum, AggAvg:
		total := decimal.Zero
		for _, n := range nums {
			total = total.Add(decimal.NewFromFloat(n))
		}
		if kind == AggAvg {
			total = total.Div(decimal.NewFromInt(int64(len(nums))))
		}
		return core.NewNumber(total.Round(2).InexactFloat64()), nil
	}

	return core.Null, core.NewValidationErrorf("invalid APPLY token %q", kind)
}
