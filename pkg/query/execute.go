package query

import (
	"github.com/leapstack-labs/insightql/pkg/core"
)

// Result is the output of Execute.
type Result struct {
	Rows []core.Row

	Scanned int // records read
	Matched int // records passing WHERE
	Groups  int // groups formed, zero without TRANSFORMATIONS
}

// Execute runs a parsed query over the records of its target dataset.
// The result is all-or-nothing: any failure returns no rows.
func Execute(q *Query, records []core.Record) (*Result, error) {
	res := &Result{Scanned: len(records)}

	var filtered []core.Record
	for _, rec := range records {
		if q.Where.Eval(rec) {
			filtered = append(filtered, rec)
		}
	}
	res.Matched = len(filtered)

	working := filtered
	if q.Transformations != nil {
		grouped, err := Transform(filtered, q.Transformations)
		if err != nil {
			return nil, err
		}
		working = grouped
		res.Groups = len(grouped)
	}

	// projection and ordering keep the row count, so the guard can run first
	if len(working) > core.MaxResultRows {
		return nil, core.NewResultTooLargeError(len(working), core.MaxResultRows)
	}

	rows := Project(working, q.Options.Columns)
	Sort(rows, q.Options.Order)
	res.Rows = rows
	return res, nil
}

// Run parses a JSON query and executes it over records. The caller is
// responsible for passing the records of the dataset the query targets.
func Run(data []byte, records []core.Record) ([]core.Row, error) {
	q, err := Parse(data)
	if err != nil {
		return nil, err
	}
	res, err := Execute(q, records)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}
