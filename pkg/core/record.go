package core

import "strings"

// Record is one row of a dataset: field name to scalar value.
type Record map[string]Value

// Get resolves a field. An exact match wins; otherwise the first field whose
// name matches case-insensitively is used. Absent fields resolve to Null.
//
// Filtering, grouping, aggregation and projection all read fields through Get
// so the typing rules live in one place.
func (r Record) Get(field string) Value {
	if v, ok := r[field]; ok {
		return v
	}
	for k, v := range r {
		if strings.EqualFold(k, field) {
			return v
		}
	}
	return Null
}

// Has reports whether the record carries the field verbatim.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}
