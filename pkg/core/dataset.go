package core

import (
	"fmt"
	"strings"
)

// KeySeparator splits a qualified key into dataset id and field.
const KeySeparator = "_"

// MaxResultRows is the largest result a query may return.
const MaxResultRows = 5000

// DatasetKind identifies the shape of a dataset's records.
type DatasetKind string

// Dataset kinds.
const (
	KindSections DatasetKind = "sections"
	KindRooms    DatasetKind = "rooms"
)

// SectionsFields is the canonical field set of a sections record.
var SectionsFields = []string{"dept", "id", "avg", "instructor", "title", "pass", "fail", "audit", "uuid", "year"}

// RoomsFields is the canonical field set of a rooms record.
var RoomsFields = []string{
	"fullname", "shortname", "number", "name", "address",
	"lat", "lon", "seats", "type", "furniture", "href",
}

// ParseDatasetKind parses a kind name, case-insensitively.
func ParseDatasetKind(s string) (DatasetKind, error) {
	switch DatasetKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSections:
		return KindSections, nil
	case KindRooms:
		return KindRooms, nil
	}
	return "", NewValidationErrorf("unknown dataset kind %q (want %s or %s)", s, KindSections, KindRooms)
}

// Fields returns the canonical field set for the kind, or nil when unknown.
func (k DatasetKind) Fields() []string {
	switch k {
	case KindSections:
		return SectionsFields
	case KindRooms:
		return RoomsFields
	}
	return nil
}

// Valid reports whether k is a known kind.
func (k DatasetKind) Valid() bool {
	return k == KindSections || k == KindRooms
}

// DatasetInfo is the listing view of a dataset.
type DatasetInfo struct {
	ID       string      `json:"id"`
	Kind     DatasetKind `json:"kind"`
	RowCount int         `json:"numRows"`
}

// Dataset is a named, kinded, ordered collection of records.
// Rows must not be mutated once the dataset is registered.
type Dataset struct {
	ID   string
	Kind DatasetKind
	Rows []Record
}

// Info returns the listing view of the dataset.
func (d *Dataset) Info() DatasetInfo {
	return DatasetInfo{ID: d.ID, Kind: d.Kind, RowCount: len(d.Rows)}
}

// ValidateDatasetID checks the id shape: non-empty, not whitespace-only and
// free of the key separator.
func ValidateDatasetID(id string) error {
	if strings.TrimSpace(id) == "" {
		return NewValidationError("dataset id must not be empty or whitespace")
	}
	if strings.Contains(id, KeySeparator) {
		return NewValidationErrorf("dataset id %q must not contain %q", id, KeySeparator)
	}
	return nil
}

// SplitKey splits a qualified key "<dataset>_<field>" at the first separator.
// ok is false when the key has no separator.
func SplitKey(key string) (dataset, field string, ok bool) {
	i := strings.Index(key, KeySeparator)
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// QualifiedKey joins a dataset id and field.
func QualifiedKey(dataset, field string) string {
	return fmt.Sprintf("%s%s%s", dataset, KeySeparator, field)
}
