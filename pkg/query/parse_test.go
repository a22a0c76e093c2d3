package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/insightql/pkg/core"
)

func TestParse_Valid(t *testing.T) {
	q, err := Parse([]byte(`{
		"WHERE": {"AND": [
			{"GT": {"sections_avg": 97}},
			{"NOT": {"IS": {"sections_dept": "math*"}}}
		]},
		"OPTIONS": {
			"COLUMNS": ["sections_dept", "maxAvg"],
			"ORDER": {"dir": "DOWN", "keys": ["maxAvg", "sections_dept"]}
		},
		"TRANSFORMATIONS": {
			"GROUP": ["sections_dept"],
			"APPLY": [{"maxAvg": {"MAX": "sections_avg"}}]
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "sections", q.Dataset)
	assert.Equal(t, []string{"sections_dept", "maxAvg"}, q.Options.Columns)
	require.NotNil(t, q.Options.Order)
	assert.Equal(t, Down, q.Options.Order.Dir)
	assert.Equal(t, []string{"maxAvg", "sections_dept"}, q.Options.Order.Keys)

	and, ok := q.Where.(And)
	require.True(t, ok)
	require.Len(t, and.Filters, 2)
	assert.Equal(t, Compare{Op: OpGT, Key: Key{Dataset: "sections", Field: "avg"}, Value: 97}, and.Filters[0])

	not, ok := and.Filters[1].(Not)
	require.True(t, ok)
	assert.Equal(t, Match{Key: Key{Dataset: "sections", Field: "dept"}, Pattern: Pattern{Mode: MatchPrefix, Text: "math"}}, not.Filter)

	require.NotNil(t, q.Transformations)
	assert.Equal(t, []Key{{Dataset: "sections", Field: "dept"}}, q.Transformations.Group)
	assert.Equal(t, []ApplyRule{{Alias: "maxAvg", Agg: AggMax, Field: Key{Dataset: "sections", Field: "avg"}}}, q.Transformations.Apply)
}

func TestParse_OrderString(t *testing.T) {
	q, err := Parse([]byte(`{"WHERE": {}, "OPTIONS": {"COLUMNS": ["rooms_name", "rooms_seats"], "ORDER": "rooms_seats"}}`))
	require.NoError(t, err)
	assert.Equal(t, "rooms", q.Dataset)
	assert.Equal(t, True{}, q.Where)
	assert.Equal(t, &Order{Dir: Up, Keys: []string{"rooms_seats"}}, q.Options.Order)
	assert.Nil(t, q.Transformations)
}

func TestParse_FieldWithSeparator(t *testing.T) {
	q, err := Parse([]byte(`{"WHERE": {}, "OPTIONS": {"COLUMNS": ["rooms_furniture_type"]}}`))
	require.NoError(t, err)
	assert.Equal(t, "rooms", q.Dataset)
}

func TestParse_EmptyApply(t *testing.T) {
	q, err := Parse([]byte(`{"WHERE": {}, "OPTIONS": {"COLUMNS": ["sections_dept"]},
		"TRANSFORMATIONS": {"GROUP": ["sections_dept"], "APPLY": []}}`))
	require.NoError(t, err)
	assert.Empty(t, q.Transformations.Apply)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"not json", `{`, "not valid JSON"},
		{"not an object", `[]`, "not an object"},
		{"null", `null`, "not an object"},
		{"missing OPTIONS", `{"WHERE": {}}`, "missing OPTIONS"},
		{"OPTIONS not object", `{"WHERE": {}, "OPTIONS": []}`, "OPTIONS is not an object"},
		{"missing WHERE", `{"OPTIONS": {"COLUMNS": ["a_b"]}}`, "missing WHERE"},
		{"WHERE array", `{"WHERE": [], "OPTIONS": {"COLUMNS": ["a_b"]}}`, "WHERE is not an object"},
		{"missing COLUMNS", `{"WHERE": {}, "OPTIONS": {}}`, "missing COLUMNS"},
		{"COLUMNS not array", `{"WHERE": {}, "OPTIONS": {"COLUMNS": "a_b"}}`, "must be an array"},
		{"empty COLUMNS", `{"WHERE": {}, "OPTIONS": {"COLUMNS": []}}`, "must not be empty"},
		{"non-string column", `{"WHERE": {}, "OPTIONS": {"COLUMNS": [1]}}`, "only strings"},
		{"unknown top-level key", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "LIMIT": 1}`, "unexpected key \"LIMIT\""},
		{"unknown OPTIONS key", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"], "SORT": "a_b"}}`, "unexpected key \"SORT\""},
		{"unknown operator", `{"WHERE": {"LIKE": {"a_b": "x"}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "unknown filter operator"},
		{"two operators", `{"WHERE": {"GT": {"a_b": 1}, "LT": {"a_b": 5}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "exactly one operator"},
		{"empty AND", `{"WHERE": {"AND": []}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "non-empty array"},
		{"OR not array", `{"WHERE": {"OR": {"GT": {"a_b": 1}}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "non-empty array"},
		{"non-numeric comparison", `{"WHERE": {"GT": {"a_b": "97"}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "requires a numeric value"},
		{"non-string pattern", `{"WHERE": {"IS": {"a_b": 5}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "string pattern"},
		{"wildcard in middle", `{"WHERE": {"IS": {"a_b": "c*c"}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "wildcard"},
		{"comparison with two keys", `{"WHERE": {"EQ": {"a_b": 1, "a_c": 2}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "exactly one key"},
		{"unqualified filter key", `{"WHERE": {"EQ": {"avg": 1}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "invalid key"},
		{"empty dataset prefix", `{"WHERE": {"EQ": {"_avg": 1}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "must be non-empty"},
		{"two datasets", `{"WHERE": {"GT": {"datasetA_dept": 1}}, "OPTIONS": {"COLUMNS": ["datasetB_avg"]}}`, "exactly one dataset"},
		{"two datasets in columns", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["datasetA_dept", "datasetB_avg"]}}`, "exactly one dataset"},
		{"two datasets in NOT", `{"WHERE": {"NOT": {"IS": {"b_x": "y"}}}, "OPTIONS": {"COLUMNS": ["a_b"]}}`, "exactly one dataset"},
		{"unqualified column without transformations", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b", "count"]}}`, "is not a key"},
		{"only unqualified columns", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["count"]}}`, "exactly one dataset"},
		{"ORDER key not in COLUMNS", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"], "ORDER": "a_c"}}`, "must be in COLUMNS"},
		{"ORDER number", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"], "ORDER": 1}}`, "string or an object"},
		{"ORDER bad dir", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"], "ORDER": {"dir": "SIDEWAYS", "keys": ["a_b"]}}}`, "UP"},
		{"ORDER missing dir", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"], "ORDER": {"keys": ["a_b"]}}}`, "ORDER.dir"},
		{"ORDER empty keys", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"], "ORDER": {"dir": "UP", "keys": []}}}`, "non-empty array"},
		{"ORDER missing keys", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"], "ORDER": {"dir": "UP"}}}`, "non-empty array"},
		{"TRANSFORMATIONS not object", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": []}`, "TRANSFORMATIONS is not an object"},
		{"missing GROUP", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"APPLY": []}}`, "missing GROUP"},
		{"empty GROUP", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": [], "APPLY": []}}`, "GROUP must not be empty"},
		{"missing APPLY", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"]}}`, "missing APPLY"},
		{"APPLY not array", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": {}}}`, "APPLY must be an array"},
		{"APPLY alias with separator", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": [{"max_avg": {"MAX": "a_c"}}]}}`, "must not contain"},
		{"APPLY empty alias", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": [{"": {"MAX": "a_c"}}]}}`, "must not be empty"},
		{"APPLY duplicate alias", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": [{"m": {"MAX": "a_c"}}, {"m": {"MIN": "a_c"}}]}}`, "duplicate APPLY key"},
		{"APPLY unknown token", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": [{"m": {"MEDIAN": "a_c"}}]}}`, "invalid APPLY token"},
		{"APPLY two aggregations", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": [{"m": {"MAX": "a_c", "MIN": "a_c"}}]}}`, "exactly one aggregation"},
		{"APPLY target not a key", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": [{"m": {"MAX": "avg"}}]}}`, "invalid key"},
		{"APPLY target other dataset", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": [{"m": {"MAX": "z_c"}}]}}`, "exactly one dataset"},
		{"GROUP other dataset", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b"]}, "TRANSFORMATIONS": {"GROUP": ["a_b", "z_b"], "APPLY": []}}`, "exactly one dataset"},
		{"column not in GROUP", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b", "a_c"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": []}}`, "must be a GROUP key"},
		{"column not an APPLY key", `{"WHERE": {}, "OPTIONS": {"COLUMNS": ["a_b", "m"]}, "TRANSFORMATIONS": {"GROUP": ["a_b"], "APPLY": []}}`, "is not an APPLY key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse([]byte(tt.query))
			require.Error(t, err)
			assert.Nil(t, q)
			assert.True(t, core.IsValidation(err), "expected a validation error, got %T", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKeys(t *testing.T) {
	q, err := Parse([]byte(`{
		"WHERE": {"OR": [{"IS": {"s_dept": "a*"}}, {"LT": {"s_avg": 50}}]},
		"OPTIONS": {"COLUMNS": ["s_dept", "n"], "ORDER": "n"},
		"TRANSFORMATIONS": {"GROUP": ["s_dept"], "APPLY": [{"n": {"COUNT": "s_uuid"}}]}
	}`))
	require.NoError(t, err)

	keys, err := Keys(q)
	require.NoError(t, err)

	var names []string
	for _, k := range keys {
		names = append(names, k.String())
	}
	assert.Equal(t, []string{"s_dept", "s_avg", "s_dept", "s_dept", "s_uuid"}, names)
}
