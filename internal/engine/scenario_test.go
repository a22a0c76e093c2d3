package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// scenarioTest is a query run against the fixture sections dataset.
type scenarioTest struct {
	name    string
	query   string
	want    string           // expected rows as JSON, ordered
	wantErr func(error) bool // nil = success
}

var scenarioTests = []scenarioTest{
	{
		name: "filter and order",
		query: `{
			"WHERE": {"AND": [{"IS": {"sections_dept": "cpsc"}}, {"NOT": {"LT": {"sections_avg": 86}}}]},
			"OPTIONS": {"COLUMNS": ["sections_id", "sections_avg"], "ORDER": {"dir": "DOWN", "keys": ["sections_avg"]}}
		}`,
		want: `[{"sections_id":"110","sections_avg":100},{"sections_id":"310","sections_avg":90}]`,
	},
	{
		name: "wildcard suffix",
		query: `{
			"WHERE": {"IS": {"sections_title": "*algebra"}},
			"OPTIONS": {"COLUMNS": ["sections_dept", "sections_year"]}
		}`,
		want: `[{"sections_dept":"math","sections_year":1900}]`,
	},
	{
		name: "multi-key order",
		query: `{
			"WHERE": {"OR": [{"EQ": {"sections_year": 2016}}, {"EQ": {"sections_year": 2014}}]},
			"OPTIONS": {"COLUMNS": ["sections_year", "sections_avg"], "ORDER": {"dir": "UP", "keys": ["sections_year", "sections_avg"]}}
		}`,
		want: `[{"sections_year":2014,"sections_avg":65},{"sections_year":2016,"sections_avg":85},{"sections_year":2016,"sections_avg":100}]`,
	},
	{
		name: "group with several aggregates",
		query: `{
			"WHERE": {},
			"OPTIONS": {"COLUMNS": ["sections_instructor", "hi", "lo", "total", "n"], "ORDER": "sections_instructor"},
			"TRANSFORMATIONS": {
				"GROUP": ["sections_instructor"],
				"APPLY": [
					{"hi": {"MAX": "sections_avg"}},
					{"lo": {"MIN": "sections_avg"}},
					{"total": {"SUM": "sections_pass"}},
					{"n": {"COUNT": "sections_title"}}
				]
			}
		}`,
		want: `[
			{"sections_instructor":"jones","hi":85,"lo":85,"total":80,"n":1},
			{"sections_instructor":"lee","hi":72.5,"lo":65,"total":180,"n":2},
			{"sections_instructor":"smith","hi":100,"lo":90,"total":240,"n":2},
			{"sections_instructor":"wu","hi":80,"lo":80,"total":200,"n":1}
		]`,
	},
	{
		name: "no matches",
		query: `{
			"WHERE": {"GT": {"sections_avg": 100}},
			"OPTIONS": {"COLUMNS": ["sections_dept"]}
		}`,
		want: `[]`,
	},
	{
		name: "order key outside columns",
		query: `{
			"WHERE": {},
			"OPTIONS": {"COLUMNS": ["sections_dept"], "ORDER": "sections_avg"}
		}`,
		wantErr: core.IsValidation,
	},
	{
		name: "column not grouped",
		query: `{
			"WHERE": {},
			"OPTIONS": {"COLUMNS": ["sections_title", "n"]},
			"TRANSFORMATIONS": {"GROUP": ["sections_dept"], "APPLY": [{"n": {"COUNT": "sections_uuid"}}]}
		}`,
		wantErr: core.IsValidation,
	},
}

func TestScenarios(t *testing.T) {
	e := loadedEngine(t)

	for _, tt := range scenarioTests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := e.PerformQuery(context.Background(), []byte(tt.query))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error kind: %v", err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, rowsJSON(t, rows))
		})
	}
}
