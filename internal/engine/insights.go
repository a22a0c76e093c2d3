package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// TopCoursesLimit caps the top courses insight.
const TopCoursesLimit = 10

// Insights is the canned report over a sections dataset.
type Insights struct {
	AverageByDept  []core.Row `json:"insight1"`
	SectionsByDept []core.Row `json:"insight2"`
	TopCourses     []core.Row `json:"insight3"`
}

// Insights runs the canned report over a dataset, optionally restricted to
// the given departments. A failing insight is logged and reported empty; an
// unknown dataset id fails the whole report.
func (e *Engine) Insights(ctx context.Context, id string, depts []string) (*Insights, error) {
	infos, err := e.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	if !containsDataset(infos, id) {
		return nil, core.NewNotFoundError(id, nil)
	}

	where := deptFilter(id, depts)
	key := func(field string) string { return core.QualifiedKey(id, field) }

	averages := map[string]any{
		"WHERE": where,
		"TRANSFORMATIONS": map[string]any{
			"GROUP": []string{key("dept")},
			"APPLY": []any{map[string]any{"avgGrade": map[string]any{"AVG": key("avg")}}},
		},
		"OPTIONS": map[string]any{
			"COLUMNS": []string{key("dept"), "avgGrade"},
			"ORDER":   map[string]any{"dir": "DOWN", "keys": []string{"avgGrade"}},
		},
	}
	counts := map[string]any{
		"WHERE": where,
		"TRANSFORMATIONS": map[string]any{
			"GROUP": []string{key("dept")},
			"APPLY": []any{map[string]any{"count": map[string]any{"COUNT": key("uuid")}}},
		},
		"OPTIONS": map[string]any{
			"COLUMNS": []string{key("dept"), "count"},
			"ORDER":   map[string]any{"dir": "DOWN", "keys": []string{"count"}},
		},
	}
	courses := map[string]any{
		"WHERE": where,
		"TRANSFORMATIONS": map[string]any{
			"GROUP": []string{key("dept"), key("id")},
			"APPLY": []any{map[string]any{"avgGrade": map[string]any{"AVG": key("avg")}}},
		},
		"OPTIONS": map[string]any{
			"COLUMNS": []string{key("dept"), key("id"), "avgGrade"},
			"ORDER":   map[string]any{"dir": "DOWN", "keys": []string{"avgGrade"}},
		},
	}

	report := &Insights{
		AverageByDept:  e.insight(ctx, "average grade by department", averages),
		SectionsByDept: e.insight(ctx, "sections by department", counts),
		TopCourses:     e.insight(ctx, "top courses", courses),
	}
	if len(report.TopCourses) > TopCoursesLimit {
		report.TopCourses = report.TopCourses[:TopCoursesLimit]
	}
	return report, nil
}

func (e *Engine) insight(ctx context.Context, name string, q map[string]any) []core.Row {
	rows, err := e.runMap(ctx, q)
	if err != nil {
		e.logger.Warn("insight query failed", slog.String("insight", name), slog.Any("error", err))
		return []core.Row{}
	}
	return rows
}

func (e *Engine) runMap(ctx context.Context, q map[string]any) ([]core.Row, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return e.PerformQuery(ctx, data)
}

// deptFilter matches any of the departments, or everything when none are given.
func deptFilter(id string, depts []string) map[string]any {
	key := core.QualifiedKey(id, "dept")
	switch len(depts) {
	case 0:
		return map[string]any{}
	case 1:
		return map[string]any{"IS": map[string]any{key: depts[0]}}
	}
	or := make([]any, len(depts))
	for i, d := range depts {
		or[i] = map[string]any{"IS": map[string]any{key: d}}
	}
	return map[string]any{"OR": or}
}

func containsDataset(infos []core.DatasetInfo, id string) bool {
	for _, info := range infos {
		if info.ID == id {
			return true
		}
	}
	return false
}
