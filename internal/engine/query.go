package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/insightql/pkg/core"
	"github.com/leapstack-labs/insightql/pkg/query"
)

// PerformQuery parses and runs a JSON query.
func (e *Engine) PerformQuery(ctx context.Context, data []byte) ([]core.Row, error) {
	q, err := query.Parse(data)
	if err != nil {
		return nil, err
	}
	res, err := e.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Execute runs a parsed query and returns the rows with execution counts.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (*query.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryID := uuid.NewString()
	start := time.Now()
	logger := e.logger.With(slog.String("query_id", queryID), slog.String("dataset", q.Dataset))

	records, err := e.dataset(ctx, q.Dataset)
	if err != nil {
		logger.Debug("query failed", "error", err)
		return nil, err
	}

	res, err := query.Execute(q, records)
	if err != nil {
		logger.Debug("query failed", "error", err, "scanned", len(records))
		return nil, err
	}

	logger.Debug("query executed",
		slog.Int("scanned", res.Scanned),
		slog.Int("matched", res.Matched),
		slog.Int("groups", res.Groups),
		slog.Int("rows", len(res.Rows)),
		slog.Duration("elapsed", time.Since(start)))
	return res, nil
}
