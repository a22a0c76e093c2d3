package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/insightql/pkg/core"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// handlePage renders the dataset page. The table is kept current by /events.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	infos, err := s.engine.ListDatasets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := datasetPage(infos).Render(r.Context(), w); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

// handleEvents is the long-lived SSE endpoint for the dataset page. It
// patches the dataset table whenever a dataset is added or removed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			s.logger.Debug("dataset changed", "op", ev.Op, "id", ev.ID)
			infos, err := s.engine.ListDatasets(ctx)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(datasetTable(infos)); err != nil {
				return
			}
		}
	}
}

func datasetPage(infos []core.DatasetInfo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>insightql datasets</title>`)
		b.WriteString(`<script type="module" src="` + datastarScript + `"></script></head>`)
		b.WriteString(`<body data-init="@get('/events')"><h1>Datasets</h1>`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := datasetTable(infos).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func datasetTable(infos []core.DatasetInfo) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table id="datasets"><thead><tr><th>ID</th><th>Kind</th><th>Rows</th></tr></thead><tbody>`)
		if len(infos) == 0 {
			b.WriteString(`<tr><td colspan="3">No datasets</td></tr>`)
		}
		for _, info := range infos {
			b.WriteString(`<tr><td>`)
			b.WriteString(templ.EscapeString(info.ID))
			b.WriteString(`</td><td>`)
			b.WriteString(templ.EscapeString(string(info.Kind)))
			b.WriteString(`</td><td>`)
			b.WriteString(strconv.Itoa(info.RowCount))
			b.WriteString(`</td></tr>`)
		}
		b.WriteString(`</tbody></table>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
