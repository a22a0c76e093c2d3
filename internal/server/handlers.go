package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/insightql/internal/server/notifier"
	"github.com/leapstack-labs/insightql/pkg/core"
)

// internalErrorMessage hides unexpected failures from clients.
const internalErrorMessage = "Internal server error"

type resultResponse struct {
	Result any `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAddDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	kind := core.KindSections
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := core.ParseDatasetKind(k)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		kind = parsed
	}

	content, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ids, err := s.engine.AddDataset(r.Context(), id, content, kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.notifier.Broadcast(notifier.Event{Op: notifier.OpAdded, ID: id})
	writeJSON(w, http.StatusOK, resultResponse{Result: ids})
}

func (s *Server) handleRemoveDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := s.engine.RemoveDataset(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.notifier.Broadcast(notifier.Event{Op: notifier.OpRemoved, ID: removed})
	writeJSON(w, http.StatusOK, resultResponse{Result: removed})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	infos, err := s.engine.ListDatasets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if infos == nil {
		infos = []core.DatasetInfo{}
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: infos})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	depts := splitList(r.URL.Query().Get("depts"))

	insights, err := s.engine.Insights(r.Context(), id, depts)
	if err != nil {
		if core.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Dataset not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: insights})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rows, err := s.engine.PerformQuery(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.Row{}
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: rows})
}

// readBody reads the request body up to the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.NewValidationErrorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, err
	}
	return body, nil
}

// writeError maps an error kind to its status code. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case core.IsValidation(err), core.IsResultTooLarge(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: internalErrorMessage})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// splitList splits a comma separated list, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
