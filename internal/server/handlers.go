package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jpalmerr/labboard/internal/api"
	"github.com/jpalmerr/labboard/internal/backup"
	"github.com/jpalmerr/labboard/internal/discovery"
	"github.com/jpalmerr/labboard/internal/editor"
	"github.com/jpalmerr/labboard/internal/filter"
	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

type textRequest struct {
	Text string `json:"text"`
}

type valueRequest struct {
	Value string `json:"value"`
}

type mergeRequest struct {
	IP        string `json:"ip"`
	WithLinks bool   `json:"with_links"`
}

type scanRequest struct {
	Subnet string `json:"subnet"`
}

type restoreRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("q") && !q.Has("tags") {
		s.writeJSON(w, http.StatusOK, s.dash.View())
		return
	}

	query := filter.Query{Text: q.Get("q"), Tags: []string{}}
	for _, t := range strings.Split(q.Get("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			query.Tags = append(query.Tags, t)
		}
	}
	s.writeJSON(w, http.StatusOK, s.dash.ViewWith(query))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.Reload(r.Context()))
}

func (s *Server) handleGetEditor(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, textRequest{Text: s.dash.Buffer()})
}

func (s *Server) handlePutEditor(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.dash.SetBuffer(req.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApply(w http.ResponseWriter, _ *http.Request) {
	cfg, err := s.dash.Apply()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSave(withBackup bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.dash.Save(r.Context(), withBackup)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleRevert(w http.ResponseWriter, _ *http.Request) {
	if err := s.dash.Revert(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearLocal(w http.ResponseWriter, _ *http.Request) {
	if err := s.dash.ClearLocal(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="servers.json"`)
	if _, err := io.WriteString(w, s.dash.Export()); err != nil {
		s.logger.Error("failed to write export", "error", err)
	}
}

// handleImport accepts the raw file contents as the request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		s.writeStatus(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	cfg, err := s.dash.Import(string(body))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.InsertTemplate(r.PathValue("kind")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, textRequest{Text: s.dash.Buffer()})
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.Validation())
}

func (s *Server) handleValidateNow(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.ValidateNow(r.Context()))
}

func (s *Server) handleDiscoveries(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.dash.Discoveries(r.Context(), r.URL.Query().Get("refresh") == "1")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hosts)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.dash.MergeDiscovered(req.IP, req.WithLinks); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, textRequest{Text: s.dash.Buffer()})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decode(w, r, &req) {
		return
	}
	hosts, err := s.dash.Scan(r.Context(), req.Subnet)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hosts)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := s.dash.Schedule(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	var req model.Schedule
	if !s.decode(w, r, &req) {
		return
	}
	sched, err := s.dash.SetSchedule(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	names, err := s.dash.Backups(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) handlePreviewBackup(w http.ResponseWriter, r *http.Request) {
	text, err := s.dash.PreviewBackup(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, textRequest{Text: text})
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	confirm := func(string) bool { return req.Confirm }
	if err := s.dash.RestoreBackup(r.Context(), r.PathValue("name"), confirm); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.dash.View())
}

func (s *Server) handleGetFilter(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.dash.Filter())
}

func (s *Server) handleSetQuery(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.dash.SetQuery(req.Text)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleToggleTag(w http.ResponseWriter, r *http.Request) {
	s.dash.ToggleTag(r.PathValue("tag"))
	s.writeJSON(w, http.StatusOK, s.dash.Filter())
}

func (s *Server) handleClearTags(w http.ResponseWriter, _ *http.Request) {
	s.dash.ClearTags()
	s.writeJSON(w, http.StatusOK, s.dash.Filter())
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.dash.SetAPIKey(strings.TrimSpace(req.Value)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetBearer(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.dash.SetBearer(strings.TrimSpace(req.Value)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON request body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := dec.Decode(v); err != nil {
		s.writeStatus(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps an operator action failure to a status code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeStatus(w, statusFor(err), err)
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Warn("operator action failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var (
		editErr    *editor.EditError
		persistErr *backup.PersistenceError
		statusErr  *api.StatusError
	)
	switch {
	case errors.As(err, &editErr),
		errors.Is(err, editor.ErrUnknownTemplate),
		errors.Is(err, session.ErrEmptyValue),
		errors.Is(err, discovery.ErrInvalidSchedule):
		return http.StatusBadRequest
	case errors.Is(err, discovery.ErrUnknownHost):
		return http.StatusNotFound
	case errors.Is(err, backup.ErrNotConfirmed):
		return http.StatusConflict
	case errors.As(err, &persistErr), errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
