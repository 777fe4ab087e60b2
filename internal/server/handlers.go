package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/tinyquery/pkg/catalog"
	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/parser"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

// maxQueryBytes bounds a compile request body.
const maxQueryBytes = 1 << 20

type compileRequest struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type tableSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type tableDetail struct {
	Name    string           `json:"name"`
	Kind    string           `json:"kind"`
	Columns []catalog.Column `json:"columns,omitempty"`
	Query   string           `json:"query,omitempty"`
	Scope   *plan.ScopeJSON  `json:"scope,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, a ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, a...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": s.engine.Catalog().Len(),
		"jobs":    s.jobs.len(),
	})
}

// handleCompile compiles the posted query and records the outcome as a job.
// A query that does not compile is still a job; it answers 422.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxQueryBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	start := time.Now()
	job := &Job{ID: newJobID(), Query: req.Query, CreatedAt: start.UTC()}
	sel, err := s.engine.Compile(req.Query)
	if err == nil {
		job.Plan, err = plan.MarshalSelect(sel)
	}
	job.Duration = time.Since(start).String()

	status := http.StatusOK
	if err != nil {
		job.Status = StatusError
		job.Error = describeError(err)
		status = http.StatusUnprocessableEntity
	} else {
		job.Status = StatusOK
	}
	s.jobs.add(job)
	s.logger.Info("compiled query", "job", job.ID, "status", job.Status, "duration", job.Duration)

	w.Header().Set("Location", "/v1/jobs/"+job.ID)
	writeJSON(w, status, job)
}

func describeError(err error) *JobError {
	var ce *core.CompileError
	if errors.As(err, &ce) {
		return &JobError{Kind: ce.Kind.String(), Message: err.Error()}
	}
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return &JobError{Kind: "parse error", Message: err.Error()}
	}
	return &JobError{Kind: "internal", Message: err.Error()}
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.jobs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found: %s", id)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleTables lists catalog entries, optionally those of one dataset.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	cat := s.engine.Catalog()
	out := []tableSummary{}

	if r.URL.Query().Has("dataset") {
		dataset := r.URL.Query().Get("dataset")
		for _, name := range cat.DatasetTables(dataset) {
			out = append(out, tableSummary{Name: name, Kind: entryKind(cat, dataset+"."+name)})
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	for _, e := range cat.Entries() {
		out = append(out, tableSummary{Name: e.EntryName(), Kind: kindOf(e)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := s.engine.Catalog().Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "table not found: %s", name)
		return
	}

	detail := tableDetail{Name: name, Kind: kindOf(entry)}
	switch e := entry.(type) {
	case *catalog.Table:
		detail.Columns = e.Columns
	case *catalog.View:
		detail.Query = e.Query
		sel, err := s.engine.Compile("SELECT * FROM " + name)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "view %s: %v", name, err)
			return
		}
		scope := plan.ScopeToJSON(sel.Scope)
		detail.Scope = &scope
	}
	writeJSON(w, http.StatusOK, detail)
}

func kindOf(e catalog.Entry) string {
	if _, ok := e.(*catalog.View); ok {
		return "view"
	}
	return "table"
}

func entryKind(cat *catalog.Memory, name string) string {
	if e, ok := cat.Lookup(name); ok {
		return kindOf(e)
	}
	return "table"
}
