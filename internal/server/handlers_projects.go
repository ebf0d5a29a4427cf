package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/brand-foundation/internal/foundation"
	"github.com/jonathan/brand-foundation/internal/runs"
)

// CreateProjectRequest is the body for POST /projects.
type CreateProjectRequest struct {
	Name   string            `json:"name" validate:"required,min=1,max=200"`
	Record *foundation.Patch `json:"record,omitempty"`
}

// ProjectResponse is the project representation returned by the API.
type ProjectResponse struct {
	ID      uuid.UUID          `json:"id"`
	Name    string             `json:"name"`
	Record  *foundation.Record `json:"record"`
	Overall int                `json:"overall_completion"`
	Ready   bool               `json:"ready"`
	Started []string           `json:"started_analyzers,omitempty"`
}

func (s *Server) projectResponse(p *projectView, started []string) ProjectResponse {
	catalog := s.registry.Catalog()
	return ProjectResponse{
		ID:      p.ID,
		Name:    p.Name,
		Record:  p.Record,
		Overall: catalog.Overall(p.Record),
		Ready:   catalog.HasMinimumViableData(p.Record),
		Started: started,
	}
}

// projectView is the handler-level view of a stored project.
type projectView struct {
	ID     uuid.UUID
	Name   string
	Record *foundation.Record
}

func (s *Server) loadProject(r *http.Request) (*projectView, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	project, err := s.projects.GetProject(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &ErrValidation{Field: "id", Message: "project not found"}
	}
	rec := project.Record
	return &projectView{ID: project.ID, Name: project.Name, Record: &rec}, nil
}

// handleCreateProject creates a project, applies any initial record fields,
// and kicks off whatever analyzers those fields unlock.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("validation failed: %v", err))
		return
	}

	project, err := s.projects.CreateProject(r.Context(), req.Name)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var started []string
	if req.Record != nil && !req.Record.IsEmpty() {
		if err := s.projects.SaveRecord(r.Context(), project.ID, req.Record); err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		project.Record.Apply(req.Record)
		started, err = s.orch.TriggerEligible(r.Context(), project.ID)
		if err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
	}

	rec := project.Record
	s.jsonResponse(w, http.StatusCreated, s.projectResponse(&projectView{ID: project.ID, Name: project.Name, Record: &rec}, started))
}

// handleListProjects lists projects, newest first.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	projects, err := s.projects.ListProjects(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		rec := projects[i].Record
		out = append(out, s.projectResponse(&projectView{ID: projects[i].ID, Name: projects[i].Name, Record: &rec}, nil))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"projects": out})
}

// handleGetProject returns one project with its completion summary.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadProject(r)
	if err != nil {
		s.errorResponse(w, statusForLoad(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, s.projectResponse(project, nil))
}

// handleUpdateProject applies a partial record update and re-evaluates
// analyzer triggers against the new state.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadProject(r)
	if err != nil {
		s.errorResponse(w, statusForLoad(err), err.Error())
		return
	}

	var patch foundation.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.IsEmpty() {
		s.errorResponse(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := s.projects.SaveRecord(r.Context(), project.ID, &patch); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	project.Record.Apply(&patch)

	started, err := s.orch.TriggerEligible(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, s.projectResponse(project, started))
}

// handleDeleteProject removes a project and its runs.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadProject(r)
	if err != nil {
		s.errorResponse(w, statusForLoad(err), err.Error())
		return
	}
	if err := s.projects.DeleteProject(r.Context(), project.ID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnalyzerState summarizes the latest run of one analyzer.
type AnalyzerState struct {
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
}

// CompletionResponse is the per-bucket completion breakdown plus a summary
// of where each analyzer stands.
type CompletionResponse struct {
	Buckets   map[string]int           `json:"buckets"`
	Overall   int                      `json:"overall"`
	Ready     bool                     `json:"ready"`
	Analyzers map[string]AnalyzerState `json:"analyzers"`
	Counts    map[string]int           `json:"run_counts"`
}

// handleGetCompletion returns bucket percentages, the weighted overall
// score, the readiness gate, and the latest state of every analyzer that
// has run.
func (s *Server) handleGetCompletion(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadProject(r)
	if err != nil {
		s.errorResponse(w, statusForLoad(err), err.Error())
		return
	}

	history, err := s.runStore.ListRuns(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	states := make(map[string]AnalyzerState)
	counts := make(map[string]int)
	for _, desc := range s.registry.Descriptors() {
		if latest := runs.Latest(history, desc.Type); latest != nil {
			states[desc.Type] = AnalyzerState{Status: latest.Status, RetryCount: latest.RetryCount}
		}
	}
	for i := range history {
		counts[history[i].Status]++
	}

	catalog := s.registry.Catalog()
	completions := catalog.Completions(project.Record)
	s.jsonResponse(w, http.StatusOK, CompletionResponse{
		Buckets:   completions,
		Overall:   catalog.OverallCompletion(completions),
		Ready:     catalog.HasMinimumViableData(project.Record),
		Analyzers: states,
		Counts:    counts,
	})
}

// statusForLoad distinguishes a bad path parameter from a missing project.
func statusForLoad(err error) int {
	var validation *ErrValidation
	if errors.As(err, &validation) {
		if validation.Message == "project not found" {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	}
	return HTTPStatus(err)
}
