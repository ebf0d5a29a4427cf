package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/brand-foundation/internal/runs"
)

// TokenExchangeRequest is the body for POST /auth/token.
type TokenExchangeRequest struct {
	Token string `json:"token" validate:"required"`
}

// handleTokenExchange swaps the raw API token for a short-lived JWT.
func (s *Server) handleTokenExchange(w http.ResponseWriter, r *http.Request) {
	var req TokenExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "token is required")
		return
	}

	if !s.tokenConfig.VerifyToken(req.Token) {
		err := &ErrInvalidToken{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	token, err := s.jwtService.GenerateToken("brand-agent-api")
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"token": token})
}

// AnalyzeRequest is the body for POST /projects/{id}/analyze. With no body
// or an empty object, every eligible analyzer is started. Naming a type
// starts just that one; force skips its trigger predicate.
type AnalyzeRequest struct {
	AnalyzerType string `json:"analyzer_type,omitempty"`
	Force        bool   `json:"force,omitempty"`
}

// AnalyzeResponse reports what the trigger evaluation did.
type AnalyzeResponse struct {
	Started []string `json:"started"`
	Skipped string   `json:"skipped,omitempty"`
}

// handleAnalyze evaluates triggers and starts analyzer runs in the
// background. The response returns immediately; run state is polled via
// the runs endpoints.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadProject(r)
	if err != nil {
		s.errorResponse(w, statusForLoad(err), err.Error())
		return
	}

	var req AnalyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Force && req.AnalyzerType == "" {
		s.errorResponse(w, http.StatusBadRequest, "force requires analyzer_type")
		return
	}

	if req.AnalyzerType == "" {
		started, err := s.orch.TriggerEligible(r.Context(), project.ID)
		if err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		s.jsonResponse(w, http.StatusAccepted, AnalyzeResponse{Started: started})
		return
	}

	var run *runs.Run
	if req.Force {
		run, err = s.orch.Force(r.Context(), project.ID, req.AnalyzerType)
	} else {
		run, err = s.orch.TriggerOne(r.Context(), project.ID, req.AnalyzerType)
	}
	if err != nil {
		// An analyzer already in flight is reported, not treated as a
		// failure.
		var dup *runs.DuplicateInFlightError
		if errors.As(err, &dup) {
			s.jsonResponse(w, http.StatusOK, AnalyzeResponse{Skipped: "already running"})
			return
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if run == nil {
		s.jsonResponse(w, http.StatusOK, AnalyzeResponse{Skipped: "trigger conditions not met"})
		return
	}
	s.jsonResponse(w, http.StatusAccepted, AnalyzeResponse{Started: []string{run.AnalyzerType}})
}

// handleListRuns returns a project's full run history, oldest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
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
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": history})
}

// handleGetRun returns a single run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "run id must be a UUID")
		return
	}

	run, err := s.runStore.GetRun(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if run == nil {
		notFound := &runs.NotFoundError{RunID: id}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}
