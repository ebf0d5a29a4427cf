// Package server provides the HTTP REST API for the brand agent.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/brand-foundation/internal/orchestrator"
	"github.com/jonathan/brand-foundation/internal/runs"
)

// ErrInvalidToken indicates a failed API token exchange.
type ErrInvalidToken struct{}

func (e *ErrInvalidToken) Error() string {
	return "invalid API token"
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var (
		invalidToken  *ErrInvalidToken
		validation    *ErrValidation
		projnot       *orchestrator.ProjectNotFoundError
		unknownType   *orchestrator.UnknownAnalyzerError
		dupInFlight   *runs.DuplicateInFlightError
		badTransition *runs.InvalidTransitionError
		runNotFound   *runs.NotFoundError
	)
	switch {
	case errors.As(err, &invalidToken):
		return http.StatusUnauthorized
	case errors.As(err, &validation), errors.As(err, &unknownType):
		return http.StatusBadRequest
	case errors.As(err, &projnot), errors.As(err, &runNotFound):
		return http.StatusNotFound
	case errors.As(err, &dupInFlight), errors.As(err, &badTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
