package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/dao"
)

// Error codes returned in the error body.
const (
	CodeValidation    = "validation_error"
	CodePrecondition  = "precondition_failed"
	CodeConflict      = "conflict"
	CodeConfiguration = "configuration_error"
	CodeRetryable     = "retryable"
	CodeNotFound      = "not_found"
	CodeInternal      = "internal_error"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	RequestID string      `json:"requestId,omitempty"`
	Error     ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// classify maps err to an HTTP status, an error code and the typed details.
func classify(err error) (int, string, interface{}) {
	var (
		validation    *types.ValidationError
		precondition  *types.PreconditionFailure
		conflict      *types.ConflictError
		configuration *types.ConfigurationError
		retryable     *types.RetryableError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, CodeValidation, validation
	case errors.As(err, &precondition):
		return http.StatusUnprocessableEntity, CodePrecondition, precondition
	case errors.As(err, &conflict):
		return http.StatusConflict, CodeConflict, conflict
	case errors.As(err, &configuration):
		return http.StatusInternalServerError, CodeConfiguration, configuration
	case errors.As(err, &retryable):
		return http.StatusServiceUnavailable, CodeRetryable, nil
	case errors.Is(err, dao.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, nil
	}
	return http.StatusInternalServerError, CodeInternal, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	writeJSON(w, status, &ErrorBody{
		RequestID: middleware.GetReqID(r.Context()),
		Error:     ErrorDetail{Code: code, Message: message, Details: details},
	})
}

func readJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return types.NewValidationError("body", "%v", err)
	}
	return nil
}
