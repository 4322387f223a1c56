package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/buildtall-systems/orderlife/internal/orders"
	"github.com/buildtall-systems/orderlife/internal/status"
)

// Error kinds reported in the response body.
const (
	KindInvalidStatus     = "invalid_status"
	KindIllegalTransition = "illegal_transition"
	KindMissingField      = "missing_field"
	KindLocked            = "locked"
	KindNotFound          = "not_found"
	KindExists            = "exists"
	KindPersistence       = "persistence"
	KindBadRequest        = "bad_request"
)

type errorBody struct {
	Error     string        `json:"error"`
	Kind      string        `json:"kind"`
	Allowed   []status.Code `json:"allowed,omitempty"`
	Fields    []string      `json:"fields,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
}

// classify maps an executor error to an HTTP status and response body.
func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var (
		invalid *orders.InvalidStatusError
		illegal *orders.IllegalTransitionError
		missing *orders.MissingFieldError
		locked  *orders.LockedOrderError
		perr    *orders.PersistenceError
		bad     *badRequestError
	)
	switch {
	case errors.As(err, &bad):
		body.Kind = KindBadRequest
		return http.StatusBadRequest, body
	case errors.As(err, &missing):
		body.Kind = KindMissingField
		body.Fields = missing.Fields
		return http.StatusBadRequest, body
	case errors.As(err, &invalid):
		body.Kind = KindInvalidStatus
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &illegal):
		body.Kind = KindIllegalTransition
		body.Allowed = illegal.Allowed
		return http.StatusConflict, body
	case errors.As(err, &locked):
		body.Kind = KindLocked
		return http.StatusLocked, body
	case errors.Is(err, orders.ErrOrderNotFound):
		body.Kind = KindNotFound
		return http.StatusNotFound, body
	case errors.Is(err, orders.ErrOrderExists):
		body.Kind = KindExists
		return http.StatusConflict, body
	case errors.As(err, &perr):
		body.Kind = KindPersistence
		body.Retryable = perr.Retryable()
		return http.StatusServiceUnavailable, body
	default:
		body.Kind = KindPersistence
		return http.StatusInternalServerError, body
	}
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return "decoding request: " + e.err.Error()
}

func (e *badRequestError) Unwrap() error {
	return e.err
}

func writeError(w http.ResponseWriter, err error) {
	code, body := classify(err)
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}
