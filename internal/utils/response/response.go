// Package response provides helpers for writing consistent JSON HTTP
// responses. Every handler sends JSON back; error bodies always look like
//
//	{ "status": "error", "error": "field Email must be a valid email address" }
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the standard envelope returned for error cases.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes data as JSON with the given HTTP status code.
// Header() -> WriteHeader() -> body, in that order.
//
// data is encoded before the header is sent. If it cannot be encoded the
// client gets a 500 error body instead, and the encode error is returned.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("error encoding response", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(GeneralError(errors.New("response could not be encoded")))
		err = fmt.Errorf("WriteJSON: encode: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, werr := w.Write(append(body, '\n')); werr != nil && err == nil {
		err = fmt.Errorf("WriteJSON: write: %w", werr)
	}
	return err
}

// OK is the body for successful mutations that return nothing else.
func OK() Response {
	return Response{Status: StatusOK}
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError converts validator field errors into one readable
// message, e.g. "field Username is required, field Email must be a valid
// email address".
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}
