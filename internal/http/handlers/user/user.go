// Package user contains the HTTP handlers of the user registry. Every
// route is gated by the caller's session, which the Authenticator derives
// from the request; administrator routes additionally require the
// configured admin identity.
package user

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-report/internal/credentials"
	"github.com/aanand-mishra/students-report/internal/session"
	"github.com/aanand-mishra/students-report/internal/types"
	"github.com/aanand-mishra/students-report/internal/utils/response"
)

// Directory is the part of credentials.Directory the handlers use.
type Directory interface {
	List() []types.UserProfile
	Count() int
	Add(p types.UserProfile) error
	Remove(username string) error
	IsAdmin(username string) bool
}

var _ Directory = (*credentials.Directory)(nil)

// ListResponse is the admin view of the registry.
type ListResponse struct {
	Total int                 `json:"total"`
	Users []types.UserProfile `json:"users"`
}

var validate = validator.New()

// authorize writes 401/403 and returns false when the session may not
// proceed.
func authorize(w http.ResponseWriter, r *http.Request, auth session.Authenticator, dir Directory, adminOnly bool) (session.Session, bool) {
	s := auth.Authenticate(r)
	if !s.Authenticated() {
		slog.Warn("unauthenticated request",
			slog.String("path", r.URL.Path),
			slog.String("state", s.State().String()))
		response.WriteJSON(w, http.StatusUnauthorized,
			response.GeneralError(errors.New("please log in first")))
		return s, false
	}
	if adminOnly && !dir.IsAdmin(s.Username()) {
		slog.Warn("forbidden request",
			slog.String("path", r.URL.Path),
			slog.String("username", s.Username()))
		response.WriteJSON(w, http.StatusForbidden,
			response.GeneralError(errors.New("you do not have permission to access this page")))
		return s, false
	}
	return s, true
}

// GetList handles GET /api/users (administrator only).
//
// Success response (200 OK):
//
//	{ "total": 2, "users": [ { "username": "jsmith", ... }, ... ] }
func GetList(auth session.Authenticator, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := authorize(w, r, auth, dir, true)
		if !ok {
			return
		}

		users := dir.List()
		slog.Info("listing users", slog.String("by", s.Username()), slog.Int("total", len(users)))
		response.WriteJSON(w, http.StatusOK, ListResponse{Total: len(users), Users: users})
	}
}

// New handles POST /api/users: registers a profile.
//
// Request body (JSON):
//
//	{ "username": "ana", "display_name": "Ana", "email": "ana@example.com" }
//
// Error responses:
//
//	400 Bad Request: empty body, malformed JSON, or failed validation
//	409 Conflict: username already registered
//	500 Internal: the registry could not be saved
func New(auth session.Authenticator, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := authorize(w, r, auth, dir, false)
		if !ok {
			return
		}

		var p types.UserProfile
		err := json.NewDecoder(r.Body).Decode(&p)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validate.Struct(p); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := dir.Add(p); err != nil {
			writeDirectoryError(w, err, p.Username)
			return
		}

		slog.Info("user registered", slog.String("username", p.Username), slog.String("by", s.Username()))
		response.WriteJSON(w, http.StatusCreated, map[string]string{"username": p.Username})
	}
}

// Delete handles DELETE /api/users/{username} (administrator only).
//
// Error responses:
//
//	404 Not Found: unknown username
//	409 Conflict: the administrator account is protected
//	500 Internal: the registry could not be saved
func Delete(auth session.Authenticator, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := authorize(w, r, auth, dir, true)
		if !ok {
			return
		}

		username := r.PathValue("username")
		if err := dir.Remove(username); err != nil {
			writeDirectoryError(w, err, username)
			return
		}

		slog.Info("user deleted", slog.String("username", username), slog.String("by", s.Username()))
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func writeDirectoryError(w http.ResponseWriter, err error, username string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, credentials.ErrProtectedAccount), errors.Is(err, credentials.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, credentials.ErrInvalidProfile):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error("error updating users",
			slog.String("username", username),
			slog.String("error", err.Error()))
	}
	response.WriteJSON(w, status, response.GeneralError(err))
}
