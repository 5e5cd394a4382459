// Package student serves the raw student table and the name filter.
//
// Handlers follow the closure/factory pattern: a factory receives the
// dependencies once at startup and returns the http.HandlerFunc that
// runs on every request.
//
//	router.HandleFunc("GET /api/students", student.GetList(store))
package student

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/students-report/internal/records"
	"github.com/aanand-mishra/students-report/internal/utils/response"
)

// GetList handles GET /api/students
//
// Without a query it returns every record in file order. With
// ?name=<substring> it returns the matching records; matching ignores
// case unless ?case_sensitive=true. An empty name matches nothing.
//
// Success response (200 OK):
//
//	[ { "name": "Ana", "grade": "10", "age": 15, "average": 4.5 }, ... ]
//
// Error responses:
//
//	400 Bad Request: case_sensitive is not a boolean
//	503 Service Unavailable: the dataset could not be loaded
func GetList(source records.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		caseSensitive := false
		if raw := q.Get("case_sensitive"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("invalid case_sensitive: must be a boolean")))
				return
			}
			caseSensitive = v
		}

		ds, err := source.Dataset()
		if err != nil {
			slog.Error("error loading dataset", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
			return
		}

		if !q.Has("name") {
			slog.Info("listing students", slog.Int("count", ds.Len()))
			response.WriteJSON(w, http.StatusOK, ds.Records())
			return
		}

		name := q.Get("name")
		found := records.SearchByName(ds, name, !caseSensitive)
		slog.Info("searching students",
			slog.String("name", name),
			slog.Bool("case_sensitive", caseSensitive),
			slog.Int("matches", found.Len()))
		response.WriteJSON(w, http.StatusOK, found.Records())
	}
}
