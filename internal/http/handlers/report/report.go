// Package report exposes the dashboard aggregates over HTTP. Every
// handler reads the current dataset from a records.Source and answers
// with the JSON form of one aggregation.
package report

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/students-report/internal/records"
	"github.com/aanand-mishra/students-report/internal/types"
	"github.com/aanand-mishra/students-report/internal/utils/response"
)

// GradeAverage is one bar of the average-by-grade chart.
type GradeAverage struct {
	Grade   string  `json:"grade"`
	Average float64 `json:"average"`
}

// GradeCount is one slice of the grade distribution chart.
type GradeCount struct {
	Grade string `json:"grade"`
	Count int    `json:"count"`
}

// GradeTop lists the best averages of one grade.
type GradeTop struct {
	Grade    string                `json:"grade"`
	Students []types.StudentRecord `json:"students"`
}

// dataset loads the dataset or writes a 503 and returns false.
func dataset(w http.ResponseWriter, source records.Source) (records.Dataset, bool) {
	ds, err := source.Dataset()
	if err != nil {
		slog.Error("error loading dataset", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
		return records.Empty, false
	}
	return ds, true
}

// Summary handles GET /api/reports/summary: every chart in one body.
func Summary(source records.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, ok := dataset(w, source)
		if !ok {
			return
		}
		slog.Info("building summary", slog.Int("records", ds.Len()))
		response.WriteJSON(w, http.StatusOK, records.Summarize(ds))
	}
}

// Ages handles GET /api/reports/ages.
func Ages(source records.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, ok := dataset(w, source)
		if !ok {
			return
		}
		response.WriteJSON(w, http.StatusOK, records.AgeDistribution(ds))
	}
}

// AverageByGrade handles GET /api/reports/grades/average. Grades are
// listed in sorted order.
func AverageByGrade(source records.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, ok := dataset(w, source)
		if !ok {
			return
		}

		avg := records.AverageByGrade(ds)
		out := make([]GradeAverage, 0, len(avg))
		for _, g := range records.Grades(ds) {
			out = append(out, GradeAverage{Grade: g, Average: avg[g]})
		}
		response.WriteJSON(w, http.StatusOK, out)
	}
}

// CountByGrade handles GET /api/reports/grades/count.
func CountByGrade(source records.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, ok := dataset(w, source)
		if !ok {
			return
		}

		counts := records.GradeDistribution(ds)
		out := make([]GradeCount, 0, len(counts))
		for _, g := range records.Grades(ds) {
			out = append(out, GradeCount{Grade: g, Count: counts[g]})
		}
		response.WriteJSON(w, http.StatusOK, out)
	}
}

// TopByGrade handles GET /api/reports/grades/top?n=2.
//
// Error responses:
//
//	400 Bad Request: n is not a positive integer
func TopByGrade(source records.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := records.DefaultTopN
		if raw := r.URL.Query().Get("n"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("invalid n: must be a positive integer")))
				return
			}
			n = v
		}

		ds, ok := dataset(w, source)
		if !ok {
			return
		}

		top := records.TopNByGrade(ds, n)
		out := make([]GradeTop, 0, len(top))
		for _, g := range records.Grades(ds) {
			out = append(out, GradeTop{Grade: g, Students: top[g]})
		}
		response.WriteJSON(w, http.StatusOK, out)
	}
}

// PassFail handles GET /api/reports/pass-fail.
func PassFail(source records.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, ok := dataset(w, source)
		if !ok {
			return
		}
		response.WriteJSON(w, http.StatusOK, records.PassFailSummary(ds))
	}
}
