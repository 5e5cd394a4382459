package records

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/aanand-mishra/students-report/internal/types"
)

// AgeCount is one bar of the age histogram.
type AgeCount struct {
	Age   int `json:"age"`
	Count int `json:"count"`
}

// PassFail counts records on each side of PassThreshold.
type PassFail struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// AgeDistribution groups records by distinct age, ascending.
func AgeDistribution(ds Dataset) []AgeCount {
	counts := make(map[int]int)
	for _, r := range ds.rows {
		counts[r.Age]++
	}

	out := make([]AgeCount, 0, len(counts))
	for age, n := range counts {
		out = append(out, AgeCount{Age: age, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Age < out[j].Age })
	return out
}

// AverageByGrade returns the mean Average of every grade present in ds.
// Grades with no records do not appear in the map.
func AverageByGrade(ds Dataset) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range ds.rows {
		sums[r.Grade] += r.Average
		counts[r.Grade]++
	}

	out := make(map[string]float64, len(sums))
	for g, n := range counts {
		if n == 0 {
			continue
		}
		out[g] = sums[g] / float64(n)
	}
	return out
}

// GradeDistribution counts records per grade.
func GradeDistribution(ds Dataset) map[string]int {
	out := make(map[string]int)
	for _, r := range ds.rows {
		out[r.Grade]++
	}
	return out
}

// TopNByGrade returns up to n records per grade ordered by Average
// descending. Records with equal averages keep their dataset order.
func TopNByGrade(ds Dataset, n int) map[string][]types.StudentRecord {
	out := make(map[string][]types.StudentRecord)
	if n <= 0 {
		return out
	}

	byGrade := make(map[string][]types.StudentRecord)
	for _, r := range ds.rows {
		byGrade[r.Grade] = append(byGrade[r.Grade], r)
	}

	for g, rs := range byGrade {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Average > rs[j].Average })
		if len(rs) > n {
			rs = rs[:n:n]
		}
		out[g] = rs
	}
	return out
}

// PassFailSummary counts passing and failing records.
func PassFailSummary(ds Dataset) PassFail {
	var pf PassFail
	for _, r := range ds.rows {
		if Passed(r) {
			pf.Passed++
		} else {
			pf.Failed++
		}
	}
	return pf
}

// SearchByName returns the records whose Name contains substring, in
// dataset order. An empty substring matches nothing.
func SearchByName(ds Dataset, substring string, caseInsensitive bool) Dataset {
	matches := make([]types.StudentRecord, 0)
	if substring == "" {
		return Dataset{rows: matches, loaded: ds.loaded}
	}

	match := strings.Contains
	if caseInsensitive {
		fold := cases.Fold()
		needle := fold.String(substring)
		match = func(name, _ string) bool {
			return strings.Contains(fold.String(name), needle)
		}
	}

	for _, r := range ds.rows {
		if match(r.Name, substring) {
			matches = append(matches, r)
		}
	}
	return Dataset{rows: matches, loaded: ds.loaded}
}

// Grades returns the distinct grade labels of ds in sorted order.
func Grades(ds Dataset) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range ds.rows {
		if _, ok := seen[r.Grade]; ok {
			continue
		}
		seen[r.Grade] = struct{}{}
		out = append(out, r.Grade)
	}
	slices.Sort(out)
	return out
}

// Summary bundles every dashboard aggregate for one dataset.
type Summary struct {
	Total          int                              `json:"total"`
	Grades         []string                         `json:"grades"`
	Ages           []AgeCount                       `json:"ages"`
	AverageByGrade map[string]float64               `json:"average_by_grade"`
	CountByGrade   map[string]int                   `json:"count_by_grade"`
	TopByGrade     map[string][]types.StudentRecord `json:"top_by_grade"`
	PassFail       PassFail                         `json:"pass_fail"`
}

// Summarize computes the full dashboard for ds.
func Summarize(ds Dataset) Summary {
	return Summary{
		Total:          ds.Len(),
		Grades:         Grades(ds),
		Ages:           AgeDistribution(ds),
		AverageByGrade: AverageByGrade(ds),
		CountByGrade:   GradeDistribution(ds),
		TopByGrade:     TopNByGrade(ds, DefaultTopN),
		PassFail:       PassFailSummary(ds),
	}
}
