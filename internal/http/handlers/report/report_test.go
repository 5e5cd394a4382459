package report

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aanand-mishra/students-report/internal/records"
	"github.com/aanand-mishra/students-report/internal/types"
)

type fixedSource struct {
	ds  records.Dataset
	err error
}

func (f fixedSource) Dataset() (records.Dataset, error) { return f.ds, f.err }

func source() fixedSource {
	return fixedSource{ds: records.NewDataset([]types.StudentRecord{
		{Name: "Ana", Grade: "11", Age: 16, Average: 4.5},
		{Name: "Luis", Grade: "10", Age: 15, Average: 2.5},
		{Name: "Eva", Grade: "10", Age: 15, Average: 3.5},
		{Name: "Tom", Grade: "10", Age: 17, Average: 3.5},
	})}
}

func get(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAges(t *testing.T) {
	rec := get(Ages(source()), "/api/reports/ages")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"age":15,"count":2},{"age":16,"count":1},{"age":17,"count":1}]`, rec.Body.String())
}

func TestAverageByGrade(t *testing.T) {
	rec := get(AverageByGrade(source()), "/api/reports/grades/average")
	assert.JSONEq(t, `[{"grade":"10","average":3.1666666666666665},{"grade":"11","average":4.5}]`, rec.Body.String())
}

func TestCountByGrade(t *testing.T) {
	rec := get(CountByGrade(source()), "/api/reports/grades/count")
	assert.JSONEq(t, `[{"grade":"10","count":3},{"grade":"11","count":1}]`, rec.Body.String())
}

func TestTopByGrade(t *testing.T) {
	rec := get(TopByGrade(source()), "/api/reports/grades/top")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"grade":"10","students":[
			{"name":"Eva","grade":"10","age":15,"average":3.5},
			{"name":"Tom","grade":"10","age":17,"average":3.5}]},
		{"grade":"11","students":[
			{"name":"Ana","grade":"11","age":16,"average":4.5}]}
	]`, rec.Body.String())

	rec = get(TopByGrade(source()), "/api/reports/grades/top?n=1")
	assert.Contains(t, rec.Body.String(), "Eva")
	assert.NotContains(t, rec.Body.String(), "Tom")

	for _, bad := range []string{"0", "-1", "two"} {
		rec = get(TopByGrade(source()), "/api/reports/grades/top?n="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestPassFail(t *testing.T) {
	rec := get(PassFail(source()), "/api/reports/pass-fail")
	assert.JSONEq(t, `{"passed":3,"failed":1}`, rec.Body.String())
}

func TestSummary(t *testing.T) {
	rec := get(Summary(source()), "/api/reports/summary")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":4`)
	assert.Contains(t, rec.Body.String(), `"pass_fail":{"passed":3,"failed":1}`)
}

func TestDatasetUnavailable(t *testing.T) {
	src := fixedSource{ds: records.Empty, err: &records.LoadError{Path: "x.csv", Reason: "no such file", Err: records.ErrSourceMissing}}

	for _, h := range []http.HandlerFunc{Summary(src), Ages(src), AverageByGrade(src), CountByGrade(src), TopByGrade(src), PassFail(src)} {
		rec := get(h, "/")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"error","error":"load dataset x.csv: no such file"}`, rec.Body.String())
	}
}

func TestEmptyDatasetGivesEmptyArrays(t *testing.T) {
	src := fixedSource{ds: records.NewDataset(nil)}

	assert.JSONEq(t, `[]`, get(Ages(src), "/").Body.String())
	assert.JSONEq(t, `[]`, get(AverageByGrade(src), "/").Body.String())
	assert.JSONEq(t, `[]`, get(TopByGrade(src), "/").Body.String())
	assert.JSONEq(t, `{"passed":0,"failed":0}`, get(PassFail(src), "/").Body.String())
}
