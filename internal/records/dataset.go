// Package records loads the student dataset from CSV and answers the
// aggregation queries behind every dashboard chart.
//
// A Dataset is immutable once loaded. Every aggregation in this package
// is a pure function of a Dataset: no hidden state, no panics on empty
// input, no division by zero.
package records

import (
	"github.com/aanand-mishra/students-report/internal/types"
)

// PassThreshold is the minimum Average that counts as passing.
// The comparison is inclusive: 3.0 passes.
const PassThreshold = 3.0

// DefaultTopN is the number of best averages reported per grade.
const DefaultTopN = 2

// Dataset is an ordered, read-only sequence of student records.
//
// The zero value is the Empty sentinel returned when a load fails. It is
// distinguishable from a successfully loaded file with zero rows through
// Loaded().
type Dataset struct {
	rows   []types.StudentRecord
	loaded bool
}

// Empty is returned alongside every load error.
var Empty = Dataset{}

// NewDataset builds a loaded Dataset from rows. The slice is copied so
// the caller cannot mutate the dataset afterwards.
func NewDataset(rows []types.StudentRecord) Dataset {
	cp := make([]types.StudentRecord, len(rows))
	copy(cp, rows)
	return Dataset{rows: cp, loaded: true}
}

// Loaded reports whether the dataset came from a successful load.
func (d Dataset) Loaded() bool { return d.loaded }

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.rows) }

// At returns the i-th record in original order.
func (d Dataset) At(i int) types.StudentRecord { return d.rows[i] }

// Records returns a copy of all records in original order.
// The result is never nil so it encodes as [] rather than null.
func (d Dataset) Records() []types.StudentRecord {
	cp := make([]types.StudentRecord, len(d.rows))
	copy(cp, d.rows)
	return cp
}

// Passed reports the derived pass state of a single record.
func Passed(r types.StudentRecord) bool {
	return r.Average >= PassThreshold
}
