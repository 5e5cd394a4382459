package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-report/internal/types"
)

// Sentinel causes carried by LoadError. Match them with errors.Is.
var (
	ErrSourceMissing = errors.New("dataset source does not exist")
	ErrMalformed     = errors.New("dataset is malformed")
	ErrMissingColumn = errors.New("dataset is missing a required column")
	ErrInvalidRecord = errors.New("dataset contains an invalid record")
)

// LoadError describes why a dataset could not be loaded.
// Line is the 1-based CSV line of the offending row, or 0 when the
// failure is not tied to a row.
type LoadError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load dataset")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// column identifies one of the required dataset columns.
type column int

const (
	colName column = iota
	colGrade
	colAge
	colAverage
	numColumns
)

var columnNames = [numColumns]string{"Name", "Grade", "Age", "Average"}

// headerAliases maps a normalised header cell to the column it fills.
// The Spanish names are the ones used by the school's export.
var headerAliases = map[string]column{
	"name":     colName,
	"nombre":   colName,
	"grade":    colGrade,
	"grado":    colGrade,
	"age":      colAge,
	"edad":     colAge,
	"average":  colAverage,
	"promedio": colAverage,
}

var validate = validator.New()

// Load reads the CSV file at path. On any failure it returns Empty and a
// *LoadError; it never panics and never exits the process.
func Load(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		cause := err
		if errors.Is(err, os.ErrNotExist) {
			cause = errors.Join(ErrSourceMissing, err)
		}
		return Empty, &LoadError{Path: path, Reason: err.Error(), Err: cause}
	}
	defer f.Close()

	return parseFrom(path, f)
}

// parseFrom is Parse with path recorded on any LoadError.
func parseFrom(path string, r io.Reader) (Dataset, error) {
	ds, err := Parse(r)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return Empty, err
	}
	return ds, nil
}

// Parse reads a CSV dataset from r. The header row is required; extra
// columns are ignored and header names are matched case-insensitively.
func Parse(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Empty, &LoadError{Reason: "empty input: no header row", Err: ErrMalformed}
	}
	if err != nil {
		return Empty, &LoadError{Reason: err.Error(), Err: errors.Join(ErrMalformed, err)}
	}

	idx, err := mapHeader(header)
	if err != nil {
		return Empty, err
	}

	rows := make([]types.StudentRecord, 0)
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			le := &LoadError{Reason: err.Error(), Err: errors.Join(ErrMalformed, err)}
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				le.Line = pe.StartLine
			}
			return Empty, le
		}
		line, _ := cr.FieldPos(0)
		if isBlank(cells) {
			continue
		}

		rec, err := parseRow(cells, idx)
		if err != nil {
			return Empty, &LoadError{Line: line, Reason: err.Error(), Err: err}
		}
		rows = append(rows, rec)
	}

	return Dataset{rows: rows, loaded: true}, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}

	for i, cell := range header {
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		c, ok := headerAliases[strings.ToLower(strings.TrimSpace(cell))]
		if !ok || idx[c] >= 0 {
			continue
		}
		idx[c] = i
	}

	var missing []string
	for c, pos := range idx {
		if pos < 0 {
			missing = append(missing, columnNames[c])
		}
	}
	if len(missing) > 0 {
		return idx, &LoadError{
			Line:   1,
			Reason: "missing required columns: " + strings.Join(missing, ", "),
			Err:    ErrMissingColumn,
		}
	}
	return idx, nil
}

func parseRow(cells []string, idx [numColumns]int) (types.StudentRecord, error) {
	cell := func(c column) (string, error) {
		if idx[c] >= len(cells) {
			return "", fmt.Errorf("%w: column %s is absent from the row", ErrMalformed, columnNames[c])
		}
		return strings.TrimSpace(cells[idx[c]]), nil
	}

	var rec types.StudentRecord
	var err error

	if rec.Name, err = cell(colName); err != nil {
		return rec, err
	}
	if rec.Grade, err = cell(colGrade); err != nil {
		return rec, err
	}

	age, err := cell(colAge)
	if err != nil {
		return rec, err
	}
	if rec.Age, err = strconv.Atoi(age); err != nil {
		return rec, fmt.Errorf("%w: Age %q is not an integer", ErrInvalidRecord, age)
	}

	avg, err := cell(colAverage)
	if err != nil {
		return rec, err
	}
	// Some exports use a decimal comma.
	if rec.Average, err = strconv.ParseFloat(strings.Replace(avg, ",", ".", 1), 64); err != nil {
		return rec, fmt.Errorf("%w: Average %q is not a number", ErrInvalidRecord, avg)
	}
	if math.IsNaN(rec.Average) || math.IsInf(rec.Average, 0) {
		return rec, fmt.Errorf("%w: Average %q is not a finite number", ErrInvalidRecord, avg)
	}

	if err := validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return rec, fmt.Errorf("%w: field %s failed %q", ErrInvalidRecord, verrs[0].Field(), verrs[0].ActualTag())
		}
		return rec, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return rec, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
