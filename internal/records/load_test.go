package records

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-report/internal/types"
)

const sampleCSV = `Name,Grade,Age,Average,Notes
Ana,10,15,4.5,x
Luis,10,16,2.9,
Mariana,11,16,3.0,
ANA,11,17,4.1,
Pedro,10,15,3.7,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	ds, err := Load(writeFile(t, "students.csv", sampleCSV))
	require.NoError(t, err)

	assert.True(t, ds.Loaded())
	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, types.StudentRecord{Name: "Ana", Grade: "10", Age: 15, Average: 4.5}, ds.At(0))
	assert.Equal(t, "Pedro", ds.At(4).Name)
}

func TestLoadSpanishHeaders(t *testing.T) {
	csv := "\ufeffNombre,Grado,Edad,Promedio\nSofía,9,14,\"3,8\"\n"
	ds, err := Load(writeFile(t, "colegio.csv", csv))
	require.NoError(t, err)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, types.StudentRecord{Name: "Sofía", Grade: "9", Age: 14, Average: 3.8}, ds.At(0))
}

func TestLoadHeaderOnlyIsLoadedButEmpty(t *testing.T) {
	ds, err := Load(writeFile(t, "empty.csv", "Name,Grade,Age,Average\n"))
	require.NoError(t, err)

	assert.True(t, ds.Loaded())
	assert.Equal(t, 0, ds.Len())
	assert.NotNil(t, ds.Records())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		cause   error
		line    int
	}{
		{"empty file", "", ErrMalformed, 0},
		{"missing columns", "Name,Grade\nAna,10\n", ErrMissingColumn, 1},
		{"bad age", "Name,Grade,Age,Average\nAna,10,quince,4.0\n", ErrInvalidRecord, 2},
		{"negative age", "Name,Grade,Age,Average\nAna,10,-1,4.0\n", ErrInvalidRecord, 2},
		{"bad average", "Name,Grade,Age,Average\nAna,10,15,n/a\n", ErrInvalidRecord, 2},
		{"nan average", "Name,Grade,Age,Average\nAna,10,15,NaN\n", ErrInvalidRecord, 2},
		{"infinite average", "Name,Grade,Age,Average\nAna,10,15,4.0\nLuis,10,16,Inf\n", ErrInvalidRecord, 3},
		{"signed infinity", "Name,Grade,Age,Average\nAna,10,15,+Infinity\n", ErrInvalidRecord, 2},
		{"empty name", "Name,Grade,Age,Average\n,10,15,4.0\n", ErrInvalidRecord, 2},
		{"short row", "Name,Grade,Age,Average\nAna,10,15,4.0\nLuis,10\n", ErrMalformed, 3},
		{"bad quoting", "Name,Grade,Age,Average\n\"Ana,10,15,4.0\n", ErrMalformed, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tt.content)
			ds, err := Load(path)
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, path, le.Path)
			assert.Equal(t, tt.line, le.Line)
			assert.ErrorIs(t, err, tt.cause)

			assert.False(t, ds.Loaded())
			assert.Equal(t, 0, ds.Len())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	ds, err := Load(filepath.Join(t.TempDir(), "nope.csv"))

	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, ds.Loaded())
}

func TestLoadErrorMessage(t *testing.T) {
	_, err := Parse(strings.NewReader("Name,Grade,Age,Average\nAna,10,x,1\n"))
	require.Error(t, err)
	assert.Equal(t, `load dataset line 2: dataset contains an invalid record: Age "x" is not an integer`, err.Error())
}

func TestDatasetIsImmutable(t *testing.T) {
	rows := []types.StudentRecord{{Name: "Ana", Grade: "10", Age: 15, Average: 4}}
	ds := NewDataset(rows)
	rows[0].Name = "changed"

	got := ds.Records()
	got[0].Average = 0

	assert.Equal(t, "Ana", ds.At(0).Name)
	assert.Equal(t, 4.0, ds.At(0).Average)
}
