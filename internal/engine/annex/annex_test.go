package annex

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleEntries() []Entry {
	return []Entry{
		{Code: "A05", Term: "Mechanical Problem"},
		{Code: "A0501", Term: "Break"},
		{Code: "A050101", Term: "Fracture"},
		{Code: "A07", Term: "Electrical / Electronic Property Problem"},
		{Code: "A0703", Term: "Power Problem."},
		{Code: "A05", Term: "Duplicate Should Lose"},
		{Code: "A1", Term: "Bad length"},
	}
}

func TestNewHierarchy(t *testing.T) {
	tab := New(sampleEntries())
	require.Equal(t, 5, tab.Len())

	roots := tab.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "A05", roots[0].Code)
	assert.Equal(t, "Mechanical Problem", roots[0].Term)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "A0501", roots[0].Children[0].Code)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, "A050101", roots[0].Children[0].Children[0].Code)
	assert.Equal(t, 3, roots[0].Children[0].Children[0].Level)
}

func TestLookupTerm(t *testing.T) {
	tab := New(sampleEntries())

	e, ok := tab.LookupTerm("  FRACTURE ")
	require.True(t, ok)
	assert.Equal(t, "A050101", e.Code)

	e, ok = tab.LookupTerm("electrical/electronic property problem")
	require.True(t, ok)
	assert.Equal(t, "A07", e.Code)

	e, ok = tab.LookupTerm("Power   Problem;")
	require.True(t, ok)
	assert.Equal(t, "A0703", e.Code)

	_, ok = tab.LookupTerm("nan")
	assert.False(t, ok)
}

func TestConsistent(t *testing.T) {
	tab := New(sampleEntries())
	assert.True(t, tab.Consistent("A05", "", ""))
	assert.True(t, tab.Consistent("A05", "A0501", "A050101"))
	assert.False(t, tab.Consistent("A05", "A0703", ""))
	assert.False(t, tab.Consistent("A05", "", "A050101"))
	assert.False(t, tab.Consistent("", "", ""))
	assert.False(t, tab.Consistent("Z99", "", ""))
}

func TestNilTable(t *testing.T) {
	var tab *Table
	assert.Zero(t, tab.Len())
	_, ok := tab.Lookup("A05")
	assert.False(t, ok)
	_, ok = tab.LookupTerm("Break")
	assert.False(t, ok)
	assert.Nil(t, tab.Roots())
}

func TestNormTerm(t *testing.T) {
	assert.Equal(t, "electrical/electronic", NormTerm(" Electrical  /  Electronic. "))
	assert.Equal(t, "", NormTerm("None"))
	assert.Equal(t, NormTerm(NotAvailableTerm), "appropriate term/code not available")
}

func TestReadCSVForwardFill(t *testing.T) {
	in := strings.Join([]string{
		"IMDRF Annex A,,,",
		"Level 1 Term,Level 2 Term,Level 3 Term,Code",
		"Mechanical Problem,,,A05",
		",Break,,A0501",
		",,Fracture,A050101",
		",Crack,,A0502",
		",,,",
	}, "\n")
	tab, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 4, tab.Len())
	assert.Equal(t, "Crack", tab.Term("A0502"))
	assert.Equal(t, "Fracture", tab.Term("A050101"))
}

func TestReadCSVNoHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b,c\n1,2,3\n"))
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annex.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Annex A - Medical device problem"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Level 1 Term", "Level 2 Term", "Level 3 Term", "Code", "Definition"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"Mechanical Problem", "", "", "A05"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A5", &[]any{"", "Break", "", "A0501"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A6", &[]any{"", "", "Fracture", "A050101"}))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]any{"no header here"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tab, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tab.Len())
	e, ok := tab.Lookup("A050101")
	require.True(t, ok)
	assert.Equal(t, 3, e.Level)
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("annex.json")
	assert.Error(t, err)
}
