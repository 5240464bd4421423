package grid

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	book := excelize.NewFile()
	t.Cleanup(func() { _ = book.Close() })

	require.NoError(t, book.SetCellValue("Sheet1", "A1", "AB-SA-T000001"))
	require.NoError(t, book.SetCellValue("Sheet1", "A2", "1/15/24"))
	require.NoError(t, book.SetCellValue("Sheet1", "T3", "150.00"))
	_, err := book.NewSheet("Returns")
	require.NoError(t, err)
	require.NoError(t, book.SetCellValue("Returns", "A1", "AB-HP-T000002"))

	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestFromXLSXReadsFirstSheetByDefault(t *testing.T) {
	g, err := FromXLSX(buildWorkbook(t), "")
	require.NoError(t, err)

	require.Len(t, g, 3)
	assert.Equal(t, "AB-SA-T000001", g.Cell(0, 0))
	assert.Equal(t, "1/15/24", g.Cell(1, 0))
	assert.Equal(t, "150.00", g.Cell(2, 19))
	assert.Equal(t, "", g.Cell(2, 40))
}

func TestFromXLSXNamedSheet(t *testing.T) {
	g, err := FromXLSX(buildWorkbook(t), "Returns")
	require.NoError(t, err)
	assert.Equal(t, "AB-HP-T000002", g.Cell(0, 0))

	_, err = FromXLSX(buildWorkbook(t), "Missing")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestFromCSVStripsBOMAndAllowsRaggedRows(t *testing.T) {
	g, err := FromCSV(strings.NewReader("\xEF\xBB\xBFAB-SA-T000001,\n1/15/24,,,,,\nJANE"))
	require.NoError(t, err)

	require.Len(t, g, 3)
	assert.Equal(t, "AB-SA-T000001", g.Cell(0, 0))
	assert.Len(t, g[1], 6)
	assert.Equal(t, "JANE", g.Cell(2, 0))
}

func TestFromCSVEmpty(t *testing.T) {
	_, err := FromCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Load(path, "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("AB-SA-T000001\nJANE\n"), 0o600))

	g, err := Load(path, "")
	require.NoError(t, err)
	assert.Len(t, g, 2)
}
