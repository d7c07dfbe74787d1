package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	apperrors "tumorexpr/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadBytesCSV(t *testing.T) {
	data := []byte("\ufeffstructure_color, survival_days\n218FA5,100\n\nD104D0 , 250\n")

	table, err := ReadBytes(data, "meta.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"structure_color", "survival_days"}, table.Header)
	assert.Equal(t, 2, table.RowCount())
	assert.Equal(t, "D104D0", table.Cell(1, 0))
	assert.Equal(t, "meta.csv", table.Source)
}

func TestReadBytesRaggedRows(t *testing.T) {
	table, err := ReadBytes([]byte(",s1,s2\nGENE1,1.0\n"), "expr.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, table.ColumnCount())
	assert.Equal(t, "", table.Cell(0, 2))
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow(DefaultSheet, "A1", &[]interface{}{"gene", "s1", "s2"}))
	require.NoError(t, f.SetSheetRow(DefaultSheet, "A2", &[]interface{}{"EGFR", 1.5, 2.5}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ReadBytes(buf.Bytes(), "expr.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"gene", "s1", "s2"}, table.Header)
	assert.Equal(t, []string{"EGFR", "1.5", "2.5"}, table.Rows[0])
}

func TestReadTableFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	table, err := NewDataReader(path).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, 1, table.RowCount())
}

func TestReadTableMissingFileNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")

	_, err := NewDataReader(path).ReadTable()
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIOError, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), path)
}

func TestReadEmptyInput(t *testing.T) {
	_, err := ReadBytes(nil, "empty.csv")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIOError, apperrors.GetCode(err))
}
