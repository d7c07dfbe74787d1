package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tumorexpr/domain/dataset"
	apperrors "tumorexpr/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet read from XLSX workbooks
const DefaultSheet = "Sheet1"

// DataReader handles reading Excel and CSV files into raw tables
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	return &DataReader{filePath: filePath, fileType: DetectFileType(filePath), sheet: DefaultSheet}
}

// WithSheet selects a worksheet other than Sheet1 for XLSX input
func (r *DataReader) WithSheet(sheet string) *DataReader {
	r.sheet = sheet
	return r
}

// DetectFileType maps a file name to "csv" or "xlsx"
func DetectFileType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return "xlsx"
	default:
		return "csv"
	}
}

// ReadTable reads the file into a RawTable. Any I/O or parse failure is
// returned as an IO_ERROR naming the path.
func (r *DataReader) ReadTable() (*dataset.RawTable, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, apperrors.IOError(r.filePath, err)
	}
	defer file.Close()

	return ReadFrom(file, r.filePath, r.fileType, r.sheet)
}

// ReadBytes parses an in-memory upload, using name to pick the format
func ReadBytes(data []byte, name string) (*dataset.RawTable, error) {
	return ReadFrom(bytes.NewReader(data), name, DetectFileType(name), DefaultSheet)
}

// ReadFrom parses a CSV or XLSX stream. source only labels errors and logs.
func ReadFrom(src io.Reader, source, fileType, sheet string) (*dataset.RawTable, error) {
	startTime := time.Now()

	var (
		rows [][]string
		err  error
	)
	switch fileType {
	case "csv":
		rows, err = readCSVRows(src)
	case "xlsx":
		rows, err = readExcelRows(src, sheet)
	default:
		err = fmt.Errorf("unsupported file type: %s", fileType)
	}
	if err != nil {
		return nil, apperrors.IOError(source, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.IOError(source, fmt.Errorf("file has no header row"))
	}

	table := processRows(rows, source)
	log.Printf("[DataReader] %s read in %.2fms (%d columns, %d rows)",
		source, float64(time.Since(startTime).Nanoseconds())/1e6, table.ColumnCount(), table.RowCount())
	return table, nil
}

func readCSVRows(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func readExcelRows(src io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	return rows, nil
}

// processRows splits off the header and trims every cell
func processRows(rows [][]string, source string) *dataset.RawTable {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		header = strings.TrimPrefix(header, "\ufeff")
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		dataRows = append(dataRows, cells)
	}

	return &dataset.RawTable{Source: source, Header: headers, Rows: dataRows}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
