package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"qcalab/domain/qca"
	"qcalab/internal"
	"qcalab/ports"
)

// DataReader handles reading Excel and CSV case files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger.With("data_reader")}
}

// ReadTable reads the file into headers and string rows
func (r *DataReader) ReadTable() (*TableData, error) {
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads Sheet1, or the first sheet when there is no Sheet1
func (r *DataReader) readExcelData() (*TableData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := "Sheet1"
	sheets := f.GetSheetList()
	found := false
	for _, s := range sheets {
		if s == sheet {
			found = true
			break
		}
	}
	if !found {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", sheet,
		float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

func (r *DataReader) readCSVData() (*TableData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// processRows converts raw string rows into TableData, skipping blank lines
func (r *DataReader) processRows(rows [][]string) (*TableData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData)
		blank := true
		for j, cell := range rows[i] {
			if j < len(headers) {
				value := strings.TrimSpace(cell)
				rowData[headers[j]] = value
				if value != "" {
					blank = false
				}
			}
		}
		if !blank {
			dataRows = append(dataRows, rowData)
		}
	}

	r.logger.Debug("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &TableData{Headers: headers, Rows: dataRows}, nil
}

// Common case id column names, checked in order
var commonCaseColumns = []string{
	"case_id",
	"case",
	"id",
	"interview_id",
	"interview",
	"respondent_id",
	"participant_id",
}

// DetectCaseColumn finds the column holding case ids. Known names are tried
// first, then the first column; the column must be non-empty and unique.
func DetectCaseColumn(data *TableData) (string, error) {
	if len(data.Rows) == 0 {
		return "", fmt.Errorf("no data rows found")
	}
	for _, colName := range commonCaseColumns {
		for _, header := range data.Headers {
			if strings.ToLower(header) == colName && isValidCaseColumn(data, header) {
				return header, nil
			}
		}
	}
	if len(data.Headers) > 0 && isValidCaseColumn(data, data.Headers[0]) {
		return data.Headers[0], nil
	}
	return "", fmt.Errorf("could not detect a case id column")
}

func isValidCaseColumn(data *TableData, columnName string) bool {
	seen := make(map[string]bool, len(data.Rows))
	for _, row := range data.Rows {
		value := row[columnName]
		if value == "" || seen[value] {
			return false
		}
		seen[value] = true
	}
	return true
}

// ParseMembership coerces a cell to 0 or 1. ok is false for an empty cell.
func ParseMembership(cell string) (value int, ok bool, err error) {
	s := strings.ToLower(strings.TrimSpace(cell))
	switch s {
	case "":
		return 0, false, nil
	case "1", "true", "yes", "y", "x", "t":
		return 1, true, nil
	case "0", "false", "no", "n", "f", "-":
		return 0, true, nil
	}
	if f, perr := strconv.ParseFloat(s, 64); perr == nil {
		switch f {
		case 0:
			return 0, true, nil
		case 1:
			return 1, true, nil
		}
	}
	return 0, false, fmt.Errorf("value %q is not a crisp membership (0/1, true/false, yes/no)", cell)
}

// ToData converts a table into engine input. Outcomes default to columns
// with the outcome_ prefix; conditions default to every other column.
func ToData(table *TableData, spec ports.MatrixSpec) (qca.Data, error) {
	idColumn := spec.CaseIDColumn
	if idColumn == "" {
		detected, err := DetectCaseColumn(table)
		if err != nil {
			return qca.Data{}, qca.NewCaseMatrixError("%v", err)
		}
		idColumn = detected
	}

	outcomes := spec.Outcomes
	if len(outcomes) == 0 {
		for _, h := range table.Headers {
			if h != idColumn && strings.HasPrefix(h, qca.DefaultOutcomeTag) {
				outcomes = append(outcomes, h)
			}
		}
	}
	conditions := spec.Conditions
	if len(conditions) == 0 {
		isOutcome := make(map[string]bool, len(outcomes))
		for _, o := range outcomes {
			isOutcome[o] = true
		}
		for _, h := range table.Headers {
			if h != idColumn && h != "" && !isOutcome[h] {
				conditions = append(conditions, h)
			}
		}
	}

	present := make(map[string]bool, len(table.Headers))
	for _, h := range table.Headers {
		present[h] = true
	}
	for _, name := range append(append([]string{idColumn}, conditions...), outcomes...) {
		if !present[name] {
			return qca.Data{}, qca.NewCaseMatrixError("column %q not found", name)
		}
	}

	matrix := make(qca.CaseMatrix, 0, len(table.Rows))
	for i, row := range table.Rows {
		caseRow := qca.CaseRow{CaseID: row[idColumn], Values: make(map[string]int, len(conditions)+len(outcomes))}
		for _, name := range append(append([]string{}, conditions...), outcomes...) {
			v, ok, err := ParseMembership(row[name])
			if err != nil {
				return qca.Data{}, qca.NewCaseMatrixError("row %d column %q: %v", i+2, name, err)
			}
			if ok {
				caseRow.Values[name] = v
			}
		}
		matrix = append(matrix, caseRow)
	}

	return qca.Data{CaseMatrix: matrix, Conditions: conditions, Outcomes: outcomes}, nil
}

// MatrixReader reads case matrices from CSV or XLSX files
type MatrixReader struct {
	logger *internal.Logger
}

// NewMatrixReader creates a tabular matrix reader
func NewMatrixReader(logger *internal.Logger) *MatrixReader {
	return &MatrixReader{logger: logger}
}

// ReadMatrix implements ports.MatrixReader
func (m *MatrixReader) ReadMatrix(path string, spec ports.MatrixSpec) (qca.Data, error) {
	table, err := NewDataReader(path, m.logger).ReadTable()
	if err != nil {
		return qca.Data{}, err
	}
	return ToData(table, spec)
}

var _ ports.MatrixReader = (*MatrixReader)(nil)
