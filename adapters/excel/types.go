package excel

// RawRowData represents a row of raw spreadsheet data as string key-value pairs
type RawRowData map[string]string

// TableData represents a complete tabular case file
type TableData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
