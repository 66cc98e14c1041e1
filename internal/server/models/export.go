package models

// Row is one exported table row keyed by column name.
type Row map[string]any

// Table is an exported table with its column order preserved.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}
