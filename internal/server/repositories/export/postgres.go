// Package export reads raw table contents for the bulk export.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/dbx"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SetStatementTimeout limits every following statement in the current
// transaction. Outside a transaction it has no lasting effect.
func (r *PostgresRepository) SetStatementTimeout(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	// SET does not take bind parameters; the value is an integer.
	query := fmt.Sprintf("SET LOCAL statement_timeout = %d", d.Milliseconds())
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListTables returns base tables of the public schema ordered by name.
func (r *PostgresRepository) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// DumpTable returns every row of name ordered by its first column. name is
// quoted as an identifier; it must still come from ListTables.
func (r *PostgresRepository) DumpTable(ctx context.Context, name string) (*models.Table, error) {
	query := "SELECT * FROM " + pgx.Identifier{"public", name}.Sanitize() + " ORDER BY 1"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	table := &models.Table{Name: name, Columns: cols, Rows: []models.Row{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(models.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
