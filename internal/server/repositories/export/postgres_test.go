package export

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock, db
}

func TestSetStatementTimeout(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec("SET LOCAL statement_timeout = 5000").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetStatementTimeout(context.Background(), 5*time.Second))
	require.NoError(t, repo.SetStatementTimeout(context.Background(), 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTables(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(`information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("goose_db_version").AddRow("messages").AddRow("users"))

	got, err := repo.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"goose_db_version", "messages", "users"}, got)

	mock.ExpectQuery(`information_schema\.tables`).WillReturnError(errors.New("db down"))
	_, err = repo.ListTables(context.Background())
	assert.ErrorContains(t, err, "db error")
}

func TestDumpTable_QuotesIdentifier(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT * FROM "public"."users" ORDER BY 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "salt", "created_at"}).
			AddRow(int64(1), "alice", []byte{0xde, 0xad}, created).
			AddRow(int64(2), "bob", []byte{0xbe, 0xef}, created))

	got, err := repo.DumpTable(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "users", got.Name)
	assert.Equal(t, []string{"id", "username", "salt", "created_at"}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "alice", got.Rows[0]["username"])
	assert.Equal(t, []byte{0xbe, 0xef}, got.Rows[1]["salt"])

	mock.ExpectQuery(`SELECT * FROM "public"."we""ird" ORDER BY 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err = repo.DumpTable(context.Background(), `we"ird`)
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
	require.NoError(t, mock.ExpectationsWereMet())
}
