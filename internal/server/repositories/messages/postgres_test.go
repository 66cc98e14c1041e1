package messages

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var columns = []string{"message_id", "from_id", "to_id", "username", "username", "content_encrypted", "sent_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	sent := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO messages \(message_id, from_id, to_id, content_encrypted, sent_at\)`).
		WithArgs("m1", int64(1), int64(2), []byte("ct"), sent).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Message{
		ID: "m1", FromID: 1, ToID: 2, ContentEncrypted: []byte("ct"), SentAt: sent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO messages`).WillReturnError(errors.New("fk violation"))

	err := repo.Create(context.Background(), &models.Message{ID: "m1"})
	if err == nil || !regexp.MustCompile(`db error: .*fk violation`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListForRecipient(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	rows := sqlmock.NewRows(columns).
		AddRow("m2", int64(1), int64(2), "alice", "bob", []byte("c2"), t2).
		AddRow("m1", int64(1), int64(2), "alice", "bob", []byte("c1"), t1)

	mock.ExpectQuery(`(?s)WHERE r\.username = \$1 ORDER BY m\.sent_at DESC$`).
		WithArgs("bob").
		WillReturnRows(rows)

	got, err := repo.ListForRecipient(context.Background(), "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m2" || got[1].ID != "m1" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].FromUser != "alice" || got[0].ToUser != "bob" || string(got[0].ContentEncrypted) != "c2" {
		t.Fatalf("unexpected message: %+v", got[0])
	}
}

func TestListForRecipient_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY m\.sent_at DESC`).
		WithArgs("carol").
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.ListForRecipient(context.Background(), "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestListForRecipient_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY`).WillReturnError(errors.New("db down"))
	if _, err := repo.ListForRecipient(context.Background(), "bob"); err == nil {
		t.Fatal("expected query error")
	}

	mock.ExpectQuery(`ORDER BY`).WillReturnRows(
		sqlmock.NewRows(columns).
			AddRow("m1", int64(1), int64(2), "alice", "bob", []byte("c"), time.Now()).
			RowError(0, errors.New("row broke")))
	if _, err := repo.ListForRecipient(context.Background(), "bob"); err == nil {
		t.Fatal("expected row error")
	}
}

func TestGetForRecipient(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)WHERE r\.username = \$1 AND m\.message_id = \$2$`

	mock.ExpectQuery(q).
		WithArgs("bob", "m1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("m1", int64(1), int64(2), "alice", "bob", []byte("c"), time.Now()))

	got, err := repo.GetForRecipient(context.Background(), "bob", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "m1" || got.ToUser != "bob" {
		t.Fatalf("unexpected message: %+v", got)
	}

	mock.ExpectQuery(q).
		WithArgs("carol", "m1").
		WillReturnRows(sqlmock.NewRows(columns))

	if _, err := repo.GetForRecipient(context.Background(), "carol", "m1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}

	mock.ExpectQuery(q).WillReturnError(errors.New("db down"))
	if _, err := repo.GetForRecipient(context.Background(), "bob", "m1"); err == nil || errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want wrapped db error, got %v", err)
	}
}
