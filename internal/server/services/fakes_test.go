package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/cryptox"
	"github.com/dmitrijs2005/securemsg/internal/dbx"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/export"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/messages"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

var cheapParams = cryptox.PasswordParams{Time: 1, MemoryKB: 64, Threads: 1, KeyLen: 32}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// memStore is an in-memory users+messages store shared by the fake repos.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[string]*models.User
	messages []*models.Message

	usersErr    error
	messagesErr error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}}
}

type fakeUsersRepo struct{ s *memStore }

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	if _, ok := f.s.users[u.UserName]; ok {
		return nil, common.ErrDuplicateUser
	}
	f.s.nextID++
	cp := *u
	cp.ID = f.s.nextID
	cp.CreatedAt = time.Now()
	f.s.users[u.UserName] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUsersRepo) GetUserByLogin(_ context.Context, name string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	u, ok := f.s.users[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) Exists(_ context.Context, name string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return false, f.s.usersErr
	}
	_, ok := f.s.users[name]
	return ok, nil
}

type fakeMessagesRepo struct{ s *memStore }

func (f *fakeMessagesRepo) Create(_ context.Context, m *models.Message) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.messagesErr != nil {
		return f.s.messagesErr
	}
	cp := *m
	cp.Content = ""
	cp.FromUser, cp.ToUser = "", ""
	f.s.messages = append(f.s.messages, &cp)
	return nil
}

func (f *fakeMessagesRepo) resolve(m *models.Message) *models.Message {
	cp := *m
	for name, u := range f.s.users {
		if u.ID == m.FromID {
			cp.FromUser = name
		}
		if u.ID == m.ToID {
			cp.ToUser = name
		}
	}
	return &cp
}

func (f *fakeMessagesRepo) ListForRecipient(_ context.Context, username string) ([]*models.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.messagesErr != nil {
		return nil, f.s.messagesErr
	}
	out := []*models.Message{}
	for _, m := range f.s.messages {
		r := f.resolve(m)
		if r.ToUser == username {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (f *fakeMessagesRepo) GetForRecipient(_ context.Context, username, id string) (*models.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.messagesErr != nil {
		return nil, f.s.messagesErr
	}
	for _, m := range f.s.messages {
		r := f.resolve(m)
		if r.ID == id && r.ToUser == username {
			return r, nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeExportRepo struct {
	tables     map[string]*models.Table
	timeoutErr error
	listErr    error
	dumpErr    error
	timeout    time.Duration
}

func (f *fakeExportRepo) SetStatementTimeout(_ context.Context, d time.Duration) error {
	f.timeout = d
	return f.timeoutErr
}

func (f *fakeExportRepo) ListTables(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.tables))
	for n := range f.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeExportRepo) DumpTable(_ context.Context, name string) (*models.Table, error) {
	if f.dumpErr != nil {
		return nil, f.dumpErr
	}
	return f.tables[name], nil
}

type fakeRepoManager struct {
	store  *memStore
	export *fakeExportRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{store: newMemStore(), export: &fakeExportRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return &fakeUsersRepo{m.store} }
func (m *fakeRepoManager) Messages(dbx.DBTX) messages.Repository       { return &fakeMessagesRepo{m.store} }
func (m *fakeRepoManager) Export(dbx.DBTX) export.Repository           { return m.export }
