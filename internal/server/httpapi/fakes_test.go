package httpapi

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/server/auth"
	"github.com/dmitrijs2005/securemsg/internal/server/config"
	"github.com/dmitrijs2005/securemsg/internal/server/metrics"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakeUsers keeps plaintext passwords in memory and delegates tokens to a
// real TokenService.
type fakeUsers struct {
	mu        sync.Mutex
	passwords map[string]string
	tokens    *auth.TokenService
	existsErr error
	logoutErr error
}

func (f *fakeUsers) Register(_ context.Context, username, password, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[username]; ok {
		return nil, common.ErrDuplicateUser
	}
	f.passwords[username] = password
	return &models.User{ID: int64(len(f.passwords)), UserName: username, Email: email, CreatedAt: time.Now()}, nil
}

func (f *fakeUsers) Login(_ context.Context, username, password string) (*auth.Token, error) {
	f.mu.Lock()
	p, ok := f.passwords[username]
	f.mu.Unlock()
	if !ok || p != password {
		return nil, common.ErrInvalidCredentials
	}
	return f.tokens.Issue(username)
}

func (f *fakeUsers) Logout(ctx context.Context, raw string) error {
	if f.logoutErr != nil {
		return f.logoutErr
	}
	return f.tokens.Revoke(ctx, raw)
}

func (f *fakeUsers) Authenticate(ctx context.Context, raw string) (*auth.Identity, error) {
	return f.tokens.Verify(ctx, raw)
}

func (f *fakeUsers) UserExists(_ context.Context, username string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.passwords[username]
	return ok, nil
}

type fakeMessages struct {
	mu      sync.Mutex
	stored  []*models.Message
	sendErr error
}

func (f *fakeMessages) Send(_ context.Context, from, to, content string) (*models.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &models.Message{ID: uuid.NewString(), FromUser: from, ToUser: to, Content: content, SentAt: time.Now().UTC()}
	f.stored = append(f.stored, m)
	return m, nil
}

func (f *fakeMessages) ListForRecipient(_ context.Context, username string) []*models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Message{}
	for i := len(f.stored) - 1; i >= 0; i-- {
		if f.stored[i].ToUser == username {
			out = append(out, f.stored[i])
		}
	}
	return out
}

func (f *fakeMessages) GetByID(_ context.Context, username, id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.stored {
		if m.ID == id && m.ToUser == username {
			return m, nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeExport struct {
	archive   []byte
	err       error
	key, url  string
	uploadErr error
}

func (f *fakeExport) WriteArchive(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write(f.archive)
	return err
}

func (f *fakeExport) Upload(context.Context) (string, string, error) {
	return f.key, f.url, f.uploadErr
}

type fixture struct {
	users    *fakeUsers
	messages *fakeMessages
	export   *fakeExport
	config   *config.Config
	handler  *Handler
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	tokens, err := auth.NewTokenService([]byte("test-secret"), time.Minute, auth.NewMemoryRevocationStore())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AdminUsers = []string{"root"}
	cfg.LoginRatePerMinute = 0
	for _, m := range mutate {
		m(cfg)
	}

	f := &fixture{
		users:    &fakeUsers{passwords: map[string]string{}, tokens: tokens},
		messages: &fakeMessages{},
		export:   &fakeExport{archive: []byte("PK\x05\x06"), key: "exports/x.zip", url: "http://s3/exports/x.zip"},
		config:   cfg,
	}
	f.handler = NewHandler(f.users, f.messages, f.export, cfg, logging.Nop(), metrics.NewRegistry())
	return f
}
