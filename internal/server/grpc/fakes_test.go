package grpc

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/rpcapi"
	"github.com/dmitrijs2005/securemsg/internal/server/auth"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

var errBoom = errors.New("boom")

type fakeUsers struct {
	mu          sync.Mutex
	passwords   map[string]string
	tokens      *auth.TokenService
	registerErr error
	existsErr   error
}

func (f *fakeUsers) Register(_ context.Context, username, password, email string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.passwords[username]; ok {
		return nil, common.ErrDuplicateUser
	}
	f.passwords[username] = password
	return &models.User{UserName: username, Email: email}, nil
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
	for _, m := range f.stored {
		if m.ToUser == username {
			out = append(out, m)
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

type fixture struct {
	users    *fakeUsers
	messages *fakeMessages
	server   *GRPCServer
	client   rpcapi.MessengerClient
}

func newTestServer(t *testing.T) *fixture {
	t.Helper()

	tokens, err := auth.NewTokenService([]byte("secret"), time.Minute, auth.NewMemoryRevocationStore())
	require.NoError(t, err)

	f := &fixture{
		users:    &fakeUsers{passwords: map[string]string{}, tokens: tokens},
		messages: &fakeMessages{},
	}
	f.server = NewGRPCServer("bufnet", logging.Nop(), f.users, f.messages)
	return f
}

// start serves the fixture over an in-memory listener and connects a client.
func (f *fixture) start(t *testing.T) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.server.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})

	f.client = rpcapi.NewMessengerClient(conn)
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
}
