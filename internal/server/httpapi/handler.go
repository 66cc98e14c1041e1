// Package httpapi is the JSON-over-HTTP boundary of the messaging server.
// It validates input, authenticates requests and maps service errors to
// status codes; it holds no state of its own beyond rate limiters.
package httpapi

import (
	"context"
	"io"
	"net/netip"

	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/server/auth"
	"github.com/dmitrijs2005/securemsg/internal/server/config"
	"github.com/dmitrijs2005/securemsg/internal/server/metrics"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
)

type UserService interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Logout(ctx context.Context, raw string) error
	Authenticate(ctx context.Context, raw string) (*auth.Identity, error)
	UserExists(ctx context.Context, username string) (bool, error)
}

type MessageService interface {
	Send(ctx context.Context, from, to, content string) (*models.Message, error)
	ListForRecipient(ctx context.Context, username string) []*models.Message
	GetByID(ctx context.Context, username, id string) (*models.Message, error)
}

type ExportService interface {
	WriteArchive(ctx context.Context, w io.Writer) error
	Upload(ctx context.Context) (string, string, error)
}

// Handler serves the HTTP API.
type Handler struct {
	users    UserService
	messages MessageService
	export   ExportService
	config   *config.Config
	logger   logging.Logger
	metrics  *metrics.Registry
	limiter  *ipLimiter

	trustedProxies []netip.Prefix
}

func NewHandler(us UserService, ms MessageService, es ExportService, cfg *config.Config,
	l logging.Logger, mr *metrics.Registry) *Handler {
	h := &Handler{
		users:    us,
		messages: ms,
		export:   es,
		config:   cfg,
		logger:   l.With("module", "http_server"),
		metrics:  mr,
		limiter:  newIPLimiter(cfg.LoginRatePerMinute),
	}

	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		h.logger.Warn(context.Background(), "ignoring trusted proxies", "error", err)
	}
	h.trustedProxies = trusted
	return h
}
