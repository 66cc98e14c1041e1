package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/cryptox"
	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/server/metrics"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// MessageService encrypts message content on the way into the store and
// decrypts it on the way out. The message ID is bound to the ciphertext as
// additional data, so content copied to another row fails to open.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      cryptox.Cipher
	log         logging.Logger
	metrics     *metrics.Registry
	now         func() time.Time
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager, cipher cryptox.Cipher,
	log logging.Logger, mr *metrics.Registry) *MessageService {
	return &MessageService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		log:         log.With("module", "messages"),
		metrics:     mr,
		now:         time.Now,
	}
}

// Send stores an encrypted message from one user to another.
func (s *MessageService) Send(ctx context.Context, from, to, content string) (*models.Message, error) {
	usersRepo := s.repomanager.Users(s.db)

	recipient, err := usersRepo.GetUserByLogin(ctx, to)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnknownRecipient
		}
		s.log.Error(ctx, "load recipient failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	sender, err := usersRepo.GetUserByLogin(ctx, from)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnknownSender
		}
		s.log.Error(ctx, "load sender failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	msg := &models.Message{
		ID:       uuid.NewString(),
		FromID:   sender.ID,
		ToID:     recipient.ID,
		FromUser: sender.UserName,
		ToUser:   recipient.UserName,
		Content:  content,
		SentAt:   s.now().UTC().Truncate(time.Microsecond),
	}

	msg.ContentEncrypted, err = s.cipher.Seal([]byte(content), []byte(msg.ID))
	if err != nil {
		s.log.Error(ctx, "encrypt message failed", "error", err)
		return nil, common.ErrEncryptionFailure
	}

	if err := s.repomanager.Messages(s.db).Create(ctx, msg); err != nil {
		s.log.Error(ctx, "store message failed", "message_id", msg.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	s.metrics.Sent()
	s.log.Debug(ctx, "message stored", "message_id", msg.ID)
	return msg, nil
}

// ListForRecipient returns the decrypted inbox of username, newest first.
// Store failures give an empty inbox; undecryptable rows are left out.
func (s *MessageService) ListForRecipient(ctx context.Context, username string) []*models.Message {
	stored, err := s.repomanager.Messages(s.db).ListForRecipient(ctx, username)
	if err != nil {
		s.log.Error(ctx, "list messages failed", "error", err)
		return []*models.Message{}
	}

	result := make([]*models.Message, 0, len(stored))
	for _, m := range stored {
		if err := s.open(m); err != nil {
			s.log.Error(ctx, "decrypt message failed", "message_id", m.ID, "error", err)
			continue
		}
		result = append(result, m)
	}

	s.metrics.Read(len(result))
	return result
}

// GetByID returns message id if it is addressed to username. Anything else,
// including a malformed id or a store failure, is common.ErrNotFound.
func (s *MessageService) GetByID(ctx context.Context, username, id string) (*models.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}

	m, err := s.repomanager.Messages(s.db).GetForRecipient(ctx, username, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.log.Error(ctx, "get message failed", "error", err)
		}
		return nil, common.ErrNotFound
	}

	if err := s.open(m); err != nil {
		s.log.Error(ctx, "decrypt message failed", "message_id", m.ID, "error", err)
		return nil, common.ErrNotFound
	}

	s.metrics.Read(1)
	return m, nil
}

func (s *MessageService) open(m *models.Message) error {
	plain, err := s.cipher.Open(m.ContentEncrypted, []byte(m.ID))
	if err != nil {
		s.metrics.DecryptFailed()
		return err
	}
	m.Content = string(plain)
	return nil
}
