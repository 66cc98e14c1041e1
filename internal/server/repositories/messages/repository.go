package messages

import (
	"context"

	"github.com/dmitrijs2005/securemsg/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListForRecipient(ctx context.Context, username string) ([]*models.Message, error)
	GetForRecipient(ctx context.Context, username, id string) (*models.Message, error)
}
