// Package messages provides the PostgreSQL-backed message repository.
// Content is stored and returned as ciphertext; this layer never decrypts.
package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/dbx"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
)

// PostgresRepository implements message storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectMessages = `
	SELECT m.message_id, m.from_id, m.to_id, s.username, r.username, m.content_encrypted, m.sent_at
	FROM messages m
	JOIN users s ON s.id = m.from_id
	JOIN users r ON r.id = m.to_id
	WHERE r.username = $1`

// Create stores msg. ID, FromID, ToID, ContentEncrypted and SentAt must be set.
func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (message_id, from_id, to_id, content_encrypted, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.FromID, msg.ToID, msg.ContentEncrypted, msg.SentAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListForRecipient returns every message addressed to username, newest first.
func (r *PostgresRepository) ListForRecipient(ctx context.Context, username string) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, selectMessages+` ORDER BY m.sent_at DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	result := []*models.Message{}
	for rows.Next() {
		item, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetForRecipient returns message id only when it is addressed to username.
// A missing or foreign message is common.ErrNotFound.
func (r *PostgresRepository) GetForRecipient(ctx context.Context, username, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, selectMessages+` AND m.message_id = $2`, username, id)

	item, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*models.Message, error) {
	var m models.Message
	if err := s.Scan(&m.ID, &m.FromID, &m.ToID, &m.FromUser, &m.ToUser, &m.ContentEncrypted, &m.SentAt); err != nil {
		return nil, err
	}
	return &m, nil
}
