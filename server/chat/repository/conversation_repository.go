package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rag_server/server/chat/domain"
)

const pgForeignKeyViolation = "23503"

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) CreateSession(ctx context.Context, ownerID *string) (string, error) {
	var sessionID string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions(owner_id)
		VALUES($1)
		RETURNING session_id
	`, ownerID).Scan(&sessionID)
	if err != nil {
		return "", storageError(err)
	}
	return sessionID, nil
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, sessionID, content string, direction domain.MessageDirection) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages(session_id, content, is_response)
		VALUES($1, $2, $3)
	`, sessionID, content, direction == domain.DirectionSystem)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.ErrSessionNotFound
		}
		return storageError(err)
	}
	return nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT message_id, session_id, content, is_response, created_at
		FROM chat_messages
		WHERE session_id=$1
		ORDER BY message_id ASC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, storageError(err)
	}
	defer rows.Close()

	items := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		var isResponse bool
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Content, &isResponse, &m.CreatedAt); err != nil {
			return nil, storageError(err)
		}
		m.Direction = domain.DirectionUser
		if isResponse {
			m.Direction = domain.DirectionSystem
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}
	return items, nil
}

func (r *ConversationRepository) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_sessions WHERE session_id=$1
		)
	`, sessionID).Scan(&exists)
	if err != nil {
		return false, storageError(err)
	}
	return exists, nil
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
