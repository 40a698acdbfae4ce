package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rag_server/server/chat/domain"
)

// SessionService creates chat sessions, anonymous or bound to a resolved
// identity. It does not re-verify the identity; the caller already has.
type SessionService struct {
	store ConversationStore
}

func NewSessionService(store ConversationStore) *SessionService {
	return &SessionService{store: store}
}

func (s *SessionService) CreateSession(ctx context.Context, ownerID *string) (string, error) {
	if ownerID != nil {
		trimmed := strings.TrimSpace(*ownerID)
		if trimmed == "" {
			ownerID = nil
		} else {
			if _, err := uuid.Parse(trimmed); err != nil {
				return "", fmt.Errorf("%w: malformed owner id", domain.ErrInvalidRequest)
			}
			ownerID = &trimmed
		}
	}
	return s.store.CreateSession(ctx, ownerID)
}
