package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rag_server/server/chat/domain"
	commonlog "rag_server/server/common/log"
	vectorsvc "rag_server/server/vectorman/service"
)

const defaultTopK = 3

type ConversationStore interface {
	CreateSession(ctx context.Context, ownerID *string) (string, error)
	AppendMessage(ctx context.Context, sessionID, content string, direction domain.MessageDirection) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}

// TurnEventSink receives completed turns for fan-out to subscribers.
// Publication is best-effort and never affects the turn outcome.
type TurnEventSink interface {
	PublishTurnCompleted(ctx context.Context, sessionID string, result domain.TurnResult)
}

// RetrievalService runs one chat turn: persist the inbound message, embed
// it, query the similarity index and persist a record of the top match.
// Loss of the inbound message fails the turn; a failed index lookup only
// downgrades it to a completed turn carrying an in-band error payload.
type RetrievalService struct {
	store    ConversationStore
	embedder vectorsvc.Embedder
	index    vectorsvc.VectorIndex
	events   TurnEventSink
	topK     int
}

func NewRetrievalService(store ConversationStore, embedder vectorsvc.Embedder, index vectorsvc.VectorIndex, events TurnEventSink, topK int) *RetrievalService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &RetrievalService{
		store:    store,
		embedder: embedder,
		index:    index,
		events:   events,
		topK:     topK,
	}
}

func (s *RetrievalService) SendMessage(ctx context.Context, sessionID, message string) (domain.TurnResult, error) {
	if _, err := uuid.Parse(strings.TrimSpace(sessionID)); err != nil {
		return domain.TurnResult{}, fmt.Errorf("%w: malformed session id", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(message) == "" {
		return domain.TurnResult{}, fmt.Errorf("%w: message must not be empty", domain.ErrInvalidRequest)
	}

	// The turn is only worth serving once the question is durable.
	if err := s.store.AppendMessage(ctx, sessionID, message, domain.DirectionUser); err != nil {
		return domain.TurnResult{}, err
	}

	vector, err := s.embedder.Embed(ctx, message)
	if err != nil {
		commonlog.Warnf("embedding failed for session %s, using placeholder vector: %v", sessionID, err)
		vector = make([]float32, s.embedder.Dimension())
	}

	outcome := <-s.dispatchQuery(ctx, vector)
	if outcome.err != nil {
		commonlog.Errorf("vector index query failed for session %s: %v", sessionID, outcome.err)
		result := domain.TurnResult{
			Query: message,
			Error: &domain.TurnError{Kind: "retrieval_failed", Message: outcome.err.Error()},
		}
		s.publish(ctx, sessionID, result)
		return result, nil
	}

	if len(outcome.matches) > 0 {
		// Echo persistence is best-effort: the caller still gets the
		// matches, but the failure is reported rather than swallowed.
		if err := s.store.AppendMessage(ctx, sessionID, summarizeTopMatch(outcome.matches[0]), domain.DirectionSystem); err != nil {
			commonlog.Errorf("persist retrieval record for session %s: %v", sessionID, err)
		}
	}

	result := domain.TurnResult{Query: message, Matches: outcome.matches}
	s.publish(ctx, sessionID, result)
	return result, nil
}

func (s *RetrievalService) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if _, err := uuid.Parse(strings.TrimSpace(sessionID)); err != nil {
		return nil, fmt.Errorf("%w: malformed session id", domain.ErrInvalidRequest)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	exists, err := s.store.SessionExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return s.store.ListMessages(ctx, sessionID, limit)
}

type queryOutcome struct {
	matches []domain.MatchResult
	err     error
}

// dispatchQuery runs the one slow, blocking call of a turn on its own
// worker goroutine; receiving from the returned channel is the turn's
// single suspension point.
func (s *RetrievalService) dispatchQuery(ctx context.Context, vector []float32) <-chan queryOutcome {
	ch := make(chan queryOutcome, 1)
	go func() {
		matches, err := s.index.Query(ctx, vector, s.topK)
		ch <- queryOutcome{matches: matches, err: err}
	}()
	return ch
}

func summarizeTopMatch(match domain.MatchResult) string {
	raw, err := json.Marshal(map[string]any{
		"match_id": match.ID,
		"score":    match.Score,
		"metadata": match.Metadata,
	})
	if err != nil {
		return match.ID
	}
	return string(raw)
}

func (s *RetrievalService) publish(ctx context.Context, sessionID string, result domain.TurnResult) {
	if s.events == nil {
		return
	}
	s.events.PublishTurnCompleted(ctx, sessionID, result)
}
