package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"rag_server/server/chat/domain"
	commonlog "rag_server/server/common/log"
)

func SessionChannel(sessionID string) string {
	return "chat:session:" + sessionID + ":events"
}

// TurnEventPublisher fans completed turns out to the AMQP exchange and the
// per-session redis channel. Either sink may be absent; publication
// failures are logged and dropped.
type TurnEventPublisher struct {
	mq    *AMQPPublisher
	redis *redis.Client
}

func NewTurnEventPublisher(mq *AMQPPublisher, redisClient *redis.Client) *TurnEventPublisher {
	return &TurnEventPublisher{mq: mq, redis: redisClient}
}

func (p *TurnEventPublisher) PublishTurnCompleted(ctx context.Context, sessionID string, result domain.TurnResult) {
	event := map[string]any{
		"event":      "turn.completed",
		"session_id": sessionID,
		"query":      result.Query,
		"matches":    result.Matches,
		"error":      result.Error,
	}

	if p.mq != nil {
		if err := p.mq.Publish(ctx, "turn.completed", event); err != nil {
			commonlog.Warnf("publish turn event to mq for session %s: %v", sessionID, err)
		}
	}

	if p.redis != nil {
		raw, err := json.Marshal(event)
		if err != nil {
			return
		}
		if err := p.redis.Publish(ctx, SessionChannel(sessionID), raw).Err(); err != nil {
			commonlog.Warnf("publish turn event to redis for session %s: %v", sessionID, err)
		}
	}
}
