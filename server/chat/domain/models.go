package domain

import "time"

type MessageDirection string

const (
	DirectionUser   MessageDirection = "user"
	DirectionSystem MessageDirection = "system"
)

type ChatSession struct {
	SessionID string    `json:"session_id"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        int64            `json:"id"`
	SessionID string           `json:"session_id"`
	Content   string           `json:"content"`
	Direction MessageDirection `json:"direction"`
	CreatedAt time.Time        `json:"created_at"`
}

// MatchResult is one nearest neighbor returned by the similarity index.
// Score is cosine similarity in [-1, 1], higher is more similar.
type MatchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type TurnError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TurnResult is the outcome of one chat turn. Exactly one of Matches or
// Error is populated: a failed index lookup still completes the turn and
// carries the failure in-band.
type TurnResult struct {
	Query   string        `json:"query"`
	Matches []MatchResult `json:"matches,omitempty"`
	Error   *TurnError    `json:"error,omitempty"`
}

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
