package api

import (
	"rag_server/server/chat/domain"
	"rag_server/server/common/transport/httpresp"
)

type ErrorResponse = httpresp.ErrorResponse
type OKResponse = httpresp.OKResponse
type SessionResponse = httpresp.SessionResponse
type TokenResponse = httpresp.TokenResponse

type HealthResponse struct {
	Status            string `json:"status"`
	EmbeddingDegraded bool   `json:"embedding_degraded"`
}

type MessagesResponse struct {
	Items []domain.Message `json:"items"`
}

func NewErrorResponse(message string) ErrorResponse {
	return httpresp.NewErrorResponse(message)
}

func NewOKResponse() OKResponse {
	return httpresp.NewOKResponse()
}

func NewSessionResponse(sessionID string) SessionResponse {
	return httpresp.NewSessionResponse(sessionID)
}

func NewTokenResponse(accessToken, userID, email, name string) TokenResponse {
	return httpresp.NewTokenResponse(accessToken, userID, email, name)
}

func NewHealthResponse(status string, embeddingDegraded bool) HealthResponse {
	return HealthResponse{Status: status, EmbeddingDegraded: embeddingDegraded}
}

func NewMessagesResponse(items []domain.Message) MessagesResponse {
	return MessagesResponse{Items: items}
}
