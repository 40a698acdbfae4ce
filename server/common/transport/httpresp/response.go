package httpresp

const (
	ErrUnauthorized       = "unauthorized"
	ErrInvalidCredentials = "invalid credentials"
	ErrMissingBearerToken = "bearer token is required"
	ErrInvalidToken       = "invalid token"
	ErrSessionNotFound    = "session not found"
	ErrStorageUnavailable = "storage unavailable"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewOKResponse() OKResponse {
	return OKResponse{OK: true}
}

func NewSessionResponse(sessionID string) SessionResponse {
	return SessionResponse{SessionID: sessionID}
}

func NewTokenResponse(accessToken, userID, email, name string) TokenResponse {
	return TokenResponse{AccessToken: accessToken, UserID: userID, Email: email, Name: name}
}
