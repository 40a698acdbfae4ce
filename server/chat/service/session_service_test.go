package service

import (
	"context"
	"errors"
	"testing"

	"rag_server/server/chat/domain"
)

func TestCreateSession_Anonymous(t *testing.T) {
	store := &mockStore{}
	svc := NewSessionService(store)

	sessionID, err := svc.CreateSession(context.Background(), nil)
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if sessionID == "" {
		t.Error("expected a session id")
	}
	if store.createdOwner != nil {
		t.Errorf("expected nil owner, got %v", *store.createdOwner)
	}
}

func TestCreateSession_WithOwner(t *testing.T) {
	store := &mockStore{}
	svc := NewSessionService(store)

	owner := "  " + testSessionID2 + "  "
	if _, err := svc.CreateSession(context.Background(), &owner); err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if store.createdOwner == nil || *store.createdOwner != testSessionID2 {
		t.Errorf("owner not passed through trimmed: %v", store.createdOwner)
	}
}

func TestCreateSession_EmptyOwnerTreatedAsAnonymous(t *testing.T) {
	store := &mockStore{}
	svc := NewSessionService(store)

	owner := "   "
	if _, err := svc.CreateSession(context.Background(), &owner); err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if store.createdOwner != nil {
		t.Errorf("expected anonymous session, got owner %v", *store.createdOwner)
	}
}

func TestCreateSession_MalformedOwner(t *testing.T) {
	store := &mockStore{}
	svc := NewSessionService(store)

	owner := "user-1"
	_, err := svc.CreateSession(context.Background(), &owner)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreateSession_StorageUnavailable(t *testing.T) {
	store := &mockStore{createErr: domain.ErrStorageUnavailable}
	svc := NewSessionService(store)

	_, err := svc.CreateSession(context.Background(), nil)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
