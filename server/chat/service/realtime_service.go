package service

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	commonlog "rag_server/server/common/log"
)

// RealtimeService streams completed turns to websocket subscribers. One
// redis subscription is held per session with live connections and fanned
// out to every socket watching that session.
type RealtimeService struct {
	redis    *redis.Client
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	conns  map[*websocket.Conn]struct{}
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewRealtimeService(redisClient *redis.Client) *RealtimeService {
	return &RealtimeService{
		redis:    redisClient,
		sessions: map[string]*sessionState{},
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *RealtimeService) HandleWS(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if _, err := uuid.Parse(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.join(sessionID, conn)
	defer s.leave(sessionID, conn)

	// Reads only to observe the close; clients do not send anything.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *RealtimeService) join(sessionID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if ok {
		state.conns[conn] = struct{}{}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := s.redis.Subscribe(ctx, SessionChannel(sessionID))
	state = &sessionState{
		conns:  map[*websocket.Conn]struct{}{conn: {}},
		pubsub: pubsub,
		cancel: cancel,
	}
	s.sessions[sessionID] = state

	go s.fanOut(sessionID, pubsub)
}

func (s *RealtimeService) leave(sessionID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	delete(state.conns, conn)
	_ = conn.Close()

	if len(state.conns) == 0 {
		_ = state.pubsub.Close()
		state.cancel()
		delete(s.sessions, sessionID)
	}
}

func (s *RealtimeService) fanOut(sessionID string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		s.mu.RLock()
		state, ok := s.sessions[sessionID]
		if !ok {
			s.mu.RUnlock()
			return
		}
		conns := make([]*websocket.Conn, 0, len(state.conns))
		for conn := range state.conns {
			conns = append(conns, conn)
		}
		s.mu.RUnlock()

		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				commonlog.Debugf("write turn event to session %s subscriber: %v", sessionID, err)
			}
		}
	}
}
