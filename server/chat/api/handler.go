package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rag_server/server/chat/domain"
	"rag_server/server/chat/service"
	commonauth "rag_server/server/common/auth"
	"rag_server/server/common/middleware"
)

type Handler struct {
	retrieval *service.RetrievalService
	sessions  *service.SessionService
	login     *service.AuthService
	realtime  *service.RealtimeService
	auth      *commonauth.Service
	degraded  func() bool
	storePing func(ctx context.Context) error
}

func NewHandler(
	retrieval *service.RetrievalService,
	sessions *service.SessionService,
	login *service.AuthService,
	realtime *service.RealtimeService,
	auth *commonauth.Service,
	degraded func() bool,
	storePing func(ctx context.Context) error,
) *Handler {
	return &Handler{
		retrieval: retrieval,
		sessions:  sessions,
		login:     login,
		realtime:  realtime,
		auth:      auth,
		degraded:  degraded,
		storePing: storePing,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	if h.realtime != nil {
		r.GET("/ws", h.realtime.HandleWS)
	}

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", h.loginUser)
		api.POST("/auth/guest", h.guestLogin)

		chats := api.Group("/chats")
		chats.Use(middleware.AuthOptional(h.auth))
		{
			chats.POST("", h.createSession)
			chats.POST("/:id/messages", h.sendMessage)
			chats.GET("/:id/messages", h.listMessages)
		}
	}
}

func (h *Handler) health(c *gin.Context) {
	status := "ok"
	if h.storePing != nil {
		if err := h.storePing(c.Request.Context()); err != nil {
			status = "degraded"
		}
	}
	embeddingDegraded := h.degraded != nil && h.degraded()
	c.JSON(http.StatusOK, NewHealthResponse(status, embeddingDegraded))
}

func (h *Handler) loginUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	user, token, err := h.login.Login(req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTokenResponse(token, user.ID, user.Email, user.Name))
}

func (h *Handler) guestLogin(c *gin.Context) {
	user, token, err := h.login.GuestLogin()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTokenResponse(token, user.ID, user.Email, user.Name))
}

func (h *Handler) createSession(c *gin.Context) {
	var ownerID *string
	if rawUserID, ok := c.Get("auth_user_id"); ok {
		if userID, ok := rawUserID.(string); ok && userID != "" {
			ownerID = &userID
		}
	}
	sessionID, err := h.sessions.CreateSession(c.Request.Context(), ownerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewSessionResponse(sessionID))
}

func (h *Handler) sendMessage(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}
	result, err := h.retrieval.SendMessage(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// A failed index lookup still completes the turn: result carries the
	// error payload in-band with success framing.
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listMessages(c *gin.Context) {
	sessionID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	items, err := h.retrieval.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewMessagesResponse(items))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err.Error()))
	}
}
