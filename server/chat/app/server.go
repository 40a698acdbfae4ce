package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"rag_server/server/chat/api"
	"rag_server/server/chat/repository"
	"rag_server/server/chat/service"
	commonauth "rag_server/server/common/auth"
	"rag_server/server/common/infra/cache"
	"rag_server/server/common/infra/db"
	"rag_server/server/common/infra/mq"
	commonlog "rag_server/server/common/log"
	vectorsvc "rag_server/server/vectorman/service"
)

type Server struct {
	HTTPServer *http.Server
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Publisher  *service.AMQPPublisher
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := repository.RunMigrations(ctx, pool); err != nil {
		// Startup continues so the API stays reachable; requests against
		// missing tables surface as storage errors.
		commonlog.Errorf("run migrations: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = cache.NewClient(cfg.RedisAddr)
		if err := cache.Ping(ctx, redisClient); err != nil {
			commonlog.Warnf("ping redis, continuing without cache and realtime: %v", err)
			_ = redisClient.Close()
			redisClient = nil
		}
	}

	var (
		mqConn    *amqp.Connection
		publisher *service.AMQPPublisher
	)
	if cfg.UseMQ {
		mqConn, err = mq.NewConnection(cfg.LavinMQURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("initialize lavinmq: %w", err)
		}
		publisher, err = service.NewAMQPPublisher(mqConn)
		if err != nil {
			pool.Close()
			_ = mqConn.Close()
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
	}

	var embedCache vectorsvc.EmbeddingCache
	if redisClient != nil {
		embedCache = vectorsvc.NewRedisEmbeddingCache(redisClient, cfg.EmbedCacheTTL)
	}
	embedder := vectorsvc.NewEmbedService(cfg.EmbedEndpoint, cfg.EmbedModel, cfg.EmbedDim, cfg.EmbedTimeout, embedCache)
	if err := embedder.Probe(ctx); err != nil {
		embedder.LogDegraded(err)
	}

	index := vectorsvc.NewPineconeService(cfg.PineconeEndpoint, cfg.PineconeAPIKey, cfg.EmbedDim, cfg.PineconeTimeout)

	repo := repository.NewConversationRepository(pool)
	events := service.NewTurnEventPublisher(publisher, redisClient)
	retrieval := service.NewRetrievalService(repo, embedder, index, events, cfg.TopK)
	sessions := service.NewSessionService(repo)

	tokens := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)
	login, err := service.NewAuthService(tokens, []service.SeedUser{
		{Email: "user@example.com", Name: "Test User", Password: cfg.SeedUserPassword},
		{Email: "admin@example.com", Name: "Admin User", Password: cfg.SeedUserPassword},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("seed user directory: %w", err)
	}

	var realtime *service.RealtimeService
	if redisClient != nil {
		realtime = service.NewRealtimeService(redisClient)
	}

	h := api.NewHandler(retrieval, sessions, login, realtime, tokens, func() bool {
		return !embedder.ModelLoaded()
	}, pool.Ping)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTPServer: httpServer,
		Pool:       pool,
		Redis:      redisClient,
		MQConn:     mqConn,
		Publisher:  publisher,
	}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	defer s.Pool.Close()
	return s.HTTPServer.Shutdown(ctx)
}
