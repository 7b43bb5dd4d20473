package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"sentinal-social/config"
	"sentinal-social/internal/events"
	"sentinal-social/internal/handler"
	"sentinal-social/internal/metrics"
	"sentinal-social/internal/redis"
	"sentinal-social/internal/repository"
	"sentinal-social/internal/repository/memory"
	"sentinal-social/internal/server"
	"sentinal-social/internal/services"
	"sentinal-social/internal/storage"
	"sentinal-social/internal/websocket"
	"sentinal-social/pkg/database"
	"sentinal-social/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]server.HealthCheck{}

	var (
		store     repository.Store
		directory services.UserDirectory
		follows   services.FollowGraph
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		l.Infof("Using in-memory store; data is lost on restart")
		store = memory.NewStore()
		directory = memory.NewDirectory()
		follows = memory.NewFollowSet()
	default:
		database.Connect(cfg)
		defer database.Close()
		store = repository.NewPostgresStore(database.DB)
		directory = repository.NewUserDirectory(database.DB)
		follows = repository.NewFollowGraph(database.DB)
		checks["database"] = func(context.Context) error { return database.HealthCheck() }
	}

	hub := websocket.NewHub()

	var (
		publisher events.Publisher = websocket.NewLocalPublisher(hub)
		bridge    *websocket.RedisBridge
		limiter   *redis.RateLimiter
	)
	if cfg.RedisEnabled() {
		client, err := redis.Connect(ctx, redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			l.Logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer client.Close()

		publisher = redis.NewPublisher(client)
		bridge = websocket.NewRedisBridge(redis.NewSubscriber(client), hub)
		limiter = redis.NewRateLimiter(client, redis.DefaultRateLimitConfig().WithOverrides(redis.RateLimitConfig{
			MessageLimit:  cfg.MessageRateLimit,
			MessageWindow: cfg.MessageRateWindow,
			JoinLimit:     cfg.JoinRateLimit,
			JoinWindow:    cfg.JoinRateWindow,
		}))

		cache := redis.NewCacheStore(client, redis.CacheConfig{
			UserTTL:   cfg.CollaboratorCacheTTL,
			FollowTTL: cfg.CollaboratorCacheTTL,
		})
		directory = services.NewCachedUserDirectory(directory, cache, l)
		follows = services.NewCachedFollowGraph(follows, cache, l)
		checks["redis"] = cache.Ping
	}

	var media services.MediaResolver = storage.StaticResolver{Base: cfg.S3PublicBase}
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			l.Logger.Fatal("s3 client setup failed", zap.Error(err))
		}
		media = s3Client
	}

	authService := services.NewAuthService(cfg)
	fanout := services.NewFanoutService(publisher, media, l)
	conversationService := services.NewConversationService(store, directory, fanout, l)
	messageService := services.NewMessageService(store, conversationService, fanout, l)
	requestService := services.NewRequestService(store, follows, conversationService, messageService, fanout, l)
	inviteService := services.NewInviteService(store, conversationService, fanout, l)
	presenter := services.NewPresenter(store, directory, media, l)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Conversation: handler.NewConversationHandler(conversationService, messageService, presenter),
		Message:      handler.NewMessageHandler(messageService, requestService, presenter),
		Request:      handler.NewRequestHandler(requestService, presenter),
		Invite:       handler.NewInviteHandler(inviteService, presenter),
		WebSocket:    websocket.NewHandler(authService, conversationService, messageService, hub, cfg.WSSendBuffer, l),
	}, authService, limiter, checks)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx)
		})
	}
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		l.Infof("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		l.Logger.Error("server exited with error", zap.Error(err))
	}
}
