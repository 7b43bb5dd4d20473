package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sentinal-social/config"
	"sentinal-social/internal/handler"
	"sentinal-social/internal/middleware"
	"sentinal-social/internal/redis"
	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"
	"sentinal-social/internal/websocket"
	"sentinal-social/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Request      *handler.RequestHandler
	Invite       *handler.InviteHandler
	WebSocket    *websocket.Handler
}

// HealthCheck probes one backing service. /health reports every failing
// check by name.
type HealthCheck func(ctx context.Context) error

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter, checks map[string]HealthCheck) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		failed := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, httpdto.Response[gin.H]{Success: false, Data: failed, Code: "UNHEALTHY"})
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if handlers.WebSocket != nil {
		s.engine.GET("/v1/ws", handlers.WebSocket.Connect)
	}

	v1 := s.engine.Group("/v1", middleware.AuthMiddleware(authService))
	sendLimit := middleware.MessageRateLimitMiddleware(limiter)

	conversations := v1.Group("/conversations")
	{
		conversations.GET("", handlers.Conversation.List)
		conversations.POST("/direct", handlers.Conversation.CreateDirect)
		conversations.POST("/group", handlers.Conversation.CreateGroup)
		conversations.GET("/:id", handlers.Conversation.GetByID)
		conversations.PATCH("/:id", handlers.Conversation.Update)
		conversations.DELETE("/:id", handlers.Conversation.Delete)
		conversations.POST("/:id/leave", handlers.Conversation.Leave)
		conversations.POST("/:id/members", handlers.Conversation.AddMember)
		conversations.DELETE("/:id/members/:user_id", handlers.Conversation.RemoveMember)
		conversations.POST("/:id/members/:user_id/promote", handlers.Conversation.Promote)
		conversations.POST("/:id/members/:user_id/demote", handlers.Conversation.Demote)

		conversations.GET("/:id/messages", handlers.Message.List)
		conversations.POST("/:id/messages", sendLimit, handlers.Message.Send)
		conversations.POST("/:id/replies", sendLimit, handlers.Message.Reply)

		conversations.GET("/:id/invite", handlers.Invite.Get)
		conversations.POST("/:id/invite", handlers.Invite.Create)
		conversations.PATCH("/:id/invite", handlers.Invite.SetActive)
	}

	messages := v1.Group("/messages")
	{
		messages.POST("/direct", sendLimit, handlers.Message.SendDirect)
		messages.POST("/:id/read", handlers.Message.MarkRead)
		messages.DELETE("/:id", handlers.Message.Delete)
	}

	requests := v1.Group("/requests")
	{
		requests.GET("/incoming", handlers.Request.ListIncoming)
		requests.GET("/outgoing", handlers.Request.ListOutgoing)
		requests.GET("/:id/messages", handlers.Request.Messages)
		requests.POST("/:id/accept", handlers.Request.Accept)
		requests.POST("/:id/reject", handlers.Request.Reject)
		requests.POST("/:id/ignore", handlers.Request.Ignore)
	}

	v1.POST("/invites/:token/join", middleware.JoinRateLimitMiddleware(limiter), handlers.Invite.Join)
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	if s.logger != nil {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Ctx(ctx).Warn("graceful shutdown failed", zap.Error(err))
		}
		return err
	}
	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}
	return nil
}
