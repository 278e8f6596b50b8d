package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"craftlink-chat/config"
	"craftlink-chat/internal/auth"
	"craftlink-chat/internal/handler"
	"craftlink-chat/internal/middleware"
	"craftlink-chat/internal/ratelimit"
	"craftlink-chat/internal/transport/httpdto"
	"craftlink-chat/internal/ws"
	"craftlink-chat/pkg/database"
	"craftlink-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	Upload       *handler.UploadHandler
	Realtime     *ws.Handler
}

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
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, tokens *auth.TokenService, limiter *ratelimit.Limiter, registry *prometheus.Registry) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	if registry != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	s.engine.GET("/ws", handlers.Realtime.Handle)

	// Clients read the reconnect schedule from here so it can be tuned
	// server-side without shipping new client builds.
	s.engine.GET("/v1/realtime/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.RealtimeConfigResponse{
			ReconnectBaseMs:      s.config.ReconnectBaseMs,
			ReconnectCapMs:       s.config.ReconnectCapMs,
			ReconnectMaxAttempts: s.config.ReconnectMaxAttempts,
		}))
	})

	conversations := s.engine.Group("/v1/conversations", middleware.AuthMiddleware(tokens))
	{
		conversations.POST("", handlers.Conversation.Open)
		conversations.GET("", handlers.Conversation.List)
		conversations.GET("/resolve", handlers.Conversation.Resolve)
		conversations.GET("/:key", handlers.Conversation.Get)
		conversations.GET("/:key/messages", handlers.Conversation.History)
		conversations.POST("/:key/messages", handlers.Message.Send)
		conversations.POST("/:key/read", handlers.Message.MarkRead)
	}

	uploads := s.engine.Group("/v1/uploads", middleware.AuthMiddleware(tokens))
	{
		uploads.POST("", middleware.RateLimitMiddleware(limiter, ratelimit.ClassUpload), handlers.Upload.Create)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
