package main

import (
	"context"
	"log"
	"time"

	"craftlink-chat/config"
	"craftlink-chat/internal/auth"
	"craftlink-chat/internal/handler"
	"craftlink-chat/internal/notify"
	"craftlink-chat/internal/ratelimit"
	"craftlink-chat/internal/repository"
	"craftlink-chat/internal/server"
	"craftlink-chat/internal/services"
	"craftlink-chat/internal/storage"
	"craftlink-chat/internal/ws"
	"craftlink-chat/pkg/database"
	"craftlink-chat/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.ApplyMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	limiter := buildLimiter(cfg, registry)

	messageStore := repository.NewMessageStore(database.DB)
	prefStore := repository.NewPreferenceStore(database.DB)
	directory := repository.NewUserDirectory(database.DB)

	tokens := auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.JWTExpiryMin)*time.Minute)

	var push notify.PushProvider
	if cfg.PushGatewayURL != "" {
		push = notify.NewHTTPPushGateway(cfg.PushGatewayURL, cfg.PushGatewayKey)
	}
	var email notify.EmailProvider
	if cfg.EmailGatewayURL != "" {
		email = notify.NewHTTPEmailGateway(cfg.EmailGatewayURL, cfg.EmailGatewayKey, cfg.EmailFromName)
	}
	dispatcher := notify.NewDispatcher(prefStore, nil, push, email, l.WithContext(context.Background()))

	chatService := services.NewChatService(messageStore, directory, limiter, dispatcher, l.WithContext(context.Background()))
	conversationService := services.NewConversationService(messageStore, directory, l.WithContext(context.Background()))

	hub := ws.NewHub(chatService, messageStore, time.Duration(cfg.TypingTimeoutSec)*time.Second)
	dispatcher.SetReachability(hub)
	go hub.Run()

	var images *storage.ImageStore
	if cfg.S3Bucket != "" {
		store, err := storage.NewImageStore(context.Background(), storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: time.Duration(cfg.S3PresignTTLMin) * time.Minute,
			MaxBytes:   cfg.ImageMaxBytes,
		})
		if err != nil {
			log.Fatalf("Failed to initialize image storage: %v", err)
		}
		images = store
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Conversation: handler.NewConversationHandler(conversationService),
		Message:      handler.NewMessageHandler(chatService, hub),
		Upload:       handler.NewUploadHandler(images),
		Realtime:     ws.NewHandler(hub, tokens),
	}, tokens, limiter, registry)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}

	hub.Stop()
}

func buildLimiter(cfg *config.Config, registry *prometheus.Registry) *ratelimit.Limiter {
	limits := map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassMessage: {Max: cfg.MessageLimit, Window: time.Duration(cfg.MessageWindowSec) * time.Second},
		ratelimit.ClassUpload:  {Max: cfg.UploadLimit, Window: time.Duration(cfg.UploadWindowSec) * time.Second},
	}

	metrics := ratelimit.NewMetrics(registry)

	if cfg.RateLimitBackend == "redis" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return ratelimit.NewLimiter(ratelimit.NewRedisStore(client), limits, metrics)
	}
	return ratelimit.NewLimiter(ratelimit.NewMemoryStore(), limits, metrics)
}
