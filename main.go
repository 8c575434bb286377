package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"messenger-service/internal/clients"
	"messenger-service/internal/config"
	"messenger-service/internal/db"
	"messenger-service/internal/delivery"
	"messenger-service/internal/handlers"
	"messenger-service/internal/identity"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/service"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/tracing"
	"messenger-service/internal/ws"
)

const serviceName = "messenger-service"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer cache.Close()
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	if cfg.AMQPURL != "" {
		if amqpPub, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
			log.Printf("event publisher unavailable: %v", err)
		} else {
			observability.SetPublisher(amqpPub)
			defer amqpPub.Close()
		}
	}

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)

	verifier := identity.NewJWTVerifier(cfg.JWTSecret)
	directory := clients.NewHTTPDirectory(cfg.UserServiceURL, cache)
	assetStore := clients.NewHTTPAssetStore(cfg.AssetServiceURL)

	hub := ws.NewHub()
	coordinator := delivery.NewCoordinator(hub)

	svc := service.New(chatRepo, messageRepo, reactionRepo, directory, assetStore, coordinator)

	chatHandler := handlers.NewChatHandler(svc, audit)
	messageHandler := handlers.NewMessageHandler(svc, audit)
	gateway := ws.NewGateway(hub, verifier, chatRepo)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/chats/private", authMiddleware, chatHandler.StartPrivateChat)
	router.POST("/chats/group", authMiddleware, chatHandler.CreateGroupChat)
	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.PATCH("/chats/:chat_id", authMiddleware, chatHandler.UpdateChat)
	router.GET("/chats/:chat_id/participants", authMiddleware, chatHandler.ListParticipants)
	router.POST("/chats/:chat_id/participants", authMiddleware, chatHandler.AddParticipant)
	router.DELETE("/chats/:chat_id/participants/:user_id", authMiddleware, chatHandler.RemoveParticipant)
	router.DELETE("/chats/:chat_id/me", authMiddleware, chatHandler.LeaveChat)

	router.GET("/chats/:chat_id/messages", authMiddleware, messageHandler.GetMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, messageHandler.PostMessage)
	router.PATCH("/chats/:chat_id/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/chats/:chat_id/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)
	router.PUT("/chats/:chat_id/messages/:message_id/reactions/me", authMiddleware, messageHandler.SetReaction)
	router.DELETE("/chats/:chat_id/messages/:message_id/reactions/me", authMiddleware, messageHandler.RemoveReaction)

	router.GET("/ws", gateway.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugEndpoints)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("listening on :%s environment=%s", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("stopped")
}
