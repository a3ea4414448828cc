package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gotalk-core/internal/calendar"
	"github.com/quocanhngo/gotalk-core/internal/config"
	"github.com/quocanhngo/gotalk-core/internal/delivery"
	"github.com/quocanhngo/gotalk-core/internal/handler"
	"github.com/quocanhngo/gotalk-core/internal/middleware"
	"github.com/quocanhngo/gotalk-core/internal/model"
	"github.com/quocanhngo/gotalk-core/internal/presence"
	"github.com/quocanhngo/gotalk-core/internal/repository"
	"github.com/quocanhngo/gotalk-core/internal/service"
	"github.com/quocanhngo/gotalk-core/internal/ws"
	"github.com/quocanhngo/gotalk-core/migrations"
	"github.com/quocanhngo/gotalk-core/pkg/auth"
	"github.com/quocanhngo/gotalk-core/pkg/notification"
	"github.com/quocanhngo/gotalk-core/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           GoTalk Core API
// @version         1.0
// @description     Conversations, message requests, streaks, delivery receipts and presence over REST and WebSocket.

// @contact.name   API Support
// @contact.email  support@gotalk.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	rollback := flag.Bool("rollback", false, "revert the last migration and exit")
	flag.Parse()

	// ==================== Load Config ====================
	cfg := config.Load()

	if *rollback {
		if err := migrations.Rollback(cfg.DB.URL()); err != nil {
			log.Fatalf("❌ %v", err)
		}
		return
	}

	log.Printf("🚀 Starting GoTalk Core [env=%s]", cfg.App.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := db.AutoMigrate(
			&model.User{},
			&model.UserDevice{},
			&model.Friendship{},
			&model.FriendRequest{},
			&model.Block{},
			&model.Restriction{},
			&model.Conversation{},
			&model.Participant{},
			&model.Message{},
			&model.MessageAttachment{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Calendar ====================
	cal, err := calendar.New(cfg.Chat.Timezone)
	if err != nil {
		log.Fatalf("❌ Invalid calendar timezone: %v", err)
	}
	log.Printf("📅 Streak days follow %s", cal.Location())

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	store := repository.NewGormStore(db)
	userRepo := repository.NewUserRepository(db)
	relationRepo := repository.NewRelationRepository(db)

	// No connection survives a restart
	if err := userRepo.ResetOnlineStatus(ctx); err != nil {
		log.Printf("⚠️  Failed to reset online status: %v", err)
	}

	registry := presence.NewMemoryRegistry()
	hidden, err := userRepo.HiddenUserIDs(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load presence visibility: %v", err)
	}
	for _, id := range hidden {
		registry.SetVisibility(id, false)
	}

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)
	go hub.Run(ctx)

	// Push notifications and media cleanup are optional
	notifier := notification.NewNotificationService(ctx, cfg.Firebase.CredentialsFile, userRepo)

	minioStorage, err := storage.NewMinIO(ctx, storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Printf("⚠️  MinIO not available: %v (attachment cleanup disabled)", err)
	} else {
		log.Println("✅ Connected to MinIO")
	}

	// Services
	chatService := service.NewChatService(service.ChatDeps{
		Store:       store,
		Relations:   relationRepo,
		Users:       userRepo,
		Tracker:     delivery.NewTracker(registry),
		Calendar:    cal,
		Events:      hub,
		Pusher:      notifier,
		Media:       minioStorage,
		RetryBudget: cfg.Chat.ConflictRetryBudget,
	})
	relationService := service.NewRelationService(relationRepo, userRepo)
	presenceService := service.NewPresenceService(registry, userRepo, chatService, hub)

	// Handlers
	chatHandler := handler.NewChatHandler(chatService)
	relationHandler := handler.NewRelationHandler(relationService)
	presenceHandler := handler.NewPresenceHandler(presenceService)
	revocations := middleware.NewRedisRevocations(rdb)
	wsHandler := handler.NewWSHandler(hub, chatService, presenceService, jwtManager, revocations)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS)
	limiter.Cleanup(ctx)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "gotalk-core",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	api.Use(
		middleware.AuthMiddleware(jwtManager, revocations),
		middleware.RateLimitMiddleware(limiter),
	)
	{
		// Conversations
		api.GET("/conversations", chatHandler.GetConversations)
		api.POST("/conversations", chatHandler.CreateGroup)
		api.POST("/conversations/direct", chatHandler.GetOrCreateDirect)
		api.GET("/conversations/:id", chatHandler.GetConversation)
		api.DELETE("/conversations/:id", chatHandler.ClearConversation)

		// Message requests
		api.POST("/conversations/:id/request/accept", chatHandler.AcceptRequest)
		api.POST("/conversations/:id/request/reject", chatHandler.RejectRequest)

		// Messages
		api.GET("/conversations/:id/messages", chatHandler.GetMessages)
		api.POST("/conversations/:id/messages", chatHandler.SendMessage)
		api.POST("/conversations/:id/seen", chatHandler.MarkSeen)
		api.POST("/users/:id/messages", chatHandler.SendDirect)

		// Relations
		api.POST("/users/:id/block", relationHandler.Block)
		api.DELETE("/users/:id/block", relationHandler.Unblock)
		api.POST("/users/:id/restrict", relationHandler.Restrict)
		api.DELETE("/users/:id/restrict", relationHandler.Unrestrict)

		// Presence
		api.GET("/presence/online", presenceHandler.GetOnlineUsers)
		api.PUT("/presence/visibility", presenceHandler.SetVisibility)
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 GoTalk Core running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	cancel()
	log.Println("✅ Server exited gracefully")
}
