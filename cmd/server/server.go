package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/config"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/db"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/handlers"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/providers"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/services"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is overridden at build time via -ldflags
var version = "dev"

// SetupServer initializes and returns a configured HTTP server
func SetupServer(cfg *config.Config) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if cfg.Server.Port <= 0 {
		return nil, errors.New("invalid server port")
	}

	// Initialize database
	database, err := db.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	sessionRepo := db.NewSessionRepository(database.GetDB())
	messageRepo := db.NewMessageRepository(database.GetDB())
	tagRepo := db.NewTagRepository(database.GetDB())

	// Realtime dispatch: in-process hub, optionally mirrored to AMQP
	hub := services.NewHub()
	var notifier services.Notifier = hub
	var bridge *services.EventBridge
	if cfg.Events.AMQPURL != "" {
		bridge, err = services.NewEventBridge(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect event bridge: %w", err)
		}
		notifier = services.MultiNotifier{hub, bridge}
		logger.Info("Event bridge connected", zap.String("exchange", cfg.Events.Exchange))
	}

	// Initialize services
	factory := providers.NewFactory(cfg)
	directory := services.NewContactDirectory()
	sessionService := services.NewSessionService(sessionRepo, factory, notifier, cfg.Providers.StatusPollInterval)
	webhookService := services.NewWebhookService(sessionService, messageRepo, directory, notifier)
	messageService := services.NewMessageService(sessionService, messageRepo, directory, notifier, cfg.Providers.DefaultCountryCode)
	conversationService := services.NewConversationService(sessionService, messageRepo, tagRepo, directory)
	tagService := services.NewTagService(sessionService, tagRepo)

	// Rebind adapters for sessions that were live before the restart
	if err := sessionService.Restore(); err != nil {
		return nil, err
	}

	// Initialize router
	router := gin.Default()

	// Setup routes
	setupRoutes(router, cfg, sessionService, messageService, conversationService, webhookService, tagService, hub)

	// Create server with security timeouts. WriteTimeout stays unset
	// because the SSE stream holds its response open indefinitely.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		sessionService.Close()
		if bridge != nil {
			if err := bridge.Close(); err != nil {
				logger.Warn("Failed to close event bridge", zap.Error(err))
			}
		}
		if err := database.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	})

	return srv, nil
}

// setupRoutes configures all the HTTP routes
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	sessionService *services.SessionService,
	messageService *services.MessageService,
	conversationService *services.ConversationService,
	webhookService *services.WebhookService,
	tagService *services.TagService,
	hub *services.Hub,
) {
	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	messageHandler := handlers.NewMessageHandler(messageService)
	conversationHandler := handlers.NewConversationHandler(conversationService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	tagHandler := handlers.NewTagHandler(tagService)
	eventsHandler := handlers.NewEventsHandler(hub)

	// Basic health check endpoint (public)
	router.GET("/health", handleHealthCheck)

	// Provider callbacks (public; gateways cannot send JWTs)
	router.POST("/webhooks/:provider/:sessionID", webhookHandler.Receive)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		protected.POST("/sessions", sessionHandler.CreateSession)
		protected.GET("/sessions", sessionHandler.ListSessions)
		protected.GET("/sessions/active", sessionHandler.ListActiveSessions)
		protected.GET("/sessions/:id", sessionHandler.GetSession)
		protected.DELETE("/sessions/:id", sessionHandler.DeleteSession)
		protected.GET("/sessions/:id/qr", sessionHandler.GetQRCode)
		protected.POST("/sessions/:id/reconnect", sessionHandler.ReconnectSession)

		protected.GET("/sessions/:id/conversations", conversationHandler.ListConversations)
		protected.GET("/sessions/:id/messages", messageHandler.ListMessages)
		protected.POST("/sessions/:id/messages/text", messageHandler.SendText)
		protected.POST("/sessions/:id/messages/media", messageHandler.SendMedia)
		protected.POST("/sessions/:id/read", conversationHandler.MarkRead)

		protected.POST("/tags", tagHandler.CreateTag)
		protected.GET("/tags", tagHandler.ListTags)
		protected.DELETE("/tags/:id", tagHandler.DeleteTag)
		protected.POST("/conversations/tags", tagHandler.AttachTag)
		protected.DELETE("/conversations/tags", tagHandler.DetachTag)

		protected.GET("/events", eventsHandler.Stream)
	}
}

// handleHealthCheck handles the health check endpoint
func handleHealthCheck(c *gin.Context) {
	logger.Info("Health check endpoint called")
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"version": version,
		"service": "whatsapp-integration",
	})
}

// StartServer starts the HTTP server and handles graceful shutdown
func StartServer(srv *http.Server) error {
	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a timeout context for shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// StartServerWithContext starts the HTTP server with a context for shutdown control
func StartServerWithContext(ctx context.Context, srv *http.Server) error {
	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// Create a timeout context for shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
