package routes

import (
	"context"
	"fmt"

	"github.com/NamanGajera/Pictora-Backend/internal/config"
	"github.com/NamanGajera/Pictora-Backend/internal/database"
	"github.com/NamanGajera/Pictora-Backend/internal/handlers"
	"github.com/NamanGajera/Pictora-Backend/internal/middleware"
	"github.com/NamanGajera/Pictora-Backend/internal/pubsub"
	"github.com/NamanGajera/Pictora-Backend/internal/realtime"
	"github.com/NamanGajera/Pictora-Backend/internal/repository"
	"github.com/NamanGajera/Pictora-Backend/internal/services"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config) error {
	userRepo := repository.NewUserRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	postRepo := repository.NewPostRepository(database.DB)

	storageService := services.NewBucketStorageService(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey)
	presenceService := services.NewPresenceService(database.Redis)

	broker := pubsub.NewRedisBroker(database.Redis)
	hub := realtime.NewHub(uuid.NewString(), broker)
	go hub.Run()

	conversationService := services.NewConversationService(
		conversationRepo,
		messageRepo,
		postRepo,
		userRepo,
		presenceService,
		storageService,
		hub,
	)

	gateway := realtime.NewGateway(hub, presenceService, conversationService)

	if err := broker.Subscribe(context.Background(), hub.HandleRemote); err != nil {
		return fmt.Errorf("subscribe realtime events: %w", err)
	}

	conversationHandler := handlers.NewConversationHandler(
		conversationService,
		presenceService,
		gateway,
		cfg.JWTSecret,
	)

	api := app.Group("/api/v1")

	api.Get("/users/presence", middleware.AuthRequired(cfg.JWTSecret), conversationHandler.GetPresence)

	conversations := api.Group("/conversations", middleware.AuthRequired(cfg.JWTSecret))
	conversations.Get("/", conversationHandler.ListConversations)
	conversations.Post("/", conversationHandler.CreateConversation)
	conversations.Post("/group", conversationHandler.CreateGroupConversation)
	conversations.Get("/:id/messages", conversationHandler.GetMessages)
	conversations.Post("/:id/messages", conversationHandler.CreateMessage)
	conversations.Post("/:id/read", conversationHandler.MarkRead)

	api.Use("/ws", conversationHandler.WebSocketAuth)
	api.Get("/ws", websocket.New(conversationHandler.HandleWebSocket))

	return nil
}
