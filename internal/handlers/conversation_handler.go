package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	"github.com/NamanGajera/Pictora-Backend/internal/realtime"
	"github.com/NamanGajera/Pictora-Backend/internal/services"
	"github.com/NamanGajera/Pictora-Backend/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type conversationAppService interface {
	CreateConversation(ctx context.Context, initiatorID, recipientID string) (*models.Conversation, error)
	CreateGroupConversation(ctx context.Context, creatorID, title string, memberIDs []string) (*models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	CreateMessage(ctx context.Context, input services.CreateMessageInput) (*models.MessageDetail, error)
	ListMessages(ctx context.Context, conversationID, userID string, skip, take int) ([]models.MessageDetail, int, error)
	MarkConversationRead(ctx context.Context, conversationID, userID string) error
}

type presenceReader interface {
	GetPresenceBatch(ctx context.Context, userIDs []string) ([]models.Presence, error)
}

type ConversationHandler struct {
	service   conversationAppService
	presence  presenceReader
	gateway   *realtime.Gateway
	jwtSecret string
}

type createConversationRequest struct {
	UserID string `json:"user_id"`
}

type createGroupConversationRequest struct {
	Title     string   `json:"title"`
	MemberIDs []string `json:"member_ids"`
}

type createMessageRequest struct {
	Message          *string `json:"message"`
	PostID           *string `json:"post_id"`
	ReplyToMessageID *string `json:"reply_to_message_id"`
}

func NewConversationHandler(
	service conversationAppService,
	presence presenceReader,
	gateway *realtime.Gateway,
	jwtSecret string,
) *ConversationHandler {
	return &ConversationHandler{
		service:   service,
		presence:  presence,
		gateway:   gateway,
		jwtSecret: jwtSecret,
	}
}

func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversationsForUser(c.Context(), userID)
	if err != nil {
		return mapConversationError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.CreateConversation(c.Context(), userID, req.UserID)
	if err != nil {
		return mapConversationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ConversationHandler) CreateGroupConversation(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createGroupConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.CreateGroupConversation(c.Context(), userID, req.Title, req.MemberIDs)
	if err != nil {
		return mapConversationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ConversationHandler) CreateMessage(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID := c.Params("id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	input := services.CreateMessageInput{
		ConversationID: conversationID,
		SenderID:       userID,
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
		applyFormValues(&input, form)

		media, err := readFormFiles(form.File["media"])
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read media files"})
		}
		thumbnails, err := readFormFiles(form.File["thumbnails"])
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read thumbnail files"})
		}
		input.MediaFiles = media
		input.ThumbnailFiles = thumbnails
	} else {
		var req createMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		input.Body = req.Message
		input.PostID = req.PostID
		input.ReplyToMessageID = req.ReplyToMessageID
	}

	message, err := h.service.CreateMessage(c.Context(), input)
	if err != nil {
		return mapConversationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *ConversationHandler) GetMessages(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID := c.Params("id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	skip := parseNonNegativeInt(c.Query("skip"), 0)
	take := parsePositiveInt(c.Query("take"), defaultPageLimit)
	if take > maxPageLimit {
		take = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), conversationID, userID, skip, take)
	if err != nil {
		return mapConversationError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(skip, take, total),
	})
}

func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID := c.Params("id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.MarkConversationRead(c.Context(), conversationID, userID); err != nil {
		return mapConversationError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *ConversationHandler) GetPresence(c *fiber.Ctx) error {
	if _, ok := c.Locals("user_id").(string); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ids query parameter is required"})
	}

	userIDs := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			userIDs = append(userIDs, id)
		}
	}

	records, err := h.presence.GetPresenceBatch(c.Context(), userIDs)
	if err != nil {
		log.Printf("handlers: presence batch: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read presence"})
	}

	return c.JSON(fiber.Map{"presence": records})
}

// WebSocketAuth authenticates the upgrade request before any presence record
// or room membership exists. A missing, invalid, or expired credential
// rejects the handshake with a typed reason.
func (h *ConversationHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		reason := "Invalid token"
		switch {
		case errors.Is(err, errMissingToken):
			reason = "Missing token"
		case errors.Is(err, utils.ErrTokenExpired):
			reason = "Token expired"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": reason})
	}

	c.Locals("user_id", claims.UserID)
	return c.Next()
}

func (h *ConversationHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	if userID == "" {
		_ = conn.Close()
		return
	}
	h.gateway.HandleConnection(conn, userID)
}

var errMissingToken = errors.New("missing token")

func (h *ConversationHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errMissingToken
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func applyFormValues(input *services.CreateMessageInput, form *multipart.Form) {
	if values := form.Value["message"]; len(values) > 0 && values[0] != "" {
		body := values[0]
		input.Body = &body
	}
	if values := form.Value["post_id"]; len(values) > 0 && values[0] != "" {
		postID := values[0]
		input.PostID = &postID
	}
	if values := form.Value["reply_to_message_id"]; len(values) > 0 && values[0] != "" {
		replyTo := values[0]
		input.ReplyToMessageID = &replyTo
	}
}

func readFormFiles(headers []*multipart.FileHeader) ([]services.MediaFile, error) {
	files := make([]services.MediaFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, services.MediaFile{
			Data:        data,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		})
	}
	return files, nil
}

func mapConversationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrNotAMember):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a member of this conversation"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrConversationExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Conversation already exists"})
	case errors.Is(err, services.ErrUploadFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Attachment upload failed"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process conversation request"})
	}
}
