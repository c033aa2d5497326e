package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type conversationStore interface {
	FindPrivateBetween(ctx context.Context, userA, userB string) (string, error)
	CreateWithMembers(ctx context.Context, convType models.ConversationType, title *string, memberIDs []string) (*models.Conversation, error)
	GetMember(ctx context.Context, conversationID, userID string) (*models.ConversationMember, error)
	ListMembers(ctx context.Context, conversationID string) ([]models.ConversationMember, error)
	ListMemberConversationIDs(ctx context.Context, userID string) ([]string, error)
	ListSummaries(ctx context.Context, userID string) ([]models.ConversationSummary, error)
}

type messageStore interface {
	CreateMessage(ctx context.Context, message *models.Message, attachments []models.MessageAttachment, updates []models.MemberReadUpdate) error
	GetLatestMessage(ctx context.Context, conversationID string) (*models.Message, error)
	MarkMemberRead(ctx context.Context, conversationID, userID, messageID string, readAt time.Time) error
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]models.MessageDetail, int, error)
	ListAttachments(ctx context.Context, messageIDs []string) (map[string][]models.MessageAttachment, error)
	GetPreviews(ctx context.Context, messageIDs []string) (map[string]models.MessagePreview, error)
}

type postReader interface {
	GetSnapshot(ctx context.Context, postID string) (*models.PostSnapshot, error)
}

type userReader interface {
	GetSummary(ctx context.Context, userID string) (*models.UserSummary, error)
	GetSummaries(ctx context.Context, userIDs []string) (map[string]models.UserSummary, error)
}

type activeChecker interface {
	IsConversationActive(ctx context.Context, userID, conversationID string) (bool, error)
}

// Emitter hands composed realtime events to the gateway. Delivery is
// best-effort and never affects persistence outcomes.
type Emitter interface {
	EmitToConversation(conversationID, event string, payload any)
	EmitToUser(userID, event string, payload any)
}

type MediaFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

type CreateMessageInput struct {
	ConversationID   string
	SenderID         string
	Body             *string
	PostID           *string
	ReplyToMessageID *string
	MediaFiles       []MediaFile
	ThumbnailFiles   []MediaFile
}

// ConversationService owns conversation, membership, and message
// persistence, the unread-counter algorithm, and attachment processing.
type ConversationService struct {
	conversations conversationStore
	messages      messageStore
	posts         postReader
	users         userReader
	active        activeChecker
	storage       StorageService
	emitter       Emitter
}

func NewConversationService(
	conversations conversationStore,
	messages messageStore,
	posts postReader,
	users userReader,
	active activeChecker,
	storage StorageService,
	emitter Emitter,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		posts:         posts,
		users:         users,
		active:        active,
		storage:       storage,
		emitter:       emitter,
	}
}

func (s *ConversationService) CreateConversation(ctx context.Context, initiatorID, recipientID string) (*models.Conversation, error) {
	if initiatorID == "" || recipientID == "" || initiatorID == recipientID {
		return nil, ErrInvalidInput
	}

	if _, err := s.users.GetSummary(ctx, recipientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	_, err := s.conversations.FindPrivateBetween(ctx, initiatorID, recipientID)
	if err == nil {
		return nil, ErrConversationExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	conversation, err := s.conversations.CreateWithMembers(ctx, models.ConversationTypePrivate, nil, []string{initiatorID, recipientID})
	if err != nil {
		return nil, err
	}

	s.notifyNewConversation(conversation, initiatorID, []string{recipientID})

	return conversation, nil
}

func (s *ConversationService) CreateGroupConversation(ctx context.Context, creatorID, title string, memberIDs []string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if creatorID == "" || title == "" || len(memberIDs) == 0 {
		return nil, ErrInvalidInput
	}

	members := []string{creatorID}
	seen := map[string]struct{}{creatorID: {}}
	for _, memberID := range memberIDs {
		if memberID == "" {
			return nil, ErrInvalidInput
		}
		if _, ok := seen[memberID]; ok {
			continue
		}
		seen[memberID] = struct{}{}
		members = append(members, memberID)
	}
	if len(members) < 2 {
		return nil, ErrInvalidInput
	}

	summaries, err := s.users.GetSummaries(ctx, members[1:])
	if err != nil {
		return nil, err
	}
	for _, memberID := range members[1:] {
		if _, ok := summaries[memberID]; !ok {
			return nil, ErrNotFound
		}
	}

	conversation, err := s.conversations.CreateWithMembers(ctx, models.ConversationTypeGroup, &title, members)
	if err != nil {
		return nil, err
	}

	s.notifyNewConversation(conversation, creatorID, members)

	return conversation, nil
}

// notifyNewConversation tells every member except the creator, over their
// personal room, that a conversation now includes them.
func (s *ConversationService) notifyNewConversation(conversation *models.Conversation, creatorID string, memberIDs []string) {
	if s.emitter == nil {
		return
	}
	payload := models.NewConversationPayload{Data: conversation}
	for _, memberID := range memberIDs {
		if memberID == creatorID {
			continue
		}
		s.emitter.EmitToUser(memberID, models.EventNewConversation, payload)
	}
}

func (s *ConversationService) ListConversationsForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.conversations.ListSummaries(ctx, userID)
}

// CreateMessage persists a message with its attachments, maintains every
// receiver's unread counter, resolves display data, and emits the composed
// message to the conversation room. Persistence is one atomic unit; the
// emission is best-effort and happens only after commit.
func (s *ConversationService) CreateMessage(ctx context.Context, input CreateMessageInput) (*models.MessageDetail, error) {
	if input.ConversationID == "" || input.SenderID == "" {
		return nil, ErrInvalidInput
	}
	hasBody := input.Body != nil && strings.TrimSpace(*input.Body) != ""
	if !hasBody && input.PostID == nil && len(input.MediaFiles) == 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.conversations.GetMember(ctx, input.ConversationID, input.SenderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotAMember
		}
		return nil, err
	}

	message := models.Message{
		ID:               uuid.NewString(),
		ConversationID:   input.ConversationID,
		SenderID:         input.SenderID,
		Body:             input.Body,
		PostID:           input.PostID,
		ReplyToMessageID: input.ReplyToMessageID,
	}

	attachments, err := s.processMediaFiles(ctx, message.ID, input.MediaFiles, input.ThumbnailFiles)
	if err != nil {
		return nil, err
	}

	members, err := s.conversations.ListMembers(ctx, input.ConversationID)
	if err != nil {
		s.cleanupUploads(attachments)
		return nil, err
	}

	updates := s.resolveMemberUpdates(ctx, members, message.ID, input.SenderID, input.ConversationID)

	if err := s.messages.CreateMessage(ctx, &message, attachments, updates); err != nil {
		s.cleanupUploads(attachments)
		return nil, fmt.Errorf("persist message: %w", err)
	}

	detail := s.composeMessage(ctx, message, attachments)

	if s.emitter != nil {
		s.emitter.EmitToConversation(input.ConversationID, models.EventNewMessage, models.NewMessagePayload{Data: detail})
	}

	return detail, nil
}

// resolveMemberUpdates decides, per receiver, between a live-read reset and
// an unread increment based on the shared active-conversation set. Presence
// store failures degrade to "not active" so a flaky store can never reset
// read state it should not.
func (s *ConversationService) resolveMemberUpdates(
	ctx context.Context,
	members []models.ConversationMember,
	messageID string,
	senderID string,
	conversationID string,
) []models.MemberReadUpdate {
	now := time.Now().UTC()
	updates := make([]models.MemberReadUpdate, 0, len(members))
	for _, member := range members {
		if member.UserID == senderID {
			continue
		}
		active, err := s.active.IsConversationActive(ctx, member.UserID, conversationID)
		if err != nil {
			log.Printf("conversation: active check for user %s failed: %v", member.UserID, err)
			active = false
		}
		updates = append(updates, models.MemberReadUpdate{
			UserID:    member.UserID,
			Reset:     active,
			MessageID: messageID,
			ReadAt:    now,
		})
	}
	return updates
}

func (s *ConversationService) processMediaFiles(
	ctx context.Context,
	messageID string,
	mediaFiles []MediaFile,
	thumbnailFiles []MediaFile,
) ([]models.MessageAttachment, error) {
	if len(mediaFiles) == 0 {
		return nil, nil
	}

	attachments := make([]models.MessageAttachment, len(mediaFiles))
	uploadErrs := make([]error, len(mediaFiles))

	var wg sync.WaitGroup
	for i, file := range mediaFiles {
		wg.Add(1)
		go func(i int, file MediaFile) {
			defer wg.Done()

			mediaType := AttachmentTypeForContent(file.ContentType)
			uploaded, err := s.storage.UploadBuffer(ctx, file.Data, "messagesAttachments")
			if err != nil {
				uploadErrs[i] = err
				return
			}

			// Recorded before the thumbnail attempt so a later failure
			// still leaves the blob visible to cleanupUploads.
			attachments[i] = models.MessageAttachment{
				ID:        uuid.NewString(),
				MessageID: messageID,
				URL:       uploaded.URL,
				StorageID: uploaded.StorageID,
				Type:      mediaType,
			}

			if mediaType == models.AttachmentTypeVideo {
				if i < len(thumbnailFiles) && len(thumbnailFiles[i].Data) > 0 {
					thumbnail, err := s.storage.UploadBuffer(ctx, thumbnailFiles[i].Data, "messagesAttachments/thumbnails")
					if err != nil {
						uploadErrs[i] = err
						return
					}
					attachments[i].ThumbnailURL = &thumbnail.URL
				} else {
					log.Printf("conversation: no thumbnail provided for video %q", file.Filename)
				}
			}
		}(i, file)
	}
	wg.Wait()

	for _, err := range uploadErrs {
		if err != nil {
			s.cleanupUploads(attachments)
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	return attachments, nil
}

// cleanupUploads best-effort deletes blobs that were uploaded for a message
// that will never be committed.
func (s *ConversationService) cleanupUploads(attachments []models.MessageAttachment) {
	for _, attachment := range attachments {
		if attachment.StorageID == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.storage.DeleteFile(ctx, attachment.StorageID); err != nil {
			log.Printf("conversation: cleanup upload %s: %v", attachment.StorageID, err)
		}
		cancel()
	}
}

func (s *ConversationService) composeMessage(
	ctx context.Context,
	message models.Message,
	attachments []models.MessageAttachment,
) *models.MessageDetail {
	detail := models.MessageDetail{
		Message:     message,
		Attachments: attachments,
	}
	if detail.Attachments == nil {
		detail.Attachments = make([]models.MessageAttachment, 0)
	}

	sender, err := s.users.GetSummary(ctx, message.SenderID)
	if err != nil {
		log.Printf("conversation: resolve sender %s: %v", message.SenderID, err)
	} else {
		detail.Sender = sender
	}

	if message.PostID != nil {
		snapshot, err := s.posts.GetSnapshot(ctx, *message.PostID)
		if err != nil {
			log.Printf("conversation: resolve post %s: %v", *message.PostID, err)
		} else {
			detail.Post = snapshot
		}
	}

	if message.ReplyToMessageID != nil {
		previews, err := s.messages.GetPreviews(ctx, []string{*message.ReplyToMessageID})
		if err != nil {
			log.Printf("conversation: resolve reply %s: %v", *message.ReplyToMessageID, err)
		} else if preview, ok := previews[*message.ReplyToMessageID]; ok {
			detail.RepliedMessage = &preview
		}
	}

	return &detail
}

// MarkConversationRead moves the member's read pointer to the latest message,
// zeroes the unread counter, and emits a read receipt to the room. Calling it
// when already fully read re-emits; with no messages yet it is a no-op.
func (s *ConversationService) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	if conversationID == "" || userID == "" {
		return ErrInvalidInput
	}

	if _, err := s.conversations.GetMember(ctx, conversationID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotAMember
		}
		return err
	}

	latest, err := s.messages.GetLatestMessage(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if err := s.messages.MarkMemberRead(ctx, conversationID, userID, latest.ID, time.Now().UTC()); err != nil {
		return err
	}

	if s.emitter != nil {
		s.emitter.EmitToConversation(conversationID, models.EventMessageRead, models.MessageReadPayload{
			UserID:         userID,
			ConversationID: conversationID,
			MessageID:      latest.ID,
		})
	}

	return nil
}

// IsMember reports whether the user belongs to the conversation.
func (s *ConversationService) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	_, err := s.conversations.GetMember(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListMessages returns one newest-first page with attachments, reply
// previews, and shared-post snapshots resolved.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, userID string, skip, take int) ([]models.MessageDetail, int, error) {
	if conversationID == "" || userID == "" || skip < 0 || take <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.conversations.GetMember(ctx, conversationID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotAMember
		}
		return nil, 0, err
	}

	messages, total, err := s.messages.ListByConversation(ctx, conversationID, take, skip)
	if err != nil {
		return nil, 0, err
	}

	messageIDs := make([]string, 0, len(messages))
	replyIDs := make([]string, 0)
	postIDs := make([]string, 0)
	seenReplies := make(map[string]struct{})
	seenPosts := make(map[string]struct{})
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
		if message.ReplyToMessageID != nil {
			if _, ok := seenReplies[*message.ReplyToMessageID]; !ok {
				seenReplies[*message.ReplyToMessageID] = struct{}{}
				replyIDs = append(replyIDs, *message.ReplyToMessageID)
			}
		}
		if message.PostID != nil {
			if _, ok := seenPosts[*message.PostID]; !ok {
				seenPosts[*message.PostID] = struct{}{}
				postIDs = append(postIDs, *message.PostID)
			}
		}
	}

	attachments, err := s.messages.ListAttachments(ctx, messageIDs)
	if err != nil {
		return nil, 0, err
	}

	previews, err := s.messages.GetPreviews(ctx, replyIDs)
	if err != nil {
		return nil, 0, err
	}

	snapshots := make(map[string]*models.PostSnapshot, len(postIDs))
	for _, postID := range postIDs {
		snapshot, err := s.posts.GetSnapshot(ctx, postID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, 0, err
		}
		snapshots[postID] = snapshot
	}

	for i := range messages {
		if list, ok := attachments[messages[i].ID]; ok {
			messages[i].Attachments = list
		}
		if messages[i].ReplyToMessageID != nil {
			if preview, ok := previews[*messages[i].ReplyToMessageID]; ok {
				replied := preview
				messages[i].RepliedMessage = &replied
			}
		}
		if messages[i].PostID != nil {
			messages[i].Post = snapshots[*messages[i].PostID]
		}
	}

	return messages, total, nil
}

// ListMemberConversationIDs is used by the gateway to bulk-join rooms.
func (s *ConversationService) ListMemberConversationIDs(ctx context.Context, userID string) ([]string, error) {
	return s.conversations.ListMemberConversationIDs(ctx, userID)
}

func AttachmentTypeForContent(contentType string) models.AttachmentType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.AttachmentTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return models.AttachmentTypeVideo
	case strings.HasPrefix(contentType, "audio/"):
		return models.AttachmentTypeAudio
	default:
		return models.AttachmentTypeFile
	}
}
