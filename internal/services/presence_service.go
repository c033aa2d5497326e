package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	"github.com/redis/go-redis/v9"
)

func presenceKey(userID string) string {
	return fmt.Sprintf("user:%s:presence", userID)
}

func socketsKey(userID string) string {
	return fmt.Sprintf("user:%s:sockets", userID)
}

func activeConversationsKey(userID string) string {
	return fmt.Sprintf("user:%s:active_conversations", userID)
}

func connectionKey(connID string) string {
	return fmt.Sprintf("conn:%s", connID)
}

// PresenceService owns per-user online state in the shared store. A user is
// offline exactly when their connection set is empty; the hash fields are
// advisory and tolerate last-writer-wins races.
type PresenceService struct {
	rdb redis.Cmdable
}

func NewPresenceService(rdb redis.Cmdable) *PresenceService {
	return &PresenceService{rdb: rdb}
}

// MarkConnected registers a connection for the user. Re-adding the same
// connection id only refreshes the last-seen stamp.
func (p *PresenceService) MarkConnected(ctx context.Context, userID, connID string) error {
	if err := p.rdb.SAdd(ctx, socketsKey(userID), connID).Err(); err != nil {
		return fmt.Errorf("presence: add socket: %w", err)
	}
	if err := p.rdb.Set(ctx, connectionKey(connID), userID, 0).Err(); err != nil {
		return fmt.Errorf("presence: map connection: %w", err)
	}
	err := p.rdb.HSet(ctx, presenceKey(userID),
		"status", string(models.PresenceOnline),
		"lastSeen", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("presence: set online: %w", err)
	}
	return nil
}

// MarkDisconnected removes the connection from its owner's set. It reports
// the owning user and whether that user just went offline. Calling it for an
// unknown connection is a no-op.
func (p *PresenceService) MarkDisconnected(ctx context.Context, connID string) (string, bool, error) {
	userID, err := p.rdb.Get(ctx, connectionKey(connID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("presence: resolve connection: %w", err)
	}

	if err := p.rdb.SRem(ctx, socketsKey(userID), connID).Err(); err != nil {
		return userID, false, fmt.Errorf("presence: remove socket: %w", err)
	}
	if err := p.rdb.Del(ctx, connectionKey(connID)).Err(); err != nil {
		return userID, false, fmt.Errorf("presence: drop connection: %w", err)
	}

	remaining, err := p.rdb.SCard(ctx, socketsKey(userID)).Result()
	if err != nil {
		return userID, false, fmt.Errorf("presence: count sockets: %w", err)
	}
	if remaining > 0 {
		return userID, false, nil
	}

	err = p.rdb.HSet(ctx, presenceKey(userID),
		"status", string(models.PresenceOffline),
		"lastSeen", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return userID, true, fmt.Errorf("presence: set offline: %w", err)
	}
	return userID, true, nil
}

// GetPresence returns the user's presence record, defaulting to offline when
// nothing has been recorded.
func (p *PresenceService) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	fields, err := p.rdb.HGetAll(ctx, presenceKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: read: %w", err)
	}

	presence := models.Presence{
		UserID: userID,
		Status: models.PresenceOffline,
	}
	if fields["status"] == string(models.PresenceOnline) {
		presence.Status = models.PresenceOnline
	}
	if raw := fields["lastSeen"]; raw != "" {
		if lastSeen, err := time.Parse(time.RFC3339, raw); err == nil {
			presence.LastSeen = &lastSeen
		}
	}

	return &presence, nil
}

func (p *PresenceService) GetPresenceBatch(ctx context.Context, userIDs []string) ([]models.Presence, error) {
	records := make([]models.Presence, 0, len(userIDs))
	for _, userID := range userIDs {
		presence, err := p.GetPresence(ctx, userID)
		if err != nil {
			return nil, err
		}
		records = append(records, *presence)
	}
	return records, nil
}

func (p *PresenceService) SetConversationActive(ctx context.Context, userID, conversationID string) error {
	return p.rdb.SAdd(ctx, activeConversationsKey(userID), conversationID).Err()
}

func (p *PresenceService) SetConversationInactive(ctx context.Context, userID, conversationID string) error {
	return p.rdb.SRem(ctx, activeConversationsKey(userID), conversationID).Err()
}

func (p *PresenceService) IsConversationActive(ctx context.Context, userID, conversationID string) (bool, error) {
	return p.rdb.SIsMember(ctx, activeConversationsKey(userID), conversationID).Result()
}

// ClearActiveConversations drops every active-conversation entry for the
// user. Called when the user's last connection goes away so an abrupt
// disconnect cannot leave them permanently "viewing" a conversation.
func (p *PresenceService) ClearActiveConversations(ctx context.Context, userID string) error {
	return p.rdb.Del(ctx, activeConversationsKey(userID)).Err()
}
