package realtime

import (
	"context"
	"log"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	websocket "github.com/gofiber/contrib/websocket"
)

type conversationAccess interface {
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
	ListMemberConversationIDs(ctx context.Context, userID string) ([]string, error)
	MarkConversationRead(ctx context.Context, conversationID, userID string) error
}

type presenceTracker interface {
	MarkConnected(ctx context.Context, userID, connID string) error
	MarkDisconnected(ctx context.Context, connID string) (string, bool, error)
	SetConversationActive(ctx context.Context, userID, conversationID string) error
	SetConversationInactive(ctx context.Context, userID, conversationID string) error
	ClearActiveConversations(ctx context.Context, userID string) error
}

// Gateway drives the per-connection lifecycle: presence registration, room
// joins, inbound event dispatch, and disconnect cleanup. Presence-store
// failures are logged and never fail the triggering socket operation.
type Gateway struct {
	hub           *Hub
	presence      presenceTracker
	conversations conversationAccess
}

func NewGateway(hub *Hub, presence presenceTracker, conversations conversationAccess) *Gateway {
	return &Gateway{
		hub:           hub,
		presence:      presence,
		conversations: conversations,
	}
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

// HandleConnection runs an authenticated connection to completion. It blocks
// until the socket closes.
func (g *Gateway) HandleConnection(conn *websocket.Conn, userID string) {
	client := NewClient(g.hub, conn, userID)
	ctx := context.Background()

	if err := g.presence.MarkConnected(ctx, userID, client.ID); err != nil {
		log.Printf("realtime: mark connected %s: %v", userID, err)
	}

	g.hub.Register(client)
	g.hub.Join(client, UserRoom(userID))

	conversationIDs, err := g.conversations.ListMemberConversationIDs(ctx, userID)
	if err != nil {
		log.Printf("realtime: join conversations for %s: %v", userID, err)
	} else {
		for _, conversationID := range conversationIDs {
			g.hub.Join(client, ConversationRoom(conversationID))
		}
	}

	g.hub.BroadcastAll(models.EventUserPresence, models.UserPresencePayload{
		UserID: userID,
		Status: true,
	}, userID)

	go client.WritePump()
	client.ReadPump(g)
}

func (g *Gateway) handleEvent(client *Client, event inboundEvent) {
	switch event.Type {
	case models.EventJoinConversation:
		g.handleJoin(client, event.ConversationID)
	case models.EventLeaveConversation:
		g.handleLeave(client, event.ConversationID)
	case models.EventTypingStart:
		g.handleTyping(client, event.ConversationID, true)
	case models.EventTypingStop:
		g.handleTyping(client, event.ConversationID, false)
	default:
		client.SendError("unknown event type")
	}
}

func (g *Gateway) handleJoin(client *Client, conversationID string) {
	if conversationID == "" {
		client.SendError("conversation_id is required")
		return
	}

	ctx := context.Background()
	isMember, err := g.conversations.IsMember(ctx, conversationID, client.UserID)
	if err != nil {
		log.Printf("realtime: membership check for %s: %v", client.UserID, err)
		client.SendError("Failed to join conversation")
		return
	}
	if !isMember {
		client.SendError("Not a member of this conversation")
		return
	}

	g.hub.Join(client, ConversationRoom(conversationID))

	if err := g.presence.SetConversationActive(ctx, client.UserID, conversationID); err != nil {
		log.Printf("realtime: set active conversation for %s: %v", client.UserID, err)
	}

	client.SendEvent(models.EventConversationJoined, models.ConversationJoinedPayload{
		ConversationID: conversationID,
	})

	if err := g.conversations.MarkConversationRead(ctx, conversationID, client.UserID); err != nil {
		log.Printf("realtime: mark read for %s: %v", client.UserID, err)
	}
}

func (g *Gateway) handleLeave(client *Client, conversationID string) {
	if conversationID == "" {
		client.SendError("conversation_id is required")
		return
	}

	ctx := context.Background()
	g.hub.Leave(client, ConversationRoom(conversationID))

	if err := g.presence.SetConversationInactive(ctx, client.UserID, conversationID); err != nil {
		log.Printf("realtime: set inactive conversation for %s: %v", client.UserID, err)
	}

	client.SendEvent(models.EventConversationLeft, models.ConversationJoinedPayload{
		ConversationID: conversationID,
	})
}

func (g *Gateway) handleTyping(client *Client, conversationID string, typing bool) {
	if conversationID == "" {
		return
	}
	g.hub.EmitToRoomExcept(ConversationRoom(conversationID), models.EventUserTyping, models.UserTypingPayload{
		UserID:         client.UserID,
		ConversationID: conversationID,
		Typing:         typing,
	}, client.UserID)
}

// HandleDisconnect tears a connection down. The connection-set transition to
// empty is the sole authority for going offline; only then is the presence
// change broadcast and the active-conversation set cleared.
func (g *Gateway) HandleDisconnect(client *Client) {
	g.hub.Unregister(client)

	ctx := context.Background()
	userID, wentOffline, err := g.presence.MarkDisconnected(ctx, client.ID)
	if err != nil {
		log.Printf("realtime: mark disconnected %s: %v", client.ID, err)
	}
	if !wentOffline {
		return
	}

	if err := g.presence.ClearActiveConversations(ctx, userID); err != nil {
		log.Printf("realtime: clear active conversations for %s: %v", userID, err)
	}

	g.hub.BroadcastAll(models.EventUserPresence, models.UserPresencePayload{
		UserID: userID,
		Status: false,
	}, userID)
}
