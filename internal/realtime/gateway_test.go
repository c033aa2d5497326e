package realtime

import (
	"context"
	"testing"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
)

type stubConversationAccess struct {
	memberOf        map[string]bool
	memberErr       error
	conversationIDs []string
	markedRead      []string
}

func (s *stubConversationAccess) IsMember(_ context.Context, conversationID, _ string) (bool, error) {
	if s.memberErr != nil {
		return false, s.memberErr
	}
	return s.memberOf[conversationID], nil
}

func (s *stubConversationAccess) ListMemberConversationIDs(_ context.Context, _ string) ([]string, error) {
	return s.conversationIDs, nil
}

func (s *stubConversationAccess) MarkConversationRead(_ context.Context, conversationID, _ string) error {
	s.markedRead = append(s.markedRead, conversationID)
	return nil
}

type stubPresenceTracker struct {
	disconnectUserID string
	wentOffline      bool
	activeSet        []string
	inactiveSet      []string
	cleared          []string
}

func (s *stubPresenceTracker) MarkConnected(_ context.Context, _, _ string) error {
	return nil
}

func (s *stubPresenceTracker) MarkDisconnected(_ context.Context, _ string) (string, bool, error) {
	return s.disconnectUserID, s.wentOffline, nil
}

func (s *stubPresenceTracker) SetConversationActive(_ context.Context, _, conversationID string) error {
	s.activeSet = append(s.activeSet, conversationID)
	return nil
}

func (s *stubPresenceTracker) SetConversationInactive(_ context.Context, _, conversationID string) error {
	s.inactiveSet = append(s.inactiveSet, conversationID)
	return nil
}

func (s *stubPresenceTracker) ClearActiveConversations(_ context.Context, _ string) error {
	s.cleared = append(s.cleared, "cleared")
	return nil
}

func newTestGateway(t *testing.T, access *stubConversationAccess, presence *stubPresenceTracker) (*Gateway, *Hub) {
	t.Helper()
	hub := startHub(t, nil)
	return NewGateway(hub, presence, access), hub
}

func TestJoinRejectsNonMember(t *testing.T) {
	access := &stubConversationAccess{memberOf: map[string]bool{}}
	presence := &stubPresenceTracker{}
	gateway, hub := newTestGateway(t, access, presence)

	client := NewClient(hub, nil, "outsider")
	hub.Register(client)

	gateway.handleEvent(client, inboundEvent{Type: models.EventJoinConversation, ConversationID: "conv-1"})

	frame := readFrame(t, client)
	if frame["type"] != models.EventError {
		t.Fatalf("expected error frame, got %v", frame)
	}
	if frame["message"] != "Not a member of this conversation" {
		t.Fatalf("unexpected rejection message: %v", frame["message"])
	}
	if len(presence.activeSet) != 0 {
		t.Fatalf("non-member must not become active, got %v", presence.activeSet)
	}

	// The room must stay empty for this client.
	hub.EmitToConversation("conv-1", models.EventNewMessage, models.NewMessagePayload{
		Data: &models.MessageDetail{Message: models.Message{ID: "msg-1"}},
	})
	assertNoFrame(t, client)
}

func TestJoinAcksMarksActiveAndReadsConversation(t *testing.T) {
	access := &stubConversationAccess{memberOf: map[string]bool{"conv-1": true}}
	presence := &stubPresenceTracker{}
	gateway, hub := newTestGateway(t, access, presence)

	client := NewClient(hub, nil, "member")
	hub.Register(client)

	gateway.handleEvent(client, inboundEvent{Type: models.EventJoinConversation, ConversationID: "conv-1"})

	frame := readFrame(t, client)
	if frame["type"] != models.EventConversationJoined || frame["conversation_id"] != "conv-1" {
		t.Fatalf("expected join ack, got %v", frame)
	}
	if len(presence.activeSet) != 1 || presence.activeSet[0] != "conv-1" {
		t.Fatalf("expected active set update, got %v", presence.activeSet)
	}
	if len(access.markedRead) != 1 || access.markedRead[0] != "conv-1" {
		t.Fatalf("expected catch-up read on join, got %v", access.markedRead)
	}

	hub.EmitToConversation("conv-1", models.EventNewMessage, models.NewMessagePayload{
		Data: &models.MessageDetail{Message: models.Message{ID: "msg-1"}},
	})
	delivered := readFrame(t, client)
	if delivered["type"] != models.EventNewMessage {
		t.Fatalf("expected room delivery after join, got %v", delivered)
	}
}

func TestLeaveMarksConversationInactive(t *testing.T) {
	access := &stubConversationAccess{memberOf: map[string]bool{"conv-1": true}}
	presence := &stubPresenceTracker{}
	gateway, hub := newTestGateway(t, access, presence)

	client := NewClient(hub, nil, "member")
	hub.Register(client)

	gateway.handleEvent(client, inboundEvent{Type: models.EventJoinConversation, ConversationID: "conv-1"})
	readFrame(t, client)

	gateway.handleEvent(client, inboundEvent{Type: models.EventLeaveConversation, ConversationID: "conv-1"})

	frame := readFrame(t, client)
	if frame["type"] != models.EventConversationLeft {
		t.Fatalf("expected leave ack, got %v", frame)
	}
	if len(presence.inactiveSet) != 1 || presence.inactiveSet[0] != "conv-1" {
		t.Fatalf("expected inactive set update, got %v", presence.inactiveSet)
	}

	hub.EmitToConversation("conv-1", models.EventNewMessage, models.NewMessagePayload{
		Data: &models.MessageDetail{Message: models.Message{ID: "msg-1"}},
	})
	assertNoFrame(t, client)
}

func TestTypingRelaysToOtherMembersOnly(t *testing.T) {
	access := &stubConversationAccess{memberOf: map[string]bool{"conv-1": true}}
	presence := &stubPresenceTracker{}
	gateway, hub := newTestGateway(t, access, presence)

	typer := NewClient(hub, nil, "typer")
	reader := NewClient(hub, nil, "reader")
	for _, client := range []*Client{typer, reader} {
		hub.Register(client)
		gateway.handleEvent(client, inboundEvent{Type: models.EventJoinConversation, ConversationID: "conv-1"})
		readFrame(t, client)
	}

	gateway.handleEvent(typer, inboundEvent{Type: models.EventTypingStart, ConversationID: "conv-1"})

	frame := readFrame(t, reader)
	if frame["type"] != models.EventUserTyping || frame["typing"] != true || frame["user_id"] != "typer" {
		t.Fatalf("unexpected typing frame: %v", frame)
	}
	assertNoFrame(t, typer)

	gateway.handleEvent(typer, inboundEvent{Type: models.EventTypingStop, ConversationID: "conv-1"})
	frame = readFrame(t, reader)
	if frame["typing"] != false {
		t.Fatalf("expected typing stop, got %v", frame)
	}
}

func TestUnknownEventTypeReturnsError(t *testing.T) {
	gateway, hub := newTestGateway(t, &stubConversationAccess{}, &stubPresenceTracker{})

	client := NewClient(hub, nil, "member")
	hub.Register(client)

	gateway.handleEvent(client, inboundEvent{Type: "subscribe_everything"})

	frame := readFrame(t, client)
	if frame["type"] != models.EventError || frame["message"] != "unknown event type" {
		t.Fatalf("expected unknown-event error, got %v", frame)
	}
}

func TestDisconnectBroadcastsOfflineOnlyOnLastConnection(t *testing.T) {
	access := &stubConversationAccess{}
	presence := &stubPresenceTracker{disconnectUserID: "user-a", wentOffline: false}
	gateway, hub := newTestGateway(t, access, presence)

	leaving := NewClient(hub, nil, "user-a")
	watcher := NewClient(hub, nil, "user-b")
	hub.Register(leaving)
	hub.Register(watcher)

	gateway.HandleDisconnect(leaving)
	if len(presence.cleared) != 0 {
		t.Fatalf("active set must survive while other connections remain")
	}
	assertNoFrame(t, watcher)

	second := NewClient(hub, nil, "user-a")
	hub.Register(second)
	presence.wentOffline = true

	gateway.HandleDisconnect(second)
	if len(presence.cleared) != 1 {
		t.Fatalf("expected active conversations to be cleared on offline transition")
	}

	frame := readFrame(t, watcher)
	if frame["type"] != models.EventUserPresence || frame["status"] != false || frame["user_id"] != "user-a" {
		t.Fatalf("expected offline broadcast, got %v", frame)
	}
}
