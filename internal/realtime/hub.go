package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/NamanGajera/Pictora-Backend/internal/pubsub"
)

type delivery struct {
	room          string
	frame         []byte
	excludeUserID string
}

type roomChange struct {
	client *Client
	room   string
}

// Hub owns every local connection and its room memberships. All membership
// state is mutated only inside Run, so handlers never race each other. Room
// emissions are also published through the broker so sockets on other
// processes receive them.
type Hub struct {
	nodeID    string
	publisher pubsub.Publisher

	register   chan *Client
	unregister chan *Client
	joins      chan roomChange
	leaves     chan roomChange
	broadcast  chan *delivery

	clients     map[*Client]struct{}
	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
}

func NewHub(nodeID string, publisher pubsub.Publisher) *Hub {
	return &Hub{
		nodeID:      nodeID,
		publisher:   publisher,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		joins:       make(chan roomChange),
		leaves:      make(chan roomChange),
		broadcast:   make(chan *delivery, 64),
		clients:     make(map[*Client]struct{}),
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.clientRooms[client] = make(map[string]struct{})
		case client := <-h.unregister:
			h.removeClient(client)
		case change := <-h.joins:
			h.joinRoom(change.client, change.room)
		case change := <-h.leaves:
			h.leaveRoom(change.client, change.room)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Join(client *Client, room string) {
	h.joins <- roomChange{client: client, room: room}
}

func (h *Hub) Leave(client *Client, room string) {
	h.leaves <- roomChange{client: client, room: room}
}

// EmitToConversation satisfies the conversation service's emitter contract.
func (h *Hub) EmitToConversation(conversationID, event string, payload any) {
	h.emit(ConversationRoom(conversationID), event, payload, "")
}

func (h *Hub) EmitToUser(userID, event string, payload any) {
	h.emit(UserRoom(userID), event, payload, "")
}

// EmitToRoomExcept emits to a room, skipping every connection of one user.
func (h *Hub) EmitToRoomExcept(room, event string, payload any, excludeUserID string) {
	h.emit(room, event, payload, excludeUserID)
}

// BroadcastAll emits to every connected client across all processes.
func (h *Hub) BroadcastAll(event string, payload any, excludeUserID string) {
	h.emit(broadcastRoom, event, payload, excludeUserID)
}

func (h *Hub) emit(room, event string, payload any, excludeUserID string) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		log.Printf("realtime: encode %s event: %v", event, err)
		return
	}

	h.broadcast <- &delivery{room: room, frame: frame, excludeUserID: excludeUserID}
	h.publish(room, frame, excludeUserID)
}

// HandleRemote relays an event published by another process to local room
// members. The origin check drops this process's own echo.
func (h *Hub) HandleRemote(event *pubsub.Event) {
	if event.Origin == h.nodeID {
		return
	}
	h.broadcast <- &delivery{
		room:          event.Room,
		frame:         event.Frame,
		excludeUserID: event.ExcludeUserID,
	}
}

func (h *Hub) publish(room string, frame []byte, excludeUserID string) {
	if h.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.publisher.Publish(ctx, &pubsub.Event{
		Origin:        h.nodeID,
		Room:          room,
		ExcludeUserID: excludeUserID,
		Frame:         frame,
	})
	if err != nil {
		log.Printf("realtime: publish to %s: %v", room, err)
	}
}

func (h *Hub) deliver(d *delivery) {
	if d.room == broadcastRoom {
		for client := range h.clients {
			if d.excludeUserID != "" && client.UserID == d.excludeUserID {
				continue
			}
			h.send(client, d.frame)
		}
		return
	}

	for client := range h.rooms[d.room] {
		if d.excludeUserID != "" && client.UserID == d.excludeUserID {
			continue
		}
		h.send(client, d.frame)
	}
}

func (h *Hub) send(client *Client, frame []byte) {
	if !client.enqueue(frame) {
		// Slow client: drop it rather than block the loop.
		h.removeClient(client)
	}
}

func (h *Hub) joinRoom(client *Client, room string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[client] = struct{}{}
	h.clientRooms[client][room] = struct{}{}
}

func (h *Hub) leaveRoom(client *Client, room string) {
	set, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.rooms, room)
	}
	if memberships, ok := h.clientRooms[client]; ok {
		delete(memberships, room)
	}
}

func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	for room := range h.clientRooms[client] {
		h.leaveRoom(client, room)
	}
	delete(h.clientRooms, client)
	delete(h.clients, client)
	client.closeSend()
}

// encodeFrame flattens a payload struct and tags it with the event name, so
// the wire shape is {"type": "...", ...payload fields}.
func encodeFrame(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	frame := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	typeTag, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	frame["type"] = typeTag

	return json.Marshal(frame)
}
