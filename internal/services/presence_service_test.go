package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/NamanGajera/Pictora-Backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the subset of redis.Cmdable the presence service
// touches over in-memory maps. Unimplemented commands panic via the embedded
// nil interface, which is what we want in a test.
type fakeRedis struct {
	redis.Cmdable
	strings map[string]string
	sets    map[string]map[string]struct{}
	hashes  map[string]map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		strings: map[string]string{},
		sets:    map[string]map[string]struct{}{},
		hashes:  map[string]map[string]string{},
	}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.strings[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := f.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.strings[key]; ok {
			delete(f.strings, key)
			removed++
		}
		if _, ok := f.sets[key]; ok {
			delete(f.sets, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeRedis) SAdd(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	set, ok := f.sets[key]
	if !ok {
		set = map[string]struct{}{}
		f.sets[key] = set
	}
	var added int64
	for _, member := range members {
		name := fmt.Sprint(member)
		if _, ok := set[name]; !ok {
			set[name] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeRedis) SRem(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	set := f.sets[key]
	var removed int64
	for _, member := range members {
		name := fmt.Sprint(member)
		if _, ok := set[name]; ok {
			delete(set, name)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (f *fakeRedis) SCard(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(f.sets[key])), nil)
}

func (f *fakeRedis) SIsMember(_ context.Context, key string, member interface{}) *redis.BoolCmd {
	_, ok := f.sets[key][fmt.Sprint(member)]
	return redis.NewBoolResult(ok, nil)
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	hash, ok := f.hashes[key]
	if !ok {
		hash = map[string]string{}
		f.hashes[key] = hash
	}
	for i := 0; i+1 < len(values); i += 2 {
		hash[fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	hash := f.hashes[key]
	if hash == nil {
		hash = map[string]string{}
	}
	return redis.NewMapStringStringResult(hash, nil)
}

func TestPresenceLifecycleAcrossMultipleConnections(t *testing.T) {
	rdb := newFakeRedis()
	presence := NewPresenceService(rdb)
	ctx := context.Background()

	if err := presence.MarkConnected(ctx, "user-1", "conn-a"); err != nil {
		t.Fatalf("MarkConnected: %v", err)
	}
	if err := presence.MarkConnected(ctx, "user-1", "conn-b"); err != nil {
		t.Fatalf("MarkConnected: %v", err)
	}

	record, err := presence.GetPresence(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if record.Status != models.PresenceOnline {
		t.Fatalf("expected online, got %s", record.Status)
	}
	if record.LastSeen == nil {
		t.Fatalf("expected lastSeen to be recorded")
	}

	userID, wentOffline, err := presence.MarkDisconnected(ctx, "conn-a")
	if err != nil {
		t.Fatalf("MarkDisconnected: %v", err)
	}
	if userID != "user-1" || wentOffline {
		t.Fatalf("user must stay online while a connection remains: %s %v", userID, wentOffline)
	}

	userID, wentOffline, err = presence.MarkDisconnected(ctx, "conn-b")
	if err != nil {
		t.Fatalf("MarkDisconnected: %v", err)
	}
	if userID != "user-1" || !wentOffline {
		t.Fatalf("expected offline transition on last disconnect: %s %v", userID, wentOffline)
	}

	record, err = presence.GetPresence(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if record.Status != models.PresenceOffline {
		t.Fatalf("expected offline, got %s", record.Status)
	}
}

func TestMarkDisconnectedIgnoresUnknownConnection(t *testing.T) {
	presence := NewPresenceService(newFakeRedis())

	userID, wentOffline, err := presence.MarkDisconnected(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("MarkDisconnected: %v", err)
	}
	if userID != "" || wentOffline {
		t.Fatalf("unknown connection must be a no-op, got %s %v", userID, wentOffline)
	}
}

func TestGetPresenceDefaultsToOffline(t *testing.T) {
	presence := NewPresenceService(newFakeRedis())

	record, err := presence.GetPresence(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if record.Status != models.PresenceOffline {
		t.Fatalf("expected offline default, got %s", record.Status)
	}
	if record.LastSeen != nil {
		t.Fatalf("expected nil lastSeen, got %v", record.LastSeen)
	}
}

func TestActiveConversationTracking(t *testing.T) {
	presence := NewPresenceService(newFakeRedis())
	ctx := context.Background()

	if err := presence.SetConversationActive(ctx, "user-1", "conv-1"); err != nil {
		t.Fatalf("SetConversationActive: %v", err)
	}

	active, err := presence.IsConversationActive(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("IsConversationActive: %v", err)
	}
	if !active {
		t.Fatalf("expected conversation to be active")
	}

	if err := presence.SetConversationInactive(ctx, "user-1", "conv-1"); err != nil {
		t.Fatalf("SetConversationInactive: %v", err)
	}
	active, err = presence.IsConversationActive(ctx, "user-1", "conv-1")
	if err != nil {
		t.Fatalf("IsConversationActive: %v", err)
	}
	if active {
		t.Fatalf("expected conversation to be inactive after leave")
	}
}

func TestClearActiveConversationsDropsWholeSet(t *testing.T) {
	presence := NewPresenceService(newFakeRedis())
	ctx := context.Background()

	if err := presence.SetConversationActive(ctx, "user-1", "conv-1"); err != nil {
		t.Fatalf("SetConversationActive: %v", err)
	}
	if err := presence.SetConversationActive(ctx, "user-1", "conv-2"); err != nil {
		t.Fatalf("SetConversationActive: %v", err)
	}

	if err := presence.ClearActiveConversations(ctx, "user-1"); err != nil {
		t.Fatalf("ClearActiveConversations: %v", err)
	}

	for _, conversationID := range []string{"conv-1", "conv-2"} {
		active, err := presence.IsConversationActive(ctx, "user-1", conversationID)
		if err != nil {
			t.Fatalf("IsConversationActive: %v", err)
		}
		if active {
			t.Fatalf("expected %s to be cleared", conversationID)
		}
	}
}

func TestGetPresenceBatchPreservesOrder(t *testing.T) {
	rdb := newFakeRedis()
	presence := NewPresenceService(rdb)
	ctx := context.Background()

	if err := presence.MarkConnected(ctx, "user-a", "conn-1"); err != nil {
		t.Fatalf("MarkConnected: %v", err)
	}

	records, err := presence.GetPresenceBatch(ctx, []string{"user-a", "user-b"})
	if err != nil {
		t.Fatalf("GetPresenceBatch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].UserID != "user-a" || records[0].Status != models.PresenceOnline {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].UserID != "user-b" || records[1].Status != models.PresenceOffline {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}
