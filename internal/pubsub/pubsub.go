package pubsub

import (
	"context"
	"encoding/json"
)

// Event is one realtime emission crossing process boundaries. Frame carries
// the already-encoded wire payload so receiving processes relay it verbatim.
// Origin identifies the publishing process; subscribers skip their own echo.
type Event struct {
	Origin        string          `json:"origin"`
	Room          string          `json:"room"`
	ExcludeUserID string          `json:"exclude_user_id,omitempty"`
	Frame         json.RawMessage `json:"frame"`
}

type Handler func(event *Event)

// Publisher fans an event out to every gateway process, including this one.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Subscriber delivers events published by any process. Subscribe does not
// block; delivery stops when the subscriber is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
