package models

import "time"

// UserSummary is the short user form attached to messages and
// conversation-member listings.
type UserSummary struct {
	ID             string  `json:"id"`
	UserName       string  `json:"user_name"`
	FullName       string  `json:"full_name"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// Presence is a user's coarse online state derived from the number of live
// connections. LastSeen is zero when the user has never connected.
type Presence struct {
	UserID   string         `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen *time.Time     `json:"last_seen,omitempty"`
}

type PaginationMeta struct {
	Skip  int `json:"skip"`
	Take  int `json:"take"`
	Total int `json:"total"`
}
