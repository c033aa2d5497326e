package realtime

import "fmt"

// broadcastRoom addresses every connected client on every process.
const broadcastRoom = "*"

func UserRoom(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func ConversationRoom(conversationID string) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}
