package chat

import (
	"chatey/components/user"
)

type ConversationParams struct {
	ConversationID string `json:"conversationId"`
}

type SendMessageParams struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type Identity struct {
	User       *user.DBUser `json:"user"`
	Registered bool         `json:"registered"`
}

// outbound is an encoded notification. When conversationID is set only
// clients viewing that conversation get it.
type outbound struct {
	conversationID string
	signOut        bool
	payload        []byte
}
