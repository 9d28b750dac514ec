package chat

import (
	"time"
)

const (
	// Max wait time when writing message to peer
	writeWait = 10 * time.Second

	// Max time till next pong from peer
	pongWait = 60 * time.Second

	// Send ping interval, must be less then pong wait time
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var (
	newline = []byte{'\n'}
)

type Action = string

// client to server
const (
	OpenConversationAction  Action = "open-conversation"
	CloseConversationAction Action = "close-conversation"
	SendMessageAction       Action = "send-message"
)

// server to client
const (
	MessagesAction Action = "messages"
	NoticeAction   Action = "notice"
	IdentityAction Action = "identity"
)
