package notification

import (
	"time"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

const (
	TextRequestSent     = "Friend request sent"
	TextUserNotFound    = "Incorrect email entered"
	TextRequestAccepted = "Friend request accepted"
	TextRequestRejected = "Friend request rejected"
	TextRequestMissing  = "Friend request no longer exists"
	TextAlreadyFriends  = "You are already friends"
	TextSelfRequest     = "You can not add yourself"
)

// Notice is a transient message for whichever screen is active.
type Notice struct {
	ID   string    `json:"id"`
	Kind Kind      `json:"kind"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// I_Notifier is what the stores publish notices through.
type I_Notifier interface {
	Publish(kind Kind, text string) Notice
}
