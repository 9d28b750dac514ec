package message

import (
	"bytes"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrEmptyConversation = errors.New("conversation id can not empty")
	ErrEmptySender       = errors.New("sender id can not empty")
	ErrNotParticipant    = errors.New("not a participant of this conversation")
)

type CreateMessage struct {
	ConversationID string `json:"conversationId" bson:"conversation_id"`
	SenderID       string `json:"senderId" bson:"sender_id"`
	Content        string `json:"content" bson:"content"`
}

type DBMessage struct {
	Id             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationID string             `json:"conversationId" bson:"conversation_id"`
	SenderID       string             `json:"senderId" bson:"sender_id"`
	Content        string             `json:"content" bson:"content"`
	Timestamp      time.Time          `json:"timestamp" bson:"timestamp"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type ConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

// Snapshot is the full ordered message list of one conversation.
type Snapshot struct {
	ConversationID string       `json:"conversationId"`
	Messages       []*DBMessage `json:"messages"`
}

// SortMessages orders by timestamp, then by the backend-assigned id.
func SortMessages(messages []*DBMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return bytes.Compare(a.Id[:], b.Id[:]) < 0
	})
}

func cloneMessages(messages []*DBMessage) []*DBMessage {
	out := make([]*DBMessage, len(messages))
	for i, m := range messages {
		c := *m
		out[i] = &c
	}
	return out
}
