package conversation

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var ErrConversationNotFound = errors.New("conversation doesn't exist")

// ConversationID derives the id both participants compute on their own:
// the two ids sorted and joined with "_".
func ConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

type GetConversationsRequest struct {
	UID string `json:"uid"`
}

type DBConversation struct {
	ID           string    `json:"id" bson:"_id"`
	Participants []string  `json:"participants" bson:"participants"`
	LastMessage  string    `json:"lastMessage" bson:"last_message"`
	LastUpdated  time.Time `json:"lastUpdated" bson:"last_updated"`
}

func (c *DBConversation) GetId() string {
	return c.ID
}

func (c *DBConversation) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// Other returns the participant that is not uid, or "" if uid is alone.
func (c *DBConversation) Other(uid string) string {
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

func (c *DBConversation) Clone() *DBConversation {
	cc := *c
	cc.Participants = append([]string(nil), c.Participants...)
	return &cc
}

// ResponseConversation is a conversation as the list screen shows it.
type ResponseConversation struct {
	ID               string    `json:"id"`
	ParticipantID    string    `json:"participantId"`
	ParticipantName  string    `json:"participantName"`
	ParticipantImage string    `json:"participantImage,omitempty"`
	LastMessage      string    `json:"lastMessage"`
	LastUpdated      time.Time `json:"lastUpdated"`
}
