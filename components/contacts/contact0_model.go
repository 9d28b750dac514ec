package contacts

import (
	"errors"

	"chatey/components/user"
)

type Status = string

const (
	Accepted Status = "50_accepted"
	Pending  Status = "40_pending"
	Waiting  Status = "30_waiting"
	None     Status = "00_none"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrSelfRequest     = errors.New("can not send a friend request to yourself")
	ErrAlreadyFriends  = errors.New("you are already be friends")
	ErrRequestNotFound = errors.New("friend request doesn't exist")
)

type SendFriendRequest struct {
	Email string `json:"email"`
}

type RequesterParam struct {
	RequesterID string `json:"requesterId"`
}

type SearchUser struct {
	Keyword string `json:"keyword"`
	Page    string `json:"page"`
	Limit   string `json:"limit"`
}

// ResponseStatus tells a screen what happened to a relationship request.
// Not-found outcomes are not errors; they carry a notice instead.
type ResponseStatus struct {
	Done   bool   `json:"done"`
	Notice string `json:"notice,omitempty"`
}

type UserContact struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ProfileImg string `json:"profileImg"`
	Status     Status `json:"status"`
}

type ResponseContacts struct {
	Friends  []user.FriendRef     `json:"friends"`
	Requests []user.FriendRequest `json:"requests"`
}

// StatusBetween reads the relationship of me towards other from both
// documents. Outgoing requests only show in the recipient's pending list.
func StatusBetween(me, other *user.DBUser) Status {
	switch {
	case me.HasFriend(other.UID):
		return Accepted
	case hasRequest(me, other.UID):
		return Pending
	case hasRequest(other, me.UID):
		return Waiting
	default:
		return None
	}
}

func hasRequest(u *user.DBUser, from string) bool {
	_, ok := u.FindRequest(from)
	return ok
}
