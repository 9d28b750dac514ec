package user

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user doesn't exist")

// FriendRef is a copy of another identity's public fields taken when the
// relationship was formed. It is not refreshed when that identity changes.
type FriendRef struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	ProfileImg string `json:"profileImg" bson:"profile_img"`
}

// FriendRequest is the requester's snapshot sitting in the recipient's pending list.
type FriendRequest struct {
	ID         string    `json:"id" bson:"id"`
	Name       string    `json:"name" bson:"name"`
	ProfileImg string    `json:"profileImg" bson:"profile_img"`
	SentAt     time.Time `json:"sentAt,omitempty" bson:"sent_at,omitempty"`
}

func (r FriendRequest) Ref() FriendRef {
	return FriendRef{ID: r.ID, Name: r.Name, ProfileImg: r.ProfileImg}
}

type CreateUser struct {
	UID        string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ProfileImg string `json:"profileImg"`
}

type DBUser struct {
	UID            string          `json:"id" bson:"_id"`
	Name           string          `json:"name" bson:"name"`
	Email          string          `json:"email" bson:"email"`
	ProfileImg     string          `json:"profileImg" bson:"profile_img"`
	FriendList     []FriendRef     `json:"friendList" bson:"friend_list"`
	FriendRequests []FriendRequest `json:"friendRequests" bson:"friend_requests"`
	Conversations  []string        `json:"conversations" bson:"conversations"`
	CreatedAt      *time.Time      `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

func (u *DBUser) GetUID() string {
	return u.UID
}

func (u *DBUser) Snapshot() FriendRef {
	return FriendRef{ID: u.UID, Name: u.Name, ProfileImg: u.ProfileImg}
}

func (u *DBUser) FindRequest(requesterID string) (FriendRequest, bool) {
	for _, r := range u.FriendRequests {
		if r.ID == requesterID {
			return r, true
		}
	}
	return FriendRequest{}, false
}

func (u *DBUser) FindFriend(id string) (FriendRef, bool) {
	for _, f := range u.FriendList {
		if f.ID == id {
			return f, true
		}
	}
	return FriendRef{}, false
}

func (u *DBUser) HasFriend(id string) bool {
	_, ok := u.FindFriend(id)
	return ok
}

// Clone returns a deep copy with every list non-nil. A nil user stays nil.
func (u *DBUser) Clone() *DBUser {
	if u == nil {
		return nil
	}
	c := *u
	c.FriendList = append(make([]FriendRef, 0, len(u.FriendList)), u.FriendList...)
	c.FriendRequests = append(make([]FriendRequest, 0, len(u.FriendRequests)), u.FriendRequests...)
	c.Conversations = append(make([]string, 0, len(u.Conversations)), u.Conversations...)
	return &c
}

// Stamp sets UpdatedAt to now and CreatedAt too when the user has none.
func (u *DBUser) Stamp(now time.Time) {
	if u.CreatedAt == nil {
		u.CreatedAt = &now
	}
	u.UpdatedAt = &now
}

// WithoutRequest drops requesterID from the pending list.
func (u *DBUser) WithoutRequest(requesterID string) {
	out := make([]FriendRequest, 0, len(u.FriendRequests))
	for _, r := range u.FriendRequests {
		if r.ID != requesterID {
			out = append(out, r)
		}
	}
	u.FriendRequests = out
}

// WithFriend adds friend and conversationID unless already present.
func (u *DBUser) WithFriend(friend FriendRef, conversationID string) {
	if !u.HasFriend(friend.ID) {
		u.FriendList = append(u.FriendList, friend)
	}
	for _, c := range u.Conversations {
		if c == conversationID {
			return
		}
	}
	u.Conversations = append(u.Conversations, conversationID)
}

// Normalize replaces nil lists with empty ones so documents always carry arrays.
func (u *DBUser) Normalize() {
	if u.FriendList == nil {
		u.FriendList = []FriendRef{}
	}
	if u.FriendRequests == nil {
		u.FriendRequests = []FriendRequest{}
	}
	if u.Conversations == nil {
		u.Conversations = []string{}
	}
}

// I_Session exposes the signed-in identity to components that sit below the
// session store. User returns nil when nobody is signed in.
type I_Session interface {
	User() *DBUser
}
