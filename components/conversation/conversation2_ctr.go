package conversation

import (
	"context"
	"fmt"
	"sync"

	"chatey/components/user"
)

// Directory is the in-memory list of conversations the signed-in identity
// takes part in. A fetch replaces the list wholesale.
type Directory struct {
	repo   I_ConversationRepo
	latest I_LatestMessage

	mu            sync.RWMutex
	conversations []*DBConversation
}

// NewDirectory builds a directory over repo. latest may be nil, in which case
// previews are shown exactly as stored.
func NewDirectory(repo I_ConversationRepo, latest I_LatestMessage) *Directory {
	return &Directory{repo: repo, latest: latest}
}

// FetchConversations scans every conversation and keeps the ones identityID
// takes part in. Previews older than the newest message are recomputed from
// it, so a failed preview write after a send does not stay visible.
func (me *Directory) FetchConversations(ctx context.Context, identityID string) ([]*DBConversation, error) {
	Logger.V(2).Info(fmt.Sprintf("fetch conversations of %s", identityID))

	all, err := me.repo.FindConversations(ctx)
	if err != nil {
		return nil, err
	}

	mine := make([]*DBConversation, 0, len(all))
	for _, c := range all {
		if c.HasParticipant(identityID) {
			mine = append(mine, c)
		}
	}

	if me.latest != nil {
		for _, c := range mine {
			me.reconcile(ctx, c)
		}
	}

	me.mu.Lock()
	me.conversations = mine
	me.mu.Unlock()

	Logger.V(2).Info(fmt.Sprintf("conversation count %d", len(mine)))
	return me.Conversations(), nil
}

func (me *Directory) reconcile(ctx context.Context, c *DBConversation) {
	content, at, found, err := me.latest.LatestMessage(ctx, c.ID)
	if err != nil {
		Logger.Error(err, "error reading latest message", "conversation", c.ID)
		return
	}

	if found && at.After(c.LastUpdated) {
		Logger.V(2).Info(fmt.Sprintf("stale preview on %s", c.ID))
		c.LastMessage = content
		c.LastUpdated = at
	}
}

// Conversations returns a copy of the cached list.
func (me *Directory) Conversations() []*DBConversation {
	me.mu.RLock()
	defer me.mu.RUnlock()

	out := make([]*DBConversation, 0, len(me.conversations))
	for _, c := range me.conversations {
		out = append(out, c.Clone())
	}
	return out
}

func (me *Directory) SetConversations(conversations []*DBConversation) {
	me.mu.Lock()
	me.conversations = conversations
	me.mu.Unlock()
}

func (me *Directory) Clear() {
	me.SetConversations(nil)
}

// DisplayParticipant resolves who a conversation is with, from the viewer's
// cached friend list. Unknown participants get the name "Unknown".
func DisplayParticipant(c *DBConversation, viewer *user.DBUser) user.FriendRef {
	other := c.Other(viewer.UID)
	if friend, ok := viewer.FindFriend(other); ok {
		return friend
	}
	return user.FriendRef{ID: other, Name: "Unknown"}
}

// ListFor renders the cached list for viewer.
func (me *Directory) ListFor(viewer *user.DBUser) []*ResponseConversation {
	list := me.Conversations()
	out := make([]*ResponseConversation, 0, len(list))
	for _, c := range list {
		p := DisplayParticipant(c, viewer)
		out = append(out, &ResponseConversation{
			ID:               c.ID,
			ParticipantID:    p.ID,
			ParticipantName:  p.Name,
			ParticipantImage: p.ProfileImg,
			LastMessage:      c.LastMessage,
			LastUpdated:      c.LastUpdated,
		})
	}
	return out
}
