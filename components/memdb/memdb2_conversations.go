package memdb

import (
	"context"
	"sort"

	"chatey/components/conversation"
)

func (me *Store) CreateConversation(ctx context.Context, id string, participants []string) (*conversation.DBConversation, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("CreateConversation"); err != nil {
		return nil, err
	}

	c := &conversation.DBConversation{
		ID:           id,
		Participants: append([]string(nil), participants...),
		LastMessage:  "",
		LastUpdated:  me.clock.Now(),
	}
	me.conversations[id] = c
	return c.Clone(), nil
}

func (me *Store) FindConversationById(ctx context.Context, id string) (*conversation.DBConversation, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("FindConversationById"); err != nil {
		return nil, err
	}

	c, ok := me.conversations[id]
	if !ok {
		return nil, conversation.ErrConversationNotFound
	}
	return c.Clone(), nil
}

// FindConversations returns every conversation ordered by id.
func (me *Store) FindConversations(ctx context.Context) ([]*conversation.DBConversation, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("FindConversations"); err != nil {
		return nil, err
	}

	out := make([]*conversation.DBConversation, 0, len(me.conversations))
	for _, c := range me.conversations {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (me *Store) UpdateLastMessage(ctx context.Context, id, content string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("UpdateLastMessage"); err != nil {
		return err
	}

	c, ok := me.conversations[id]
	if !ok {
		return conversation.ErrConversationNotFound
	}

	next := c.Clone()
	next.LastMessage = content
	next.LastUpdated = me.clock.Now()
	me.conversations[id] = next
	return nil
}
