package memdb

import (
	"context"
	"time"

	"chatey/components/message"
	"chatey/database"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (me *Store) AddMessage(ctx context.Context, msg *message.CreateMessage) (*message.DBMessage, error) {
	me.mu.Lock()
	if err := me.failLocked("AddMessage"); err != nil {
		me.mu.Unlock()
		return nil, err
	}

	stored := &message.DBMessage{
		Id:             primitive.NewObjectID(),
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		Timestamp:      me.clock.Now(),
	}
	me.messages[msg.ConversationID] = append(me.messages[msg.ConversationID], stored)
	out := *stored
	me.mu.Unlock()

	me.messagesChanged(msg.ConversationID)
	return &out, nil
}

func (me *Store) FindMessages(ctx context.Context, conversationID string) ([]*message.DBMessage, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("FindMessages"); err != nil {
		return nil, err
	}
	return me.orderedLocked(conversationID), nil
}

func (me *Store) orderedLocked(conversationID string) []*message.DBMessage {
	out := make([]*message.DBMessage, 0, len(me.messages[conversationID]))
	for _, m := range me.messages[conversationID] {
		c := *m
		out = append(out, &c)
	}
	message.SortMessages(out)
	return out
}

func (me *Store) LatestMessage(ctx context.Context, conversationID string) (string, time.Time, bool, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("LatestMessage"); err != nil {
		return "", time.Time{}, false, err
	}

	ordered := me.orderedLocked(conversationID)
	if len(ordered) == 0 {
		return "", time.Time{}, false, nil
	}
	last := ordered[len(ordered)-1]
	return last.Content, last.Timestamp, true, nil
}

// WatchMessages delivers the ordered list right away and after every insert.
func (me *Store) WatchMessages(ctx context.Context, conversationID string, fn message.SnapshotFunc) (database.Subscription, error) {
	me.mu.Lock()
	if err := me.failLocked("WatchMessages"); err != nil {
		me.mu.Unlock()
		return nil, err
	}

	id := me.nextID()
	if me.msgWatch[conversationID] == nil {
		me.msgWatch[conversationID] = make(map[uint64]message.SnapshotFunc)
	}
	me.msgWatch[conversationID][id] = fn
	current := me.orderedLocked(conversationID)
	me.mu.Unlock()

	fn(current, nil)

	return database.NewSubscription(func() {
		me.mu.Lock()
		delete(me.msgWatch[conversationID], id)
		me.mu.Unlock()
	}), nil
}

// MessageWatchers counts open watches on the conversation.
func (me *Store) MessageWatchers(conversationID string) int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return len(me.msgWatch[conversationID])
}

// BreakMessageWatch ends every watch on the conversation with err, the way
// a dropped change stream does.
func (me *Store) BreakMessageWatch(conversationID string, err error) {
	me.mu.Lock()
	watchers := me.msgWatch[conversationID]
	delete(me.msgWatch, conversationID)
	me.mu.Unlock()

	for _, fn := range watchers {
		fn(nil, err)
	}
}

// InsertMessage stores msg as is, with the caller's timestamp, and
// announces it. Tests use it to emit out of order or tied timestamps.
func (me *Store) InsertMessage(msg *message.DBMessage) {
	me.mu.Lock()
	c := *msg
	if c.Id.IsZero() {
		c.Id = primitive.NewObjectID()
	}
	me.messages[c.ConversationID] = append(me.messages[c.ConversationID], &c)
	me.mu.Unlock()

	me.messagesChanged(c.ConversationID)
}

func (me *Store) messagesChanged(conversationID string) {
	me.mu.Lock()
	if me.inTx {
		me.pendingMsgs[conversationID] = true
		me.mu.Unlock()
		return
	}
	me.mu.Unlock()
	me.announceMessages(conversationID)
}

func (me *Store) announceMessages(conversationID string) {
	me.mu.Lock()
	watchers := make([]message.SnapshotFunc, 0, len(me.msgWatch[conversationID]))
	for _, fn := range me.msgWatch[conversationID] {
		watchers = append(watchers, fn)
	}
	current := me.orderedLocked(conversationID)
	me.mu.Unlock()

	for _, fn := range watchers {
		fn(current, nil)
	}
}
