package message

import (
	"context"
	"fmt"
	"sync"

	"chatey/components/conversation"
	"chatey/database"
	"chatey/metrics"
	"chatey/utils"
)

type liveQuery struct {
	gen    uint64
	handle database.Subscription
}

// MessageSync keeps one live query per open conversation and a local cache
// of the latest ordered snapshot of each.
type MessageSync struct {
	ctx   context.Context
	repo  I_MessageRepo
	convs conversation.I_ConversationRepo

	mu        sync.Mutex
	seq       uint64
	live      map[string]*liveQuery
	messages  map[string][]*DBMessage
	listeners map[uint64]func(Snapshot)
	onError   func(error)
}

func NewMessageSync(ctx context.Context, repo I_MessageRepo, convs conversation.I_ConversationRepo) *MessageSync {
	return &MessageSync{
		ctx:       ctx,
		repo:      repo,
		convs:     convs,
		live:      make(map[string]*liveQuery),
		messages:  make(map[string][]*DBMessage),
		listeners: make(map[uint64]func(Snapshot)),
	}
}

// SetErrorHandler sets where subscription failures are reported.
func (me *MessageSync) SetErrorHandler(fn func(error)) {
	me.mu.Lock()
	me.onError = fn
	me.mu.Unlock()
}

// Listen registers fn for every snapshot applied to the cache. The returned
// func removes it.
func (me *MessageSync) Listen(fn func(Snapshot)) func() {
	me.mu.Lock()
	me.seq++
	id := me.seq
	me.listeners[id] = fn
	me.mu.Unlock()

	return func() {
		me.mu.Lock()
		delete(me.listeners, id)
		me.mu.Unlock()
	}
}

// LoadMessages starts a live query on the conversation unless one is
// already running.
func (me *MessageSync) LoadMessages(conversationID string) error {
	if conversationID == "" {
		return ErrEmptyConversation
	}

	me.mu.Lock()
	if _, ok := me.live[conversationID]; ok {
		me.mu.Unlock()
		Logger.V(2).Info(fmt.Sprintf("already subscribed to %s", conversationID))
		return nil
	}
	me.seq++
	q := &liveQuery{gen: me.seq}
	me.live[conversationID] = q
	me.mu.Unlock()

	gen := q.gen
	handle, err := me.repo.WatchMessages(me.ctx, conversationID, func(messages []*DBMessage, err error) {
		me.apply(conversationID, gen, messages, err)
	})

	me.mu.Lock()
	cur, ok := me.live[conversationID]
	if err != nil {
		if ok && cur == q {
			delete(me.live, conversationID)
		}
		me.mu.Unlock()
		Logger.Error(err, "subscribe failed", "conversation", conversationID)
		return err
	}

	if !ok || cur != q {
		// torn down while subscribing
		me.mu.Unlock()
		handle.Close()
		return nil
	}
	q.handle = handle
	me.mu.Unlock()

	metrics.LiveSubscriptions.Inc()
	Logger.V(2).Info(fmt.Sprintf("subscribed to %s", conversationID))
	return nil
}

func (me *MessageSync) apply(conversationID string, gen uint64, messages []*DBMessage, err error) {
	if err != nil {
		me.mu.Lock()
		q, ok := me.live[conversationID]
		if !ok || q.gen != gen {
			me.mu.Unlock()
			return
		}
		delete(me.live, conversationID)
		handle := q.handle
		onError := me.onError
		me.mu.Unlock()

		if handle != nil {
			handle.Close()
			metrics.LiveSubscriptions.Dec()
		}

		Logger.Error(err, "message subscription stopped", "conversation", conversationID)
		if onError != nil {
			onError(err)
		}
		return
	}

	sorted := cloneMessages(messages)
	SortMessages(sorted)

	me.mu.Lock()
	q, ok := me.live[conversationID]
	if !ok || q.gen != gen {
		me.mu.Unlock()
		return
	}
	me.messages[conversationID] = sorted
	listeners := me.listenersLocked()
	me.mu.Unlock()

	metrics.Snapshots.Inc()
	me.notify(listeners, conversationID, sorted)
}

func (me *MessageSync) listenersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(me.listeners))
	for _, fn := range me.listeners {
		out = append(out, fn)
	}
	return out
}

func (me *MessageSync) notify(listeners []func(Snapshot), conversationID string, messages []*DBMessage) {
	for _, fn := range listeners {
		fn(Snapshot{ConversationID: conversationID, Messages: cloneMessages(messages)})
	}
}

// SendMessage writes one message, then the conversation preview. A failed
// preview write is logged and counted; the message stays.
func (me *MessageSync) SendMessage(conversationID, senderID, content string) (*DBMessage, error) {
	if conversationID == "" {
		return nil, ErrEmptyConversation
	}
	if senderID == "" {
		return nil, ErrEmptySender
	}
	if ok, err := utils.IsValidMessage(content); !ok {
		return nil, err
	}

	msg, err := me.repo.AddMessage(me.ctx, &CreateMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	me.merge(msg)

	if err := me.convs.UpdateLastMessage(me.ctx, conversationID, content); err != nil {
		metrics.PartialFailures.WithLabelValues("sendMessage").Inc()
		Logger.Error(err, "message stored but preview not updated", "conversation", conversationID)
	}

	return msg, nil
}

// merge puts msg into the cached list unless a snapshot already carried it.
func (me *MessageSync) merge(msg *DBMessage) {
	me.mu.Lock()
	current := me.messages[msg.ConversationID]
	for _, m := range current {
		if m.Id == msg.Id {
			me.mu.Unlock()
			return
		}
	}

	next := make([]*DBMessage, 0, len(current)+1)
	next = append(next, current...)
	c := *msg
	next = append(next, &c)
	SortMessages(next)
	me.messages[msg.ConversationID] = next
	listeners := me.listenersLocked()
	me.mu.Unlock()

	me.notify(listeners, msg.ConversationID, next)
}

// Cleanup stops the live query on the conversation. The cached messages
// stay. Calling it for a conversation without a live query does nothing.
func (me *MessageSync) Cleanup(conversationID string) {
	me.mu.Lock()
	q, ok := me.live[conversationID]
	if !ok {
		me.mu.Unlock()
		return
	}
	delete(me.live, conversationID)
	handle := q.handle
	me.mu.Unlock()

	if handle != nil {
		handle.Close()
		metrics.LiveSubscriptions.Dec()
	}
	Logger.V(2).Info(fmt.Sprintf("unsubscribed from %s", conversationID))
}

func (me *MessageSync) CleanupAll() {
	me.mu.Lock()
	ids := make([]string, 0, len(me.live))
	for id := range me.live {
		ids = append(ids, id)
	}
	me.mu.Unlock()

	for _, id := range ids {
		me.Cleanup(id)
	}
}

// ClearMessages empties the cache. Live queries keep running.
func (me *MessageSync) ClearMessages() {
	me.mu.Lock()
	me.messages = make(map[string][]*DBMessage)
	me.mu.Unlock()
}

// Messages returns a copy of the cached list for the conversation.
func (me *MessageSync) Messages(conversationID string) []*DBMessage {
	me.mu.Lock()
	defer me.mu.Unlock()
	return cloneMessages(me.messages[conversationID])
}

func (me *MessageSync) IsLive(conversationID string) bool {
	me.mu.Lock()
	defer me.mu.Unlock()
	_, ok := me.live[conversationID]
	return ok
}

func (me *MessageSync) LiveCount() int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return len(me.live)
}
