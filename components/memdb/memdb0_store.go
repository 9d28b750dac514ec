// Package memdb keeps every collection in process memory. It backs the
// offline mode and the store tests; watches deliver synchronously on the
// goroutine that made the change.
package memdb

import (
	"context"
	"sync"
	"time"

	"chatey/components/conversation"
	"chatey/components/images"
	"chatey/components/message"
	"chatey/components/user"
	"chatey/database"
)

var (
	_ user.I_UserRepo                 = (*Store)(nil)
	_ conversation.I_ConversationRepo = (*Store)(nil)
	_ conversation.I_LatestMessage    = (*Store)(nil)
	_ message.I_MessageRepo           = (*Store)(nil)
	_ images.I_ImageRepo              = (*Store)(nil)
)

type blob struct {
	data     []byte
	metadata images.ImageMetadata
}

type state struct {
	users         map[string]*user.DBUser
	conversations map[string]*conversation.DBConversation
	messages      map[string][]*message.DBMessage
	images        map[string]*blob
}

type Store struct {
	mu    sync.Mutex
	clock *Clock
	seq   uint64
	state

	userWatch map[string]map[uint64]user.UserFunc
	msgWatch  map[string]map[uint64]message.SnapshotFunc
	failures  map[string]error

	// changes made inside a transaction are announced on commit
	inTx         bool
	pendingUsers map[string]bool
	pendingMsgs  map[string]bool
}

func New() *Store {
	return &Store{
		clock: NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond),
		state: state{
			users:         make(map[string]*user.DBUser),
			conversations: make(map[string]*conversation.DBConversation),
			messages:      make(map[string][]*message.DBMessage),
			images:        make(map[string]*blob),
		},
		userWatch: make(map[string]map[uint64]user.UserFunc),
		msgWatch:  make(map[string]map[uint64]message.SnapshotFunc),
		failures:  make(map[string]error),
	}
}

func (me *Store) resetPendingLocked() {
	me.pendingUsers = make(map[string]bool)
	me.pendingMsgs = make(map[string]bool)
}

// Clock is a fake server clock. Every reading is one step later than the last.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// Freeze stops the clock so writes share one timestamp.
func (c *Clock) Freeze() {
	c.mu.Lock()
	c.step = 0
	c.mu.Unlock()
}

func (me *Store) Clock() *Clock {
	return me.clock
}

// FailOn makes every call of op return err until Heal.
func (me *Store) FailOn(op string, err error) {
	me.mu.Lock()
	me.failures[op] = err
	me.mu.Unlock()
}

func (me *Store) Heal() {
	me.mu.Lock()
	me.failures = make(map[string]error)
	me.mu.Unlock()
}

// failLocked reports the injected error for op, if any.
func (me *Store) failLocked(op string) error {
	return me.failures[op]
}

func (me *Store) nextID() uint64 {
	me.seq++
	return me.seq
}

func (me *Store) snapshotLocked() state {
	s := state{
		users:         make(map[string]*user.DBUser, len(me.users)),
		conversations: make(map[string]*conversation.DBConversation, len(me.conversations)),
		messages:      make(map[string][]*message.DBMessage, len(me.messages)),
		images:        make(map[string]*blob, len(me.images)),
	}
	for k, v := range me.users {
		s.users[k] = v.Clone()
	}
	for k, v := range me.conversations {
		s.conversations[k] = v.Clone()
	}
	for k, v := range me.messages {
		s.messages[k] = append([]*message.DBMessage(nil), v...)
	}
	for k, v := range me.images {
		s.images[k] = v
	}
	return s
}

// Tx returns a runner that restores every collection when fn fails. It
// assumes nothing else writes while fn runs.
func (me *Store) Tx() database.I_TxRunner {
	return &memTx{me}
}

type memTx struct {
	store *Store
}

func (t *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s := t.store

	s.mu.Lock()
	saved := s.snapshotLocked()
	s.inTx = true
	s.resetPendingLocked()
	s.mu.Unlock()

	err := fn(ctx)

	s.mu.Lock()
	s.inTx = false
	users, convs := s.pendingUsers, s.pendingMsgs
	s.resetPendingLocked()
	if err != nil {
		s.state = saved
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	for uid := range users {
		s.announceUser(uid)
	}
	for id := range convs {
		s.announceMessages(id)
	}
	return nil
}

func (t *memTx) Atomic() bool {
	return true
}
