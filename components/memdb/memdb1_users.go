package memdb

import (
	"context"

	"chatey/components/user"
	"chatey/database"
)

func (me *Store) ReplaceUser(ctx context.Context, u *user.DBUser) (*user.DBUser, error) {
	me.mu.Lock()
	if err := me.failLocked("ReplaceUser"); err != nil {
		me.mu.Unlock()
		return nil, err
	}

	c := u.Clone()
	now := me.clock.Now()
	if old, ok := me.users[c.UID]; ok && c.CreatedAt == nil {
		c.CreatedAt = old.CreatedAt
	}
	c.Stamp(now)
	c.Normalize()
	me.users[c.UID] = c
	out := c.Clone()
	me.mu.Unlock()

	me.userChanged(c.UID)
	return out, nil
}

func (me *Store) FindUserById(ctx context.Context, uid string) (*user.DBUser, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("FindUserById"); err != nil {
		return nil, err
	}

	u, ok := me.users[uid]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (me *Store) FindUsers(ctx context.Context) ([]*user.DBUser, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if err := me.failLocked("FindUsers"); err != nil {
		return nil, err
	}

	out := make([]*user.DBUser, 0, len(me.users))
	for _, u := range me.users {
		out = append(out, u.Clone())
	}
	return out, nil
}

func (me *Store) AddFriendRequest(ctx context.Context, uid string, req user.FriendRequest) error {
	return me.updateUser("AddFriendRequest", uid, func(u *user.DBUser) {
		if _, ok := u.FindRequest(req.ID); ok {
			return
		}
		u.FriendRequests = append(u.FriendRequests, req)
	})
}

func (me *Store) RemoveFriendRequest(ctx context.Context, uid, requesterID string) error {
	return me.updateUser("RemoveFriendRequest", uid, func(u *user.DBUser) {
		u.WithoutRequest(requesterID)
	})
}

func (me *Store) AddFriend(ctx context.Context, uid string, friend user.FriendRef, conversationID string) error {
	return me.updateUser("AddFriend", uid, func(u *user.DBUser) {
		u.WithFriend(friend, conversationID)
	})
}

func (me *Store) SetProfileImage(ctx context.Context, uid, link string) error {
	return me.updateUser("SetProfileImage", uid, func(u *user.DBUser) {
		u.ProfileImg = link
	})
}

func (me *Store) updateUser(op, uid string, fn func(u *user.DBUser)) error {
	me.mu.Lock()
	if err := me.failLocked(op); err != nil {
		me.mu.Unlock()
		return err
	}

	u, ok := me.users[uid]
	if !ok {
		me.mu.Unlock()
		return user.ErrUserNotFound
	}

	c := u.Clone()
	fn(c)
	c.Stamp(me.clock.Now())
	me.users[uid] = c
	me.mu.Unlock()

	me.userChanged(uid)
	return nil
}

// WatchUser delivers the current document right away, if there is one, and
// after every later change.
func (me *Store) WatchUser(ctx context.Context, uid string, fn user.UserFunc) (database.Subscription, error) {
	me.mu.Lock()
	if err := me.failLocked("WatchUser"); err != nil {
		me.mu.Unlock()
		return nil, err
	}

	id := me.nextID()
	if me.userWatch[uid] == nil {
		me.userWatch[uid] = make(map[uint64]user.UserFunc)
	}
	me.userWatch[uid][id] = fn

	var current *user.DBUser
	if u, ok := me.users[uid]; ok {
		current = u.Clone()
	}
	me.mu.Unlock()

	if current != nil {
		fn(current, nil)
	}

	return database.NewSubscription(func() {
		me.mu.Lock()
		delete(me.userWatch[uid], id)
		me.mu.Unlock()
	}), nil
}

// UserWatchers counts open watches on uid.
func (me *Store) UserWatchers(uid string) int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return len(me.userWatch[uid])
}

// BreakUserWatch ends every watch on uid with err.
func (me *Store) BreakUserWatch(uid string, err error) {
	me.mu.Lock()
	watchers := me.userWatch[uid]
	delete(me.userWatch, uid)
	me.mu.Unlock()

	for _, fn := range watchers {
		fn(nil, err)
	}
}

func (me *Store) userChanged(uid string) {
	me.mu.Lock()
	if me.inTx {
		me.pendingUsers[uid] = true
		me.mu.Unlock()
		return
	}
	me.mu.Unlock()
	me.announceUser(uid)
}

func (me *Store) announceUser(uid string) {
	me.mu.Lock()
	u, ok := me.users[uid]
	if !ok {
		me.mu.Unlock()
		return
	}
	watchers := make([]user.UserFunc, 0, len(me.userWatch[uid]))
	for _, fn := range me.userWatch[uid] {
		watchers = append(watchers, fn)
	}
	me.mu.Unlock()

	for _, fn := range watchers {
		fn(u.Clone(), nil)
	}
}
