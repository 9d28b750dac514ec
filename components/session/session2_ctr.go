package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"chatey/auth"
	"chatey/components/conversation"
	"chatey/components/images"
	"chatey/components/message"
	"chatey/components/notification"
	"chatey/components/user"
	"chatey/database"
	"chatey/utils"
)

// SessionController drives sign-in, registration and logout, and follows the
// signed-in user's own document while signed in.
type SessionController struct {
	ctx       context.Context
	store     *Store
	users     user.I_UserRepo
	images    *images.ImageController
	sync      *message.MessageSync
	directory *conversation.Directory
	notices   *notification.Hub

	mu     sync.Mutex
	follow database.Subscription
}

func NewSessionController(ctx context.Context, store *Store, users user.I_UserRepo, images *images.ImageController, sync *message.MessageSync, directory *conversation.Directory, notices *notification.Hub) *SessionController {
	c := &SessionController{
		ctx:       ctx,
		store:     store,
		users:     users,
		images:    images,
		sync:      sync,
		directory: directory,
		notices:   notices,
	}
	sync.SetErrorHandler(store.SetError)
	return c
}

func (me *SessionController) Store() *Store {
	return me.store
}

// SignIn takes an identity vouched for by the provider. A known identity is
// loaded as registered; an unknown one is held provisionally until Register.
func (me *SessionController) SignIn(a *auth.Assertion) (*user.DBUser, bool, error) {
	if a == nil || !utils.IsValidExternalID(a.UID) {
		return nil, false, ErrInvalidAssertion
	}

	if current := me.store.User(); current != nil {
		if current.UID == a.UID {
			return current, me.store.Registered(), nil
		}
		me.Logout()
	}

	u, err := me.users.FindUserById(me.ctx, a.UID)
	switch {
	case err == nil:
		me.store.Hold(u, true)
	case errors.Is(err, user.ErrUserNotFound):
		Logger.V(1).Info(fmt.Sprintf("%s not registered yet", a.UID))
		me.store.Hold(&user.DBUser{
			UID:        a.UID,
			Name:       a.Name,
			Email:      utils.NormalizeEmail(a.Email),
			ProfileImg: a.Picture,
		}, false)
	default:
		me.store.SetError(err)
		return nil, false, err
	}

	me.startFollow(a.UID)
	Logger.Info("signed in", "uid", a.UID)
	return me.store.User(), me.store.Registered(), nil
}

func (me *SessionController) startFollow(uid string) {
	me.stopFollow()

	sub, err := me.users.WatchUser(me.ctx, uid, func(u *user.DBUser, err error) {
		if err != nil {
			Logger.Error(err, "identity watch stopped", "uid", uid)
			me.store.SetError(err)
			return
		}
		me.store.Apply(u)
	})
	if err != nil {
		Logger.Error(err, "error watching identity", "uid", uid)
		me.store.SetError(err)
		return
	}

	me.mu.Lock()
	me.follow = sub
	me.mu.Unlock()
}

func (me *SessionController) stopFollow() {
	me.mu.Lock()
	sub := me.follow
	me.follow = nil
	me.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Register writes the user document for a provisional identity, uploading
// the profile image first when one is given.
func (me *SessionController) Register(name string, image io.Reader, contentType string) (*user.DBUser, error) {
	current := me.store.User()
	if current == nil {
		return nil, ErrNotSignedIn
	}

	if me.store.Registered() {
		return nil, ErrAlreadyRegistered
	}

	if ok, err := utils.IsValidName(name); !ok {
		return nil, err
	}

	link := current.ProfileImg
	if image != nil {
		l, _, err := me.images.Upload(current.UID, image, contentType)
		if err != nil {
			me.store.SetError(err)
			return nil, err
		}
		link = l
	}

	saved, err := me.users.ReplaceUser(me.ctx, &user.DBUser{
		UID:        current.UID,
		Name:       name,
		Email:      current.Email,
		ProfileImg: link,
	})
	if err != nil {
		me.store.SetError(err)
		return nil, err
	}

	me.store.Hold(saved, true)
	Logger.Info("registered", "uid", saved.UID)
	return me.store.User(), nil
}

// UpdateProfileImage points the identity at a freshly uploaded image.
func (me *SessionController) UpdateProfileImage(uid, link string) error {
	current := me.store.User()
	if current == nil || current.UID != uid {
		return ErrNotSignedIn
	}

	if !me.store.Registered() {
		current.ProfileImg = link
		me.store.SetUser(current)
		return nil
	}

	if err := me.users.SetProfileImage(me.ctx, uid, link); err != nil {
		me.store.SetError(err)
		return err
	}

	current.ProfileImg = link
	me.store.SetUser(current)
	return nil
}

// Logout tears down every open message subscription before dropping the
// cached state.
func (me *SessionController) Logout() {
	uid := ""
	if current := me.store.User(); current != nil {
		uid = current.UID
	}

	me.stopFollow()
	me.sync.CleanupAll()
	me.sync.ClearMessages()
	me.directory.Clear()
	me.notices.Clear()
	me.store.Clear()

	Logger.Info("signed out", "uid", uid)
}
