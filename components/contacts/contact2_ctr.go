package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatey/components/conversation"
	"chatey/components/notification"
	"chatey/components/session"
	"chatey/components/user"
	"chatey/database"
	"chatey/metrics"
	"chatey/utils"
)

// Relationship sends, accepts and rejects friend requests for the signed-in
// identity. Local state is projected first and rolled back when the remote
// writes fail.
type Relationship struct {
	ctx     context.Context
	session *session.Store
	users   user.I_UserRepo
	convs   conversation.I_ConversationRepo
	tx      database.I_TxRunner
	lookup  ContactLookup
	notices notification.I_Notifier
	mailer  notification.I_Mailer
}

func NewRelationship(ctx context.Context, store *session.Store, users user.I_UserRepo, convs conversation.I_ConversationRepo, tx database.I_TxRunner, notices notification.I_Notifier, mailer notification.I_Mailer) *Relationship {
	if tx == nil {
		tx = database.Sequential{}
	}
	if mailer == nil {
		mailer = notification.NopMailer{}
	}
	return &Relationship{
		ctx:     ctx,
		session: store,
		users:   users,
		convs:   convs,
		tx:      tx,
		lookup:  NewContactLookup(users),
		notices: notices,
		mailer:  mailer,
	}
}

func (me *Relationship) current() (*user.DBUser, error) {
	current := me.session.User()
	if current == nil || !me.session.Registered() {
		return nil, session.ErrNotSignedIn
	}
	return current, nil
}

// SendFriendRequest puts a snapshot of the signed-in identity into the
// pending list of whoever owns email.
func (me *Relationship) SendFriendRequest(email string) error {
	current, err := me.current()
	if err != nil {
		return err
	}

	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		me.notices.Publish(notification.KindWarning, notification.TextUserNotFound)
		return ErrInvalidEmail
	}

	target, err := me.lookup.FindByEmail(me.ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			me.notices.Publish(notification.KindWarning, notification.TextUserNotFound)
			return err
		}
		me.session.SetError(err)
		return err
	}

	if target.UID == current.UID {
		me.notices.Publish(notification.KindWarning, notification.TextSelfRequest)
		return ErrSelfRequest
	}

	if current.HasFriend(target.UID) {
		me.notices.Publish(notification.KindWarning, notification.TextAlreadyFriends)
		return ErrAlreadyFriends
	}

	snapshot := current.Snapshot()
	req := user.FriendRequest{
		ID:         snapshot.ID,
		Name:       snapshot.Name,
		ProfileImg: snapshot.ProfileImg,
		SentAt:     time.Now(),
	}

	if err := me.users.AddFriendRequest(me.ctx, target.UID, req); err != nil {
		Logger.Error(err, "error sending friend request", "to", target.UID)
		me.session.SetError(err)
		return err
	}

	me.notices.Publish(notification.KindInfo, notification.TextRequestSent)
	Logger.V(1).Info(fmt.Sprintf("%s sent friend request to %s", current.UID, target.UID))

	go func(to, from string) {
		if err := me.mailer.SendFriendRequest(to, from); err != nil {
			Logger.Error(err, "error mailing friend request", "to", to)
		}
	}(target.Email, current.Name)

	return nil
}

// AcceptRequest makes the requester a friend: the request leaves the
// pending list, both friend lists gain the other, and the conversation
// between the two is created.
func (me *Relationship) AcceptRequest(requesterID string) error {
	current, err := me.current()
	if err != nil {
		return err
	}

	req, ok := current.FindRequest(requesterID)
	if !ok {
		me.notices.Publish(notification.KindWarning, notification.TextRequestMissing)
		return ErrRequestNotFound
	}

	conversationID := conversation.ConversationID(current.UID, requesterID)
	mine := current.Snapshot()
	theirs := req.Ref()

	prev := current.Clone()
	projected := current.Clone()
	projected.WithoutRequest(requesterID)
	projected.WithFriend(theirs, conversationID)
	version := me.session.SetUser(projected)

	err = me.tx.WithTransaction(me.ctx, func(ctx context.Context) error {
		if err := me.users.RemoveFriendRequest(ctx, current.UID, requesterID); err != nil {
			return fmt.Errorf("remove request: %w", err)
		}
		if err := me.users.AddFriend(ctx, current.UID, theirs, conversationID); err != nil {
			return fmt.Errorf("add %s to %s: %w", requesterID, current.UID, err)
		}
		if err := me.users.AddFriend(ctx, requesterID, mine, conversationID); err != nil {
			return fmt.Errorf("add %s to %s: %w", current.UID, requesterID, err)
		}
		if _, err := me.convs.CreateConversation(ctx, conversationID, []string{current.UID, requesterID}); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		me.session.RestoreIf(version, prev)
		if !me.tx.Atomic() {
			metrics.PartialFailures.WithLabelValues("acceptRequest").Inc()
		}
		Logger.Error(err, "accept request failed", "requester", requesterID, "atomic", me.tx.Atomic())
		me.session.SetError(err)
		return err
	}

	me.notices.Publish(notification.KindInfo, notification.TextRequestAccepted)
	Logger.V(1).Info(fmt.Sprintf("%s accepted %s, conversation %s", current.UID, requesterID, conversationID))
	return nil
}

// RejectRequest drops the request from the pending list and nothing else.
func (me *Relationship) RejectRequest(requesterID string) error {
	current, err := me.current()
	if err != nil {
		return err
	}

	if _, ok := current.FindRequest(requesterID); !ok {
		me.notices.Publish(notification.KindWarning, notification.TextRequestMissing)
		return ErrRequestNotFound
	}

	prev := current.Clone()
	projected := current.Clone()
	projected.WithoutRequest(requesterID)
	version := me.session.SetUser(projected)

	if err := me.users.RemoveFriendRequest(me.ctx, current.UID, requesterID); err != nil {
		me.session.RestoreIf(version, prev)
		Logger.Error(err, "reject request failed", "requester", requesterID)
		me.session.SetError(err)
		return err
	}

	me.notices.Publish(notification.KindInfo, notification.TextRequestRejected)
	return nil
}

// Contacts returns the cached friend list and pending requests.
func (me *Relationship) Contacts() (*ResponseContacts, error) {
	current, err := me.current()
	if err != nil {
		return nil, err
	}

	return &ResponseContacts{Friends: current.FriendList, Requests: current.FriendRequests}, nil
}

func (me *Relationship) Search(keyword string, page, limit int) ([]*UserContact, error) {
	current, err := me.current()
	if err != nil {
		return nil, err
	}

	return me.lookup.Search(me.ctx, current, keyword, page, limit)
}
