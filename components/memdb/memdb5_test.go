package memdb_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chatey/components/memdb"
	"chatey/components/message"
	"chatey/components/user"
	"chatey/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'memdb'")

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'memdb'")
}

func Test_ClockSteps(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	a := store.Clock().Now()
	b := store.Clock().Now()
	asserts.True(b.After(a))

	store.Clock().Freeze()
	c := store.Clock().Now()
	asserts.Equal(c, store.Clock().Now())
}

func Test_FailOnAndHeal(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	store.FailOn("FindUsers", errors.New("offline"))
	_, err := store.FindUsers(ctx)
	asserts.EqualError(err, "offline")

	store.Heal()
	_, err = store.FindUsers(ctx)
	asserts.NoError(err)
}

func Test_ReplaceUserNormalizes(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	first, err := store.ReplaceUser(ctx, &user.DBUser{UID: "ana", Name: "Ana"})
	require.NoError(t, err)
	asserts.NotNil(first.FriendList)
	asserts.NotNil(first.FriendRequests)
	asserts.NotNil(first.Conversations)

	second, err := store.ReplaceUser(ctx, &user.DBUser{UID: "ana", Name: "Ana B"})
	require.NoError(t, err)
	asserts.Equal(first.CreatedAt, second.CreatedAt)
	require.NotNil(t, second.UpdatedAt)
	asserts.True(second.UpdatedAt.After(*first.UpdatedAt))

	asserts.ErrorIs(store.AddFriend(ctx, "nobody", user.FriendRef{ID: "ana"}, "ana_nobody"), user.ErrUserNotFound)
}

func Test_WatchUser(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	var seen []*user.DBUser
	sub, err := store.WatchUser(ctx, "ana", func(u *user.DBUser, err error) {
		require.NoError(t, err)
		seen = append(seen, u)
	})
	require.NoError(t, err)
	asserts.Empty(seen)
	asserts.Equal(1, store.UserWatchers("ana"))

	_, err = store.ReplaceUser(ctx, &user.DBUser{UID: "ana", Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, store.AddFriendRequest(ctx, "ana", user.FriendRequest{ID: "ben"}))
	require.Len(t, seen, 2)
	asserts.Len(seen[1].FriendRequests, 1)

	sub.Close()
	sub.Close()
	asserts.Equal(0, store.UserWatchers("ana"))
	require.NoError(t, store.RemoveFriendRequest(ctx, "ana", "ben"))
	asserts.Len(seen, 2)
}

func Test_TxCommitAnnouncesAfter(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()
	_, err := store.ReplaceUser(ctx, &user.DBUser{UID: "ana"})
	require.NoError(t, err)

	var seen int
	_, err = store.WatchUser(ctx, "ana", func(u *user.DBUser, err error) { seen++ })
	require.NoError(t, err)
	seen = 0

	tx := store.Tx()
	asserts.True(tx.Atomic())
	err = tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.AddFriend(ctx, "ana", user.FriendRef{ID: "ben"}, "ana_ben"); err != nil {
			return err
		}
		if err := store.AddFriend(ctx, "ana", user.FriendRef{ID: "cy"}, "ana_cy"); err != nil {
			return err
		}
		asserts.Equal(0, seen)
		return nil
	})
	require.NoError(t, err)
	asserts.Equal(1, seen)

	u, err := store.FindUserById(ctx, "ana")
	require.NoError(t, err)
	asserts.Len(u.FriendList, 2)
}

func Test_TxRollback(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()
	_, err := store.ReplaceUser(ctx, &user.DBUser{UID: "ana"})
	require.NoError(t, err)

	var seen int
	_, err = store.WatchUser(ctx, "ana", func(u *user.DBUser, err error) { seen++ })
	require.NoError(t, err)
	seen = 0

	boom := errors.New("boom")
	err = store.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.AddFriend(ctx, "ana", user.FriendRef{ID: "ben"}, "ana_ben"); err != nil {
			return err
		}
		if _, err := store.CreateConversation(ctx, "ana_ben", []string{"ana", "ben"}); err != nil {
			return err
		}
		if _, err := store.AddMessage(ctx, &message.CreateMessage{ConversationID: "ana_ben", SenderID: "ana", Content: "x"}); err != nil {
			return err
		}
		return boom
	})
	asserts.ErrorIs(err, boom)
	asserts.Equal(0, seen)

	u, err := store.FindUserById(ctx, "ana")
	require.NoError(t, err)
	asserts.Empty(u.FriendList)

	_, err = store.FindConversationById(ctx, "ana_ben")
	asserts.Error(err)

	msgs, err := store.FindMessages(ctx, "ana_ben")
	require.NoError(t, err)
	asserts.Empty(msgs)
}

func Test_SequentialIsNotAtomic(t *testing.T) {
	var tx database.I_TxRunner = database.Sequential{}
	assert.False(t, tx.Atomic())

	called := false
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func Test_LatestMessage(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	_, _, found, err := store.LatestMessage(ctx, "ana_ben")
	require.NoError(t, err)
	asserts.False(found)

	for _, c := range []string{"one", "two"} {
		_, err := store.AddMessage(ctx, &message.CreateMessage{ConversationID: "ana_ben", SenderID: "ana", Content: c})
		require.NoError(t, err)
	}

	content, at, found, err := store.LatestMessage(ctx, "ana_ben")
	require.NoError(t, err)
	asserts.True(found)
	asserts.Equal("two", content)
	asserts.False(at.IsZero())
}
