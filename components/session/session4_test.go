package session_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"chatey/auth"
	"chatey/components/conversation"
	"chatey/components/images"
	"chatey/components/memdb"
	"chatey/components/message"
	"chatey/components/notification"
	"chatey/components/session"
	"chatey/components/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'session'")

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'session'")
}

type fixture struct {
	db      *memdb.Store
	store   *session.Store
	sync    *message.MessageSync
	dir     *conversation.Directory
	notices *notification.Hub
	ctr     *session.SessionController
}

func newFixture() *fixture {
	db := memdb.New()
	f := &fixture{
		db:      db,
		store:   session.NewStore(),
		sync:    message.NewMessageSync(ctx, db, db),
		dir:     conversation.NewDirectory(db, db),
		notices: notification.NewHub(0),
	}
	imgs := images.NewImageController(db, "http://localhost:8080", 0)
	f.ctr = session.NewSessionController(ctx, f.store, db, imgs, f.sync, f.dir, f.notices)
	return f
}

func (f *fixture) seed(t *testing.T, uid, name, email string) *user.DBUser {
	u, err := f.db.ReplaceUser(ctx, &user.DBUser{UID: uid, Name: name, Email: email})
	require.NoError(t, err)
	return u
}

func Test_StoreVersions(t *testing.T) {
	asserts := assert.New(t)
	s := session.NewStore()

	prev := &user.DBUser{UID: "ana", Name: "Ana"}
	v1 := s.Hold(prev, true)

	next := prev.Clone()
	next.Name = "Ana B"
	v2 := s.SetUser(next)
	asserts.Greater(v2, v1)

	asserts.False(s.RestoreIf(v1, prev))
	asserts.Equal("Ana B", s.User().Name)

	asserts.True(s.RestoreIf(v2, prev))
	asserts.Equal("Ana", s.User().Name)
	asserts.True(s.Registered())
}

func Test_StoreApplyMatchesIdentity(t *testing.T) {
	asserts := assert.New(t)
	s := session.NewStore()

	asserts.False(s.Apply(&user.DBUser{UID: "ana"}))

	s.Hold(&user.DBUser{UID: "ana", Name: "Ana"}, false)
	asserts.False(s.Apply(&user.DBUser{UID: "ben", Name: "Ben"}))
	asserts.False(s.Apply(nil))
	asserts.Equal("Ana", s.User().Name)
	asserts.False(s.Registered())

	asserts.True(s.Apply(&user.DBUser{UID: "ana", Name: "Ana Stored"}))
	asserts.Equal("Ana Stored", s.User().Name)
	asserts.True(s.Registered())
}

func Test_StoreUserIsCopy(t *testing.T) {
	s := session.NewStore()
	s.Hold(&user.DBUser{UID: "ana", FriendList: []user.FriendRef{{ID: "ben"}}}, true)

	u := s.User()
	u.FriendList[0].ID = "eve"

	assert.Equal(t, "ben", s.User().FriendList[0].ID)
}

func Test_StoreListenAndClear(t *testing.T) {
	asserts := assert.New(t)
	s := session.NewStore()

	var seen []*user.DBUser
	stop := s.Listen(func(u *user.DBUser) { seen = append(seen, u) })

	s.Hold(&user.DBUser{UID: "ana"}, true)
	s.SetError(errors.New("boom"))
	s.Clear()

	require.Len(t, seen, 2)
	asserts.Equal("ana", seen[0].UID)
	asserts.Nil(seen[1])
	asserts.Nil(s.User())
	asserts.Nil(s.Err())
	asserts.False(s.Registered())

	stop()
	s.Hold(&user.DBUser{UID: "ben"}, true)
	asserts.Len(seen, 2)
}

func Test_StoreErrors(t *testing.T) {
	asserts := assert.New(t)
	s := session.NewStore()

	asserts.Nil(s.Err())
	s.SetError(errors.New("boom"))
	asserts.EqualError(s.Err(), "boom")
	s.ClearError()
	asserts.Nil(s.Err())
}

func Test_SignInUnknownIsProvisional(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()

	u, registered, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana", Name: "Ana", Email: " Ana@Mail.com "})
	require.NoError(t, err)
	asserts.False(registered)
	asserts.Equal("g-ana", u.UID)
	asserts.Equal("ana@mail.com", u.Email)
	asserts.Equal(1, f.db.UserWatchers("g-ana"))

	_, err = f.db.FindUserById(ctx, "g-ana")
	asserts.ErrorIs(err, user.ErrUserNotFound)
}

func Test_SignInKnownIsRegistered(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()
	f.seed(t, "g-ana", "Ana", "ana@mail.com")

	u, registered, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana", Name: "Someone Else"})
	require.NoError(t, err)
	asserts.True(registered)
	asserts.Equal("Ana", u.Name)

	// signing in again as the same identity is a no-op
	again, registered, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana"})
	require.NoError(t, err)
	asserts.True(registered)
	asserts.Equal("Ana", again.Name)
	asserts.Equal(1, f.db.UserWatchers("g-ana"))
}

func Test_SignInInvalidAssertion(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()

	_, _, err := f.ctr.SignIn(nil)
	asserts.ErrorIs(err, session.ErrInvalidAssertion)

	_, _, err = f.ctr.SignIn(&auth.Assertion{UID: "has space"})
	asserts.ErrorIs(err, session.ErrInvalidAssertion)
	asserts.Nil(f.store.User())
}

func Test_SignInStoreFailure(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()

	f.db.FailOn("FindUserById", errors.New("offline"))
	_, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana"})
	asserts.Error(err)
	asserts.Error(f.store.Err())
	asserts.Nil(f.store.User())
}

func Test_RegisterWithImage(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()

	_, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana", Name: "Ana", Email: "ana@mail.com"})
	require.NoError(t, err)

	u, err := f.ctr.Register("Ana Banana", bytes.NewReader([]byte("png-bytes")), "image/png")
	require.NoError(t, err)
	asserts.Equal("Ana Banana", u.Name)
	asserts.True(strings.HasPrefix(u.ProfileImg, "http://localhost:8080/images/g-ana?v="), u.ProfileImg)
	asserts.True(f.store.Registered())

	stored, err := f.db.FindUserById(ctx, "g-ana")
	require.NoError(t, err)
	asserts.Equal("Ana Banana", stored.Name)
	asserts.Equal("ana@mail.com", stored.Email)
	asserts.Equal(u.ProfileImg, stored.ProfileImg)
	asserts.NotNil(stored.FriendList)

	_, err = f.ctr.Register("Twice", nil, "")
	asserts.ErrorIs(err, session.ErrAlreadyRegistered)
}

func Test_RegisterWithoutImageKeepsProviderPicture(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()

	_, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana", Name: "Ana", Picture: "https://pics.example.com/ana.png"})
	require.NoError(t, err)

	u, err := f.ctr.Register("Ana", nil, "")
	require.NoError(t, err)
	asserts.Equal("https://pics.example.com/ana.png", u.ProfileImg)
}

func Test_RegisterRejects(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()

	_, err := f.ctr.Register("Ana", nil, "")
	asserts.ErrorIs(err, session.ErrNotSignedIn)

	_, _, err = f.ctr.SignIn(&auth.Assertion{UID: "g-ana"})
	require.NoError(t, err)

	_, err = f.ctr.Register("  ", nil, "")
	asserts.Error(err)

	_, err = f.ctr.Register("Ana", bytes.NewReader([]byte("text")), "text/plain")
	asserts.ErrorIs(err, images.ErrInvalidContentType)
	asserts.ErrorIs(f.store.Err(), images.ErrInvalidContentType)
	asserts.False(f.store.Registered())
}

func Test_FollowAppliesStoredChanges(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()
	f.seed(t, "g-ana", "Ana", "ana@mail.com")

	_, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana"})
	require.NoError(t, err)

	require.NoError(t, f.db.AddFriendRequest(ctx, "g-ana", user.FriendRequest{ID: "g-ben", Name: "Ben"}))
	u := f.store.User()
	require.Len(t, u.FriendRequests, 1)
	asserts.Equal("Ben", u.FriendRequests[0].Name)

	f.db.BreakUserWatch("g-ana", errors.New("stream closed"))
	asserts.EqualError(f.store.Err(), "stream closed")
}

func Test_UpdateProfileImage(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()
	f.seed(t, "g-ana", "Ana", "ana@mail.com")

	asserts.ErrorIs(f.ctr.UpdateProfileImage("g-ana", "http://x/1"), session.ErrNotSignedIn)

	_, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana"})
	require.NoError(t, err)

	asserts.ErrorIs(f.ctr.UpdateProfileImage("g-ben", "http://x/1"), session.ErrNotSignedIn)
	require.NoError(t, f.ctr.UpdateProfileImage("g-ana", "http://x/2"))

	stored, err := f.db.FindUserById(ctx, "g-ana")
	require.NoError(t, err)
	asserts.Equal("http://x/2", stored.ProfileImg)
	asserts.Equal("http://x/2", f.store.User().ProfileImg)
}

func Test_MessageSubscriptionErrorReachesStore(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.sync.LoadMessages("a_b"))
	f.db.BreakMessageWatch("a_b", errors.New("stream closed"))

	assert.EqualError(t, f.store.Err(), "stream closed")
}

func Test_LogoutTearsDown(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()
	f.seed(t, "g-ana", "Ana", "ana@mail.com")

	_, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana"})
	require.NoError(t, err)

	require.NoError(t, f.sync.LoadMessages("g-ana_g-ben"))
	require.NoError(t, f.sync.LoadMessages("g-ana_g-cy"))
	_, err = f.sync.SendMessage("g-ana_g-ben", "g-ana", "hello")
	require.NoError(t, err)
	f.dir.SetConversations([]*conversation.DBConversation{{ID: "g-ana_g-ben", Participants: []string{"g-ana", "g-ben"}}})
	f.notices.Publish(notification.KindInfo, "hi")
	f.store.SetError(errors.New("old"))

	f.ctr.Logout()

	asserts.Nil(f.store.User())
	asserts.Nil(f.store.Err())
	asserts.Equal(0, f.sync.LiveCount())
	asserts.Equal(0, f.db.MessageWatchers("g-ana_g-ben"))
	asserts.Equal(0, f.db.MessageWatchers("g-ana_g-cy"))
	asserts.Empty(f.sync.Messages("g-ana_g-ben"))
	asserts.Empty(f.dir.Conversations())
	asserts.Empty(f.notices.Recent())
	asserts.Equal(0, f.db.UserWatchers("g-ana"))

	// the stored data stays
	stored, err := f.db.FindMessages(ctx, "g-ana_g-ben")
	require.NoError(t, err)
	asserts.Len(stored, 1)
}

func Test_SignInAsOtherLogsOutFirst(t *testing.T) {
	asserts := assert.New(t)
	f := newFixture()
	f.seed(t, "g-ana", "Ana", "ana@mail.com")
	f.seed(t, "g-ben", "Ben", "ben@mail.com")

	_, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ana"})
	require.NoError(t, err)
	require.NoError(t, f.sync.LoadMessages("g-ana_g-ben"))

	u, _, err := f.ctr.SignIn(&auth.Assertion{UID: "g-ben"})
	require.NoError(t, err)
	asserts.Equal("g-ben", u.UID)
	asserts.Equal(0, f.db.UserWatchers("g-ana"))
	asserts.Equal(1, f.db.UserWatchers("g-ben"))
	asserts.Equal(0, f.sync.LiveCount())
}
