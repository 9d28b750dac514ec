package user

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'user'")

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'user'")
}

func newAna() *DBUser {
	return &DBUser{
		UID:            "ana",
		Name:           "Ana",
		Email:          "ana@example.com",
		FriendRequests: []FriendRequest{{ID: "ben", Name: "Ben"}, {ID: "cy", Name: "Cy"}},
	}
}

func Test_Snapshot(t *testing.T) {
	asserts := assert.New(t)
	u := newAna()
	u.ProfileImg = "http://img/ana"

	asserts.Equal(FriendRef{ID: "ana", Name: "Ana", ProfileImg: "http://img/ana"}, u.Snapshot())
}

func Test_CloneIsDeep(t *testing.T) {
	asserts := assert.New(t)
	u := newAna()

	c := u.Clone()
	c.WithoutRequest("ben")
	c.WithFriend(FriendRef{ID: "ben", Name: "Ben"}, "ana_ben")

	asserts.Len(u.FriendRequests, 2)
	asserts.Empty(u.FriendList)
	asserts.Empty(u.Conversations)
	asserts.Len(c.FriendRequests, 1)
	asserts.True(c.HasFriend("ben"))

	var nilUser *DBUser
	asserts.Nil(nilUser.Clone())
}

func Test_FindRequest(t *testing.T) {
	asserts := assert.New(t)
	u := newAna()

	req, ok := u.FindRequest("cy")
	asserts.True(ok)
	asserts.Equal("Cy", req.Name)
	asserts.Equal(FriendRef{ID: "cy", Name: "Cy"}, req.Ref())

	_, ok = u.FindRequest("dan")
	asserts.False(ok)
}

func Test_WithFriendIsIdempotent(t *testing.T) {
	asserts := assert.New(t)
	u := newAna()

	u.WithFriend(FriendRef{ID: "ben"}, "ana_ben")
	u.WithFriend(FriendRef{ID: "ben"}, "ana_ben")

	asserts.Len(u.FriendList, 1)
	asserts.Equal([]string{"ana_ben"}, u.Conversations)
}

func Test_Normalize(t *testing.T) {
	asserts := assert.New(t)
	u := &DBUser{UID: "ana"}
	u.Normalize()

	asserts.NotNil(u.FriendList)
	asserts.NotNil(u.FriendRequests)
	asserts.NotNil(u.Conversations)
}

func Test_CloneKeepsEmptyLists(t *testing.T) {
	asserts := assert.New(t)
	u := &DBUser{UID: "ana"}
	u.Normalize()

	c := u.Clone()
	asserts.NotNil(c.FriendList)
	asserts.NotNil(c.FriendRequests)
	asserts.NotNil(c.Conversations)

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	asserts.Contains(string(raw), `"friendList":[]`)
	asserts.Contains(string(raw), `"friendRequests":[]`)
	asserts.Contains(string(raw), `"conversations":[]`)

	asserts.NotNil((&DBUser{UID: "ben"}).Clone().FriendList)
}

func Test_ProvisionalOmitsTimestamps(t *testing.T) {
	asserts := assert.New(t)

	raw, err := json.Marshal(&DBUser{UID: "ana"})
	require.NoError(t, err)
	asserts.NotContains(string(raw), "created_at")
	asserts.NotContains(string(raw), "updated_at")

	u := &DBUser{UID: "ana"}
	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	u.Stamp(first)
	u.Stamp(first.Add(time.Minute))
	asserts.Equal(first, *u.CreatedAt)
	asserts.Equal(first.Add(time.Minute), *u.UpdatedAt)

	raw, err = json.Marshal(u)
	require.NoError(t, err)
	asserts.Contains(string(raw), `"created_at":"2024-01-02T03:04:05Z"`)
}
