package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chatey/components/conversation"
	"chatey/components/memdb"
	"chatey/components/message"
	"chatey/components/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'conversation'")

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'conversation'")
}

func Test_ConversationID(t *testing.T) {
	asserts := assert.New(t)

	pairs := [][2]string{
		{"ana", "ben"},
		{"zed", "amy"},
		{"u1", "u10"},
		{"B", "a"},
	}
	for _, p := range pairs {
		asserts.Equal(conversation.ConversationID(p[0], p[1]), conversation.ConversationID(p[1], p[0]))
	}

	asserts.Equal("ana_ben", conversation.ConversationID("ben", "ana"))
	asserts.Equal("amy_zed", conversation.ConversationID("zed", "amy"))
	asserts.Equal("B_a", conversation.ConversationID("a", "B"))
}

func Test_FetchConversationsFilters(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	for _, pair := range [][2]string{{"ana", "ben"}, {"ana", "cy"}, {"ben", "cy"}} {
		id := conversation.ConversationID(pair[0], pair[1])
		_, err := store.CreateConversation(ctx, id, []string{pair[0], pair[1]})
		require.NoError(t, err)
	}

	dir := conversation.NewDirectory(store, store)
	list, err := dir.FetchConversations(ctx, "ana")
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, c := range list {
		asserts.True(c.HasParticipant("ana"))
		ids = append(ids, c.ID)
	}
	asserts.ElementsMatch([]string{"ana_ben", "ana_cy"}, ids)
	asserts.Len(dir.Conversations(), 2)

	list, err = dir.FetchConversations(ctx, "nobody")
	require.NoError(t, err)
	asserts.Empty(list)
	asserts.Empty(dir.Conversations())
}

func Test_FetchConversationsFailureKeepsList(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	_, err := store.CreateConversation(ctx, "ana_ben", []string{"ana", "ben"})
	require.NoError(t, err)

	dir := conversation.NewDirectory(store, store)
	_, err = dir.FetchConversations(ctx, "ana")
	require.NoError(t, err)

	store.FailOn("FindConversations", errors.New("offline"))
	_, err = dir.FetchConversations(ctx, "ana")
	asserts.Error(err)
	asserts.Len(dir.Conversations(), 1)
}

func Test_FetchConversationsReconcilesPreview(t *testing.T) {
	asserts := assert.New(t)
	store := memdb.New()

	_, err := store.CreateConversation(ctx, "ana_ben", []string{"ana", "ben"})
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, &message.CreateMessage{ConversationID: "ana_ben", SenderID: "ben", Content: "late"})
	require.NoError(t, err)

	// without a latest-message source the stored preview is shown as is
	plain := conversation.NewDirectory(store, nil)
	list, err := plain.FetchConversations(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, list, 1)
	asserts.Equal("", list[0].LastMessage)

	dir := conversation.NewDirectory(store, store)
	list, err = dir.FetchConversations(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, list, 1)
	asserts.Equal("late", list[0].LastMessage)

	// a preview written after the newest message wins
	require.NoError(t, store.UpdateLastMessage(ctx, "ana_ben", "written"))
	list, err = dir.FetchConversations(ctx, "ana")
	require.NoError(t, err)
	asserts.Equal("written", list[0].LastMessage)
}

func Test_ConversationsReturnsCopies(t *testing.T) {
	store := memdb.New()
	_, err := store.CreateConversation(ctx, "ana_ben", []string{"ana", "ben"})
	require.NoError(t, err)

	dir := conversation.NewDirectory(store, store)
	_, err = dir.FetchConversations(ctx, "ana")
	require.NoError(t, err)

	list := dir.Conversations()
	list[0].LastMessage = "tampered"
	list[0].Participants[0] = "eve"

	again := dir.Conversations()
	assert.Equal(t, "", again[0].LastMessage)
	assert.Equal(t, "ana", again[0].Participants[0])
}

func Test_DisplayParticipant(t *testing.T) {
	asserts := assert.New(t)

	viewer := &user.DBUser{
		UID:        "ana",
		FriendList: []user.FriendRef{{ID: "ben", Name: "Ben", ProfileImg: "http://img/ben"}},
	}

	known := conversation.DisplayParticipant(&conversation.DBConversation{ID: "ana_ben", Participants: []string{"ana", "ben"}}, viewer)
	asserts.Equal("Ben", known.Name)
	asserts.Equal("http://img/ben", known.ProfileImg)

	unknown := conversation.DisplayParticipant(&conversation.DBConversation{ID: "ana_cy", Participants: []string{"ana", "cy"}}, viewer)
	asserts.Equal("cy", unknown.ID)
	asserts.Equal("Unknown", unknown.Name)
}

func Test_ListFor(t *testing.T) {
	asserts := assert.New(t)

	dir := conversation.NewDirectory(memdb.New(), nil)
	dir.SetConversations([]*conversation.DBConversation{
		{ID: "ana_ben", Participants: []string{"ana", "ben"}, LastMessage: "hi"},
		{ID: "ana_cy", Participants: []string{"ana", "cy"}},
	})

	viewer := &user.DBUser{UID: "ana", FriendList: []user.FriendRef{{ID: "ben", Name: "Ben"}}}
	list := dir.ListFor(viewer)
	require.Len(t, list, 2)
	asserts.Equal("ben", list[0].ParticipantID)
	asserts.Equal("Ben", list[0].ParticipantName)
	asserts.Equal("hi", list[0].LastMessage)
	asserts.Equal("Unknown", list[1].ParticipantName)

	dir.Clear()
	asserts.Empty(dir.ListFor(viewer))
}

func Test_Other(t *testing.T) {
	asserts := assert.New(t)
	c := &conversation.DBConversation{Participants: []string{"ana", "ben"}}

	asserts.Equal("ben", c.Other("ana"))
	asserts.Equal("ana", c.Other("ben"))
	asserts.False(c.HasParticipant("cy"))
}
