package services

import (
	"testing"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) insertMessage(t *testing.T, msg *models.Message) *models.Message {
	t.Helper()
	inserted, err := env.msgRepo.InsertIfAbsent(msg)
	require.NoError(t, err)
	require.True(t, inserted)
	return msg
}

func TestConversationList(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	base := int64(1700000000)

	// contact A talks first, then B, then A again, then B last
	env.insertMessage(t, &models.Message{
		ProviderMsgID: "a-1", SessionID: session.ID, ContactPhone: "5511911110001",
		ContactName: "Alice", Type: models.MessageText, Body: "oi",
		Status: models.StatusDelivered, Timestamp: base,
	})
	env.insertMessage(t, &models.Message{
		ProviderMsgID: "b-1", SessionID: session.ID, ContactPhone: "5511911110002",
		ContactName: "Bruno", Type: models.MessageText, Body: "bom dia",
		Status: models.StatusDelivered, Timestamp: base + 10,
	})
	env.insertMessage(t, &models.Message{
		ProviderMsgID: "a-2", SessionID: session.ID, ContactPhone: "5511911110001",
		FromMe: true, Type: models.MessageText, Body: "tudo bem?",
		Status: models.StatusSent, Timestamp: base + 20,
	})
	env.insertMessage(t, &models.Message{
		ProviderMsgID: "b-2", SessionID: session.ID, ContactPhone: "5511911110002",
		Type: models.MessageText, Body: "preciso de ajuda",
		Status: models.StatusDelivered, Timestamp: base + 30,
	})

	conversations, err := env.conversations.List("tenant-1", session.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	// newest activity first
	assert.Equal(t, "5511911110002", conversations[0].ContactPhone)
	assert.Equal(t, "Bruno", conversations[0].ContactName)
	assert.Equal(t, "b-2", conversations[0].LastMessage.ProviderMsgID)
	assert.Equal(t, 2, conversations[0].UnreadCount)

	assert.Equal(t, "5511911110001", conversations[1].ContactPhone)
	assert.Equal(t, "Alice", conversations[1].ContactName)
	assert.Equal(t, "a-2", conversations[1].LastMessage.ProviderMsgID)
	// the outbound reply does not count as unread
	assert.Equal(t, 1, conversations[1].UnreadCount)
}

func TestConversationListTimestampTieBreak(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	ts := int64(1700000000)
	env.insertMessage(t, &models.Message{
		ProviderMsgID: "a-1", SessionID: session.ID, ContactPhone: "5511911110001",
		Type: models.MessageText, Body: "primeiro",
		Status: models.StatusDelivered, Timestamp: ts,
	})
	env.insertMessage(t, &models.Message{
		ProviderMsgID: "b-1", SessionID: session.ID, ContactPhone: "5511911110002",
		Type: models.MessageText, Body: "segundo",
		Status: models.StatusDelivered, Timestamp: ts,
	})

	conversations, err := env.conversations.List("tenant-1", session.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	// equal timestamps rank by insertion order, latest insert first
	assert.Equal(t, "5511911110002", conversations[0].ContactPhone)
	assert.Equal(t, "5511911110001", conversations[1].ContactPhone)
}

func TestConversationListDirectoryFallback(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	env.insertMessage(t, &models.Message{
		ProviderMsgID: "a-1", SessionID: session.ID, ContactPhone: "5511911110001",
		Type: models.MessageText, Body: "oi",
		Status: models.StatusDelivered, Timestamp: 1700000000,
	})

	// no message carried a name, but the directory knows the contact
	env.directory.Remember("5511911110001", "Alice", 1700000000)

	conversations, err := env.conversations.List("tenant-1", session.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, "Alice", conversations[0].ContactName)
	assert.Equal(t, int64(1700000000), conversations[0].LastSeen)
}

func TestConversationListIncludesTags(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	env.insertMessage(t, &models.Message{
		ProviderMsgID: "a-1", SessionID: session.ID, ContactPhone: "5511911110001",
		Type: models.MessageText, Body: "oi",
		Status: models.StatusDelivered, Timestamp: 1700000000,
	})

	tag, err := env.tags.Create("tenant-1", &models.CreateTagRequest{Name: "vip"})
	require.NoError(t, err)
	require.NoError(t, env.tags.Attach("tenant-1", &models.TagAttachmentRequest{
		SessionID: session.ID,
		Phone:     "5511911110001",
		TagID:     tag.ID,
	}))

	conversations, err := env.conversations.List("tenant-1", session.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	require.Len(t, conversations[0].Tags, 1)
	assert.Equal(t, "vip", conversations[0].Tags[0].Name)
}

func TestConversationListUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.conversations.List("tenant-1", "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConversationMarkRead(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	env.insertMessage(t, &models.Message{
		ProviderMsgID: "a-1", SessionID: session.ID, ContactPhone: "5511911110001",
		Type: models.MessageText, Body: "oi",
		Status: models.StatusDelivered, Timestamp: 1700000000,
	})
	env.insertMessage(t, &models.Message{
		ProviderMsgID: "a-2", SessionID: session.ID, ContactPhone: "5511911110001",
		Type: models.MessageText, Body: "tem alguem?",
		Status: models.StatusDelivered, Timestamp: 1700000010,
	})

	affected, err := env.conversations.MarkRead("tenant-1", session.ID, "5511911110001")
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	conversations, err := env.conversations.List("tenant-1", session.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Zero(t, conversations[0].UnreadCount)

	// marking again is a no-op
	affected, err = env.conversations.MarkRead("tenant-1", session.ID, "5511911110001")
	require.NoError(t, err)
	assert.Zero(t, affected)
}
