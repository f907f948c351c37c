package services

import (
	"testing"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inboundParser scripts the fake adapter to yield a fresh copy of the
// given message for every webhook
func inboundParser(template models.Message) func([]byte) *models.Message {
	return func([]byte) *models.Message {
		msg := template
		return &msg
	}
}

func TestWebhookIngest(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	env.adapter.parseFn = inboundParser(models.Message{
		ProviderMsgID: "wamid-1",
		ContactPhone:  "5511988887777",
		ContactName:   "Maria",
		Type:          models.MessageText,
		Body:          "ola",
		Status:        models.StatusDelivered,
		Timestamp:     time.Now().Unix(),
	})

	msg, err := env.webhooks.Ingest(session.ID, []byte(`{"event":"onmessage"}`))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, session.ID, msg.SessionID)
	assert.NotZero(t, msg.ID)

	stored, err := env.msgRepo.ListBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "wamid-1", stored[0].ProviderMsgID)
	assert.False(t, stored[0].FromMe)

	// the contact directory learned the sender
	contact := env.directory.Lookup("5511988887777")
	require.NotNil(t, contact)
	assert.Equal(t, "Maria", contact.Name)

	events := env.notifier.byType(EventNewMessage)
	require.Len(t, events, 1)
	assert.Equal(t, "tenant-1", events[0].TenantID)
	assert.Equal(t, session.ID, events[0].Event.SessionID)
}

func TestWebhookIngestReplay(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	env.adapter.parseFn = inboundParser(models.Message{
		ProviderMsgID: "wamid-1",
		ContactPhone:  "5511988887777",
		Type:          models.MessageText,
		Body:          "ola",
		Status:        models.StatusDelivered,
		Timestamp:     time.Now().Unix(),
	})

	first, err := env.webhooks.Ingest(session.ID, []byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, first)

	// the gateway redelivers the same event
	replay, err := env.webhooks.Ingest(session.ID, []byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, replay)

	stored, err := env.msgRepo.ListBySession(session.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	// only the first delivery notified subscribers
	assert.Len(t, env.notifier.byType(EventNewMessage), 1)
}

func TestWebhookIngestDropsNonMessages(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	// parseFn is nil, so everything is a non-message event
	msg, err := env.webhooks.Ingest(session.ID, []byte(`{"event":"onpresencechanged"}`))
	require.NoError(t, err)
	assert.Nil(t, msg)

	stored, err := env.msgRepo.ListBySession(session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, env.notifier.byType(EventNewMessage))
}

func TestWebhookIngestUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.webhooks.Ingest("missing", []byte(`{}`))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWebhookIngestDeliveryReceipt(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	// an outbound message is waiting for its receipt
	sent := &models.Message{
		ProviderMsgID: "wamid-out",
		SessionID:     session.ID,
		ContactPhone:  "5511988887777",
		FromMe:        true,
		Type:          models.MessageText,
		Body:          "oi",
		Status:        models.StatusSent,
		Timestamp:     time.Now().Unix(),
	}
	inserted, err := env.msgRepo.InsertIfAbsent(sent)
	require.NoError(t, err)
	require.True(t, inserted)

	env.adapter.ackFn = func([]byte) *providers.DeliveryAck {
		return &providers.DeliveryAck{ProviderMsgID: "wamid-out", Status: models.StatusRead}
	}

	msg, err := env.webhooks.Ingest(session.ID, []byte(`{"event":"onack"}`))
	require.NoError(t, err)
	assert.Nil(t, msg)

	stored, err := env.msgRepo.ListBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.StatusRead, stored[0].Status)

	// a late, lower receipt cannot move the status backwards
	env.adapter.ackFn = func([]byte) *providers.DeliveryAck {
		return &providers.DeliveryAck{ProviderMsgID: "wamid-out", Status: models.StatusDelivered}
	}
	_, err = env.webhooks.Ingest(session.ID, []byte(`{"event":"onack"}`))
	require.NoError(t, err)

	stored, err = env.msgRepo.ListBySession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, stored[0].Status)
}
