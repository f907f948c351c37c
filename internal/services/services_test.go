package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/db"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/providers"

	"github.com/stretchr/testify/require"
)

var observationSeq int64

// timeNow returns a strictly increasing observation timestamp so repeated
// ApplyStatus calls in one test never collide
func timeNow() time.Time {
	return time.Now().Add(time.Duration(atomic.AddInt64(&observationSeq, 1)) * time.Microsecond)
}

// fakeAdapter is a scriptable gateway adapter for service tests
type fakeAdapter struct {
	kind models.ProviderKind

	sendResult *providers.DeliveryResult
	sendErr    error
	sentTexts  []string
	sentMedia  []providers.MediaPayload

	status    *providers.ConnectionStatus
	statusErr error

	qr      *providers.QRPayload
	qrErr   error
	qrCalls int

	history      []*models.Message
	historyErr   error
	historyCalls int

	parseFn func(raw []byte) *models.Message
	ackFn   func(raw []byte) *providers.DeliveryAck
}

func (a *fakeAdapter) Kind() models.ProviderKind {
	if a.kind == "" {
		return models.ProviderWPP
	}
	return a.kind
}

func (a *fakeAdapter) SendText(ctx context.Context, phone, text string) (*providers.DeliveryResult, error) {
	if a.sendErr != nil {
		return nil, a.sendErr
	}
	a.sentTexts = append(a.sentTexts, phone+"|"+text)
	return a.sendResult, nil
}

func (a *fakeAdapter) SendMedia(ctx context.Context, phone string, media providers.MediaPayload) (*providers.DeliveryResult, error) {
	if a.sendErr != nil {
		return nil, a.sendErr
	}
	a.sentMedia = append(a.sentMedia, media)
	return a.sendResult, nil
}

func (a *fakeAdapter) Status(ctx context.Context) (*providers.ConnectionStatus, error) {
	if a.statusErr != nil {
		return nil, a.statusErr
	}
	return a.status, nil
}

func (a *fakeAdapter) QRCode(ctx context.Context) (*providers.QRPayload, error) {
	a.qrCalls++
	if a.qrErr != nil {
		return nil, a.qrErr
	}
	return a.qr, nil
}

func (a *fakeAdapter) History(ctx context.Context, phone string) ([]*models.Message, error) {
	a.historyCalls++
	if a.historyErr != nil {
		return nil, a.historyErr
	}
	return a.history, nil
}

func (a *fakeAdapter) ParseWebhook(raw []byte) (*models.Message, error) {
	if a.parseFn == nil {
		return nil, nil
	}
	return a.parseFn(raw), nil
}

func (a *fakeAdapter) ParseAck(raw []byte) *providers.DeliveryAck {
	if a.ackFn == nil {
		return nil
	}
	return a.ackFn(raw)
}

// fakeFactory hands out one shared adapter for every session
type fakeFactory struct {
	adapter *fakeAdapter
	err     error
	created []string
}

func (f *fakeFactory) New(kind models.ProviderKind, sessionID string) (providers.Adapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, sessionID)
	return f.adapter, nil
}

// tenantEvent pairs a notification with the tenant it was sent to
type tenantEvent struct {
	TenantID string
	Event    Event
}

// recordingNotifier captures notifications for assertions
type recordingNotifier struct {
	mu     sync.Mutex
	events []tenantEvent
}

func (n *recordingNotifier) Notify(tenantID string, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, tenantEvent{TenantID: tenantID, Event: event})
}

func (n *recordingNotifier) byType(eventType string) []tenantEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []tenantEvent
	for _, e := range n.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testEnv wires the full service stack over an in-memory database with a
// fake gateway behind it. Polling is disabled; tests drive the state
// machine through ApplyStatus directly.
type testEnv struct {
	sessions      *SessionService
	webhooks      *WebhookService
	messages      *MessageService
	conversations *ConversationService
	tags          *TagService

	sessionRepo db.SessionRepository
	msgRepo     db.MessageRepository
	tagRepo     db.TagRepository

	adapter   *fakeAdapter
	factory   *fakeFactory
	notifier  *recordingNotifier
	directory *ContactDirectory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := db.SetupTestDB(t)

	env := &testEnv{
		adapter:     &fakeAdapter{},
		notifier:    &recordingNotifier{},
		directory:   NewContactDirectory(),
		sessionRepo: db.NewSessionRepository(database),
		msgRepo:     db.NewMessageRepository(database),
		tagRepo:     db.NewTagRepository(database),
	}
	env.factory = &fakeFactory{adapter: env.adapter}

	env.sessions = NewSessionService(env.sessionRepo, env.factory, env.notifier, 0)
	env.webhooks = NewWebhookService(env.sessions, env.msgRepo, env.directory, env.notifier)
	env.messages = NewMessageService(env.sessions, env.msgRepo, env.directory, env.notifier, "55")
	env.conversations = NewConversationService(env.sessions, env.msgRepo, env.tagRepo, env.directory)
	env.tags = NewTagService(env.sessions, env.tagRepo)

	t.Cleanup(env.sessions.Close)
	return env
}

// createSession registers a session for tenant-1 and returns it
func (env *testEnv) createSession(t *testing.T) *models.Session {
	t.Helper()

	session, err := env.sessions.Create("tenant-1", &models.CreateSessionRequest{
		Name:     "Support Line",
		Provider: models.ProviderWPP,
	})
	require.NoError(t, err)
	return session
}

// connectSession drives the session into the connected state
func (env *testEnv) connectSession(t *testing.T, session *models.Session, phone string) {
	t.Helper()
	env.connectSessionAt(t, session, phone, timeNow())
}

func (env *testEnv) connectSessionAt(t *testing.T, session *models.Session, phone string, at time.Time) {
	t.Helper()

	err := env.sessions.ApplyStatus(session.ID, &providers.ConnectionStatus{
		Connected:   true,
		PhoneNumber: phone,
	}, at)
	require.NoError(t, err)
}
