package services

import (
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/db"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/providers"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"go.uber.org/zap"
)

// WebhookService normalizes raw provider callbacks into the canonical
// message log. Each session's gateway pushes to its own webhook URL, so
// the session ID is part of the route and never inferred from the body.
type WebhookService struct {
	sessions  *SessionService
	messages  db.MessageRepository
	directory *ContactDirectory
	notifier  Notifier
}

// NewWebhookService creates a webhook normalizer
func NewWebhookService(sessions *SessionService, messages db.MessageRepository, directory *ContactDirectory, notifier Notifier) *WebhookService {
	return &WebhookService{
		sessions:  sessions,
		messages:  messages,
		directory: directory,
		notifier:  notifier,
	}
}

// Ingest processes one raw webhook payload for a session. Events that are
// not inbound user messages (echoes, presence, unparseable payloads) are
// dropped; delivery receipts advance outbound message statuses instead.
// Replays of an already-ingested message are silent no-ops.
func (s *WebhookService) Ingest(sessionID string, raw []byte) (*models.Message, error) {
	adapter, session, err := s.sessions.webhookAdapter(sessionID)
	if err != nil {
		return nil, err
	}

	msg, err := adapter.ParseWebhook(raw)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		s.applyAck(adapter, session, raw)
		return nil, nil
	}

	msg.SessionID = sessionID
	inserted, err := s.messages.InsertIfAbsent(msg)
	if err != nil {
		return nil, err
	}

	s.directory.Remember(msg.ContactPhone, msg.ContactName, msg.Timestamp)
	s.sessions.TouchActivity(sessionID)

	if !inserted {
		logger.Debug("Duplicate webhook message ignored",
			zap.String("session_id", sessionID),
			zap.String("provider_msg_id", msg.ProviderMsgID),
		)
		return nil, nil
	}

	logger.Info("Inbound message ingested",
		zap.String("session_id", sessionID),
		zap.String("provider_msg_id", msg.ProviderMsgID),
		zap.String("contact_phone", msg.ContactPhone),
		zap.String("type", string(msg.Type)),
	)

	s.notifier.Notify(session.TenantID, Event{Type: EventNewMessage, SessionID: sessionID})
	return msg, nil
}

// applyAck handles delivery receipts on gateways that push them. The
// status update is monotonic, so a late "delivered" arriving after "read"
// cannot move a message backwards.
func (s *WebhookService) applyAck(adapter providers.Adapter, session *models.Session, raw []byte) {
	parser, ok := adapter.(providers.AckParser)
	if !ok {
		return
	}

	ack := parser.ParseAck(raw)
	if ack == nil {
		return
	}

	updated, err := s.messages.UpdateStatus(session.ID, ack.ProviderMsgID, ack.Status)
	if err != nil {
		logger.Error("Failed to apply delivery receipt",
			zap.String("session_id", session.ID),
			zap.String("provider_msg_id", ack.ProviderMsgID),
			zap.Error(err),
		)
		return
	}

	if updated {
		logger.Debug("Delivery receipt applied",
			zap.String("session_id", session.ID),
			zap.String("provider_msg_id", ack.ProviderMsgID),
			zap.String("status", string(ack.Status)),
		)
		s.notifier.Notify(session.TenantID, Event{Type: EventNewMessage, SessionID: session.ID})
	}
}
