package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/db"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/providers"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MessageService drives the outbound send path and message reads. Sends
// go gateway-first: the local record is written only after the gateway
// accepts the message, so a failed send leaves no trace in the log.
type MessageService struct {
	sessions    *SessionService
	messages    db.MessageRepository
	directory   *ContactDirectory
	notifier    Notifier
	countryCode string

	// tracks session+contact pairs whose gateway history was already
	// merged, so the backfill runs once per conversation per process
	backfilled *cache.Cache
}

// NewMessageService creates a message service
func NewMessageService(sessions *SessionService, messages db.MessageRepository, directory *ContactDirectory, notifier Notifier, countryCode string) *MessageService {
	return &MessageService{
		sessions:    sessions,
		messages:    messages,
		directory:   directory,
		notifier:    notifier,
		countryCode: countryCode,
		backfilled:  cache.New(time.Hour, 10*time.Minute),
	}
}

// SendText delivers a text message through the session's gateway and
// records it in the log
func (s *MessageService) SendText(ctx context.Context, tenantID, sessionID string, req *models.SendTextRequest) (*models.Message, error) {
	adapter, session, err := s.sessions.ResolveAdapter(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	phone := models.NormalizePhone(req.Phone, s.countryCode)
	result, err := adapter.SendText(ctx, phone, req.Body)
	if err != nil {
		return nil, err
	}

	msg := s.outboundMessage(session.ID, phone, result)
	msg.Type = models.MessageText
	msg.Body = req.Body

	return s.recordOutbound(session, msg)
}

// SendMedia delivers a media message through the session's gateway and
// records it in the log
func (s *MessageService) SendMedia(ctx context.Context, tenantID, sessionID string, req *models.SendMediaRequest) (*models.Message, error) {
	switch req.Kind {
	case models.MessageImage, models.MessageAudio, models.MessageVideo, models.MessageFile, models.MessageSticker:
	default:
		return nil, fmt.Errorf("unsupported media kind: %s", req.Kind)
	}

	adapter, session, err := s.sessions.ResolveAdapter(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	phone := models.NormalizePhone(req.Phone, s.countryCode)
	result, err := adapter.SendMedia(ctx, phone, providers.MediaPayload{
		Data:    req.Media,
		Kind:    req.Kind,
		Caption: req.Caption,
	})
	if err != nil {
		return nil, err
	}

	msg := s.outboundMessage(session.ID, phone, result)
	msg.Type = req.Kind
	msg.Caption = req.Caption
	msg.MediaURL = req.Media

	return s.recordOutbound(session, msg)
}

// ListMessages returns the stored conversation history for a contact,
// oldest first. On the first page read of a conversation the gateway's
// own history is merged in best effort, so chats that predate the
// integration still show up.
func (s *MessageService) ListMessages(ctx context.Context, tenantID, sessionID, phone string, limit, offset int) ([]*models.Message, error) {
	session, err := s.sessions.Get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	normalized := models.NormalizePhone(phone, s.countryCode)
	if offset == 0 {
		s.backfill(ctx, session, normalized)
	}

	return s.messages.ListByContact(sessionID, normalized, limit, offset)
}

// backfill merges the gateway's message history into the log once per
// conversation. Failures are logged and ignored; the stored log is
// always served.
func (s *MessageService) backfill(ctx context.Context, session *models.Session, phone string) {
	if !session.IsConnected() {
		return
	}

	key := session.ID + "|" + phone
	if _, done := s.backfilled.Get(key); done {
		return
	}

	binding := s.sessions.binding(session.ID)
	if binding == nil {
		return
	}

	history, err := binding.adapter.History(ctx, phone)
	if err != nil {
		logger.Warn("Gateway history fetch failed",
			zap.String("session_id", session.ID),
			zap.String("contact_phone", phone),
			zap.Error(err),
		)
		return
	}

	merged := 0
	for _, msg := range history {
		msg.SessionID = session.ID
		if !msg.FromMe {
			// history arrives from the paired device, where these
			// messages were already seen; counting them as unread
			// would surface stale conversations
			msg.Status = models.StatusRead
		}
		inserted, err := s.messages.InsertIfAbsent(msg)
		if err != nil {
			logger.Warn("Failed to merge history message",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			continue
		}
		if inserted {
			merged++
		}
	}

	s.backfilled.Set(key, true, cache.DefaultExpiration)

	if merged > 0 {
		logger.Info("Merged gateway history",
			zap.String("session_id", session.ID),
			zap.String("contact_phone", phone),
			zap.Int("merged", merged),
		)
	}
}

func (s *MessageService) outboundMessage(sessionID, phone string, result *providers.DeliveryResult) *models.Message {
	providerMsgID := result.ProviderMsgID
	if providerMsgID == "" {
		// some gateways omit the ID; synthesize one so the log key
		// stays unique
		providerMsgID = "local-" + uuid.NewString()
	}
	timestamp := result.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	return &models.Message{
		ProviderMsgID: providerMsgID,
		SessionID:     sessionID,
		ContactPhone:  phone,
		FromMe:        true,
		Status:        models.StatusSent,
		Timestamp:     timestamp,
	}
}

func (s *MessageService) recordOutbound(session *models.Session, msg *models.Message) (*models.Message, error) {
	if _, err := s.messages.InsertIfAbsent(msg); err != nil {
		return nil, err
	}

	s.sessions.TouchActivity(session.ID)

	logger.Info("Outbound message sent",
		zap.String("session_id", session.ID),
		zap.String("provider_msg_id", msg.ProviderMsgID),
		zap.String("contact_phone", msg.ContactPhone),
		zap.String("type", string(msg.Type)),
	)

	s.notifier.Notify(session.TenantID, Event{Type: EventNewMessage, SessionID: session.ID})
	return msg, nil
}
