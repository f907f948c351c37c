package services

import (
	"sort"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/db"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"go.uber.org/zap"
)

// ConversationService derives the conversation list from the message log.
// Conversations are never stored: each read folds the session's messages
// into per-contact threads, so the view cannot drift from the log.
type ConversationService struct {
	sessions  *SessionService
	messages  db.MessageRepository
	tags      db.TagRepository
	directory *ContactDirectory
}

// NewConversationService creates a conversation aggregator
func NewConversationService(sessions *SessionService, messages db.MessageRepository, tags db.TagRepository, directory *ContactDirectory) *ConversationService {
	return &ConversationService{
		sessions:  sessions,
		messages:  messages,
		tags:      tags,
		directory: directory,
	}
}

// List folds the session's message log into conversations, newest
// activity first. Unread counts only consider inbound messages; the
// display name prefers the latest provider-reported name, then the
// contact directory.
func (s *ConversationService) List(tenantID, sessionID string) ([]*models.Conversation, error) {
	session, err := s.sessions.Get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	msgs, err := s.messages.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	byPhone := make(map[string]*models.Conversation)
	var order []string
	for _, msg := range msgs {
		conv, ok := byPhone[msg.ContactPhone]
		if !ok {
			conv = &models.Conversation{
				SessionID:    sessionID,
				ContactPhone: msg.ContactPhone,
			}
			byPhone[msg.ContactPhone] = conv
			order = append(order, msg.ContactPhone)
		}

		// messages arrive ordered by (timestamp, id), so the last one
		// seen is the conversation's latest
		conv.LastMessage = msg
		if msg.ContactName != "" {
			conv.ContactName = msg.ContactName
		}
		if !msg.FromMe && msg.Status != models.StatusRead {
			conv.UnreadCount++
		}
	}

	conversations := make([]*models.Conversation, 0, len(byPhone))
	for _, phone := range order {
		conv := byPhone[phone]

		if entry := s.directory.Lookup(phone); entry != nil {
			if conv.ContactName == "" {
				conv.ContactName = entry.Name
			}
			conv.LastSeen = entry.LastSeen
		}

		tags, err := s.tags.ListForConversation(sessionID, phone)
		if err != nil {
			return nil, err
		}
		conv.Tags = tags

		conversations = append(conversations, conv)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i].LastMessage, conversations[j].LastMessage
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.ID > b.ID
	})

	return conversations, nil
}

// MarkRead marks every inbound message of the conversation as read and
// returns the number of messages affected. Marking an already-read
// conversation is a no-op.
func (s *ConversationService) MarkRead(tenantID, sessionID, contactPhone string) (int, error) {
	session, err := s.sessions.Get(tenantID, sessionID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, ErrSessionNotFound
	}

	affected, err := s.messages.MarkRead(sessionID, contactPhone)
	if err != nil {
		return 0, err
	}

	if affected > 0 {
		logger.Info("Conversation marked read",
			zap.String("session_id", sessionID),
			zap.String("contact_phone", contactPhone),
			zap.Int("messages", affected),
		)
	}

	return affected, nil
}
