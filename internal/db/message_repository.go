package db

import (
	"database/sql"
	"fmt"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

// MessageRepository defines the interface for message log access. The log is
// append-only except for forward-only delivery status transitions.
type MessageRepository interface {
	// InsertIfAbsent appends a message unless one with the same
	// (session_id, provider_msg_id) already exists. It reports whether a
	// row was actually inserted, so webhook redelivery resolves to a
	// no-op success instead of a duplicate.
	InsertIfAbsent(msg *models.Message) (bool, error)
	ListBySession(sessionID string) ([]*models.Message, error)
	ListByContact(sessionID, contactPhone string, limit, offset int) ([]*models.Message, error)
	// UpdateStatus moves a message's delivery status forward. Transitions
	// that would move backwards are ignored.
	UpdateStatus(sessionID, providerMsgID string, status models.MessageStatus) (bool, error)
	// MarkRead transitions all inbound non-read messages of a contact to
	// read and returns the number of affected rows.
	MarkRead(sessionID, contactPhone string) (int, error)
	CountUnread(sessionID, contactPhone string) (int, error)
}

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, provider_msg_id, session_id, contact_phone, contact_name, from_me, type, body, caption, media_url, status, timestamp`

// statusRankExpr ranks a status column for forward-only comparisons in SQL,
// mirroring models.StatusRank.
const statusRankExpr = `
	CASE %s
		WHEN 'pending' THEN 0
		WHEN 'sent' THEN 1
		WHEN 'delivered' THEN 2
		WHEN 'read' THEN 3
		ELSE -1
	END`

func (r *messageRepository) InsertIfAbsent(msg *models.Message) (bool, error) {
	if msg == nil {
		return false, fmt.Errorf("message cannot be nil")
	}
	if msg.SessionID == "" || msg.ProviderMsgID == "" {
		return false, fmt.Errorf("session ID and provider message ID are required")
	}
	if msg.ContactPhone == "" {
		return false, fmt.Errorf("contact phone is required")
	}

	query := `
		INSERT OR IGNORE INTO messages (provider_msg_id, session_id, contact_phone, contact_name, from_me, type, body, caption, media_url, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		msg.ProviderMsgID,
		msg.SessionID,
		msg.ContactPhone,
		msg.ContactName,
		msg.FromMe,
		msg.Type,
		msg.Body,
		msg.Caption,
		msg.MediaURL,
		msg.Status,
		msg.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Duplicate delivery of an already-stored provider message
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return true, fmt.Errorf("failed to get inserted message ID: %w", err)
	}
	msg.ID = id

	return true, nil
}

// ListBySession returns the session's full message log in conversation
// order: timestamp ascending, ties broken by insertion order.
func (r *messageRepository) ListBySession(sessionID string) ([]*models.Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE session_id = ?
		ORDER BY timestamp, id
	`, messageColumns)

	return r.list(query, sessionID)
}

// ListByContact returns one contact's messages, oldest first, paged
func (r *messageRepository) ListByContact(sessionID, contactPhone string, limit, offset int) ([]*models.Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}
	if contactPhone == "" {
		return nil, fmt.Errorf("contact phone cannot be empty")
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE session_id = ? AND contact_phone = ?
		ORDER BY timestamp, id
		LIMIT ? OFFSET ?
	`, messageColumns)

	return r.list(query, sessionID, contactPhone, limit, offset)
}

func (r *messageRepository) list(query string, args ...interface{}) ([]*models.Message, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.ProviderMsgID,
			&msg.SessionID,
			&msg.ContactPhone,
			&msg.ContactName,
			&msg.FromMe,
			&msg.Type,
			&msg.Body,
			&msg.Caption,
			&msg.MediaURL,
			&msg.Status,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func (r *messageRepository) UpdateStatus(sessionID, providerMsgID string, status models.MessageStatus) (bool, error) {
	if sessionID == "" || providerMsgID == "" {
		return false, fmt.Errorf("session ID and provider message ID are required")
	}
	if models.StatusRank(status) < 0 {
		return false, fmt.Errorf("unknown message status: %s", status)
	}

	query := fmt.Sprintf(`
		UPDATE messages
		SET status = ?
		WHERE session_id = ? AND provider_msg_id = ?
		AND %s < %s
	`, fmt.Sprintf(statusRankExpr, "status"), fmt.Sprintf(statusRankExpr, "?"))

	result, err := r.db.Exec(query, status, sessionID, providerMsgID, status)
	if err != nil {
		return false, fmt.Errorf("failed to update message status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *messageRepository) MarkRead(sessionID, contactPhone string) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session ID cannot be empty")
	}
	if contactPhone == "" {
		return 0, fmt.Errorf("contact phone cannot be empty")
	}

	query := `
		UPDATE messages
		SET status = ?
		WHERE session_id = ? AND contact_phone = ? AND from_me = 0 AND status != ?
	`

	result, err := r.db.Exec(query, models.StatusRead, sessionID, contactPhone, models.StatusRead)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func (r *messageRepository) CountUnread(sessionID, contactPhone string) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session ID cannot be empty")
	}
	if contactPhone == "" {
		return 0, fmt.Errorf("contact phone cannot be empty")
	}

	query := `
		SELECT COUNT(*) FROM messages
		WHERE session_id = ? AND contact_phone = ? AND from_me = 0 AND status != ?
	`

	var count int
	if err := r.db.QueryRow(query, sessionID, contactPhone, models.StatusRead).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}
