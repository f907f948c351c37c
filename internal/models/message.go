package models

// MessageType is the canonical content kind of a chat event
type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageAudio   MessageType = "audio"
	MessageVideo   MessageType = "video"
	MessageFile    MessageType = "file"
	MessageSticker MessageType = "sticker"
	MessageContact MessageType = "contact"
)

// MessageStatus is the delivery state of a message. Transitions only move
// forward: pending -> sent -> delivered -> read.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// StatusRank maps a delivery status to its position in the forward-only
// ordering. Unknown statuses rank below pending so they can never overwrite
// a real one.
func StatusRank(s MessageStatus) int {
	switch s {
	case StatusPending:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return -1
}

// Message is the canonical representation of a chat event, independent of
// the gateway it came from. ProviderMsgID is unique within a session; the
// Timestamp is the provider-reported one, not local receipt time.
type Message struct {
	ID            int64         `json:"id"`
	ProviderMsgID string        `json:"provider_msg_id"`
	SessionID     string        `json:"session_id"`
	ContactPhone  string        `json:"contact_phone"`
	ContactName   string        `json:"contact_name,omitempty"`
	FromMe        bool          `json:"from_me"`
	Type          MessageType   `json:"type"`
	Body          string        `json:"body"`
	Caption       string        `json:"caption,omitempty"`
	MediaURL      string        `json:"media_url,omitempty"`
	Status        MessageStatus `json:"status"`
	Timestamp     int64         `json:"timestamp"` // Unix timestamp, provider-reported
}

// SendTextRequest represents the request body for sending a text message
type SendTextRequest struct {
	Phone string `json:"phone" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// SendMediaRequest represents the request body for sending a media message.
// Media is either a data URL or an http(s) URL the gateway can fetch.
type SendMediaRequest struct {
	Phone   string      `json:"phone" binding:"required"`
	Media   string      `json:"media" binding:"required"`
	Kind    MessageType `json:"kind" binding:"required"`
	Caption string      `json:"caption,omitempty"`
}

// MarkReadRequest represents the request body for marking a conversation read
type MarkReadRequest struct {
	Phone string `json:"phone" binding:"required"`
}
