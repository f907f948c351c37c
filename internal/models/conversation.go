package models

// Conversation is a derived view over the message log: all messages sharing
// a session+contact key. It is recomputed on read and never stored, so it
// cannot drift from the log.
type Conversation struct {
	SessionID    string   `json:"session_id"`
	ContactPhone string   `json:"contact_phone"`
	ContactName  string   `json:"contact_name,omitempty"`
	LastSeen     int64    `json:"last_seen,omitempty"` // Unix timestamp hint
	LastMessage  *Message `json:"last_message"`
	UnreadCount  int      `json:"unread_count"`
	Tags         []*Tag   `json:"tags,omitempty"`
}

// Contact is the counterpart's directory entry. The phone number is the
// stable join key; correlation with the CRM's own contacts happens by phone
// normalization, never by foreign key.
type Contact struct {
	Phone    string `json:"phone"`
	Name     string `json:"name,omitempty"`
	LastSeen int64  `json:"last_seen,omitempty"` // Unix timestamp
}
