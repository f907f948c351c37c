package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of one provider-backed connection
type SessionStatus string

const (
	SessionConnecting   SessionStatus = "connecting"
	SessionConnected    SessionStatus = "connected"
	SessionDisconnected SessionStatus = "disconnected"
	SessionError        SessionStatus = "error"
)

// ProviderKind identifies which gateway backs a session
type ProviderKind string

const (
	ProviderWPP   ProviderKind = "wpp"
	ProviderGreen ProviderKind = "green"
)

// ValidProviderKind reports whether the given kind names a known gateway
func ValidProviderKind(kind ProviderKind) bool {
	return kind == ProviderWPP || kind == ProviderGreen
}

// Session represents one authenticated device/number connection to a gateway.
// PhoneNumber is set only while the session is connected; QRCode is only
// meaningful while the session is connecting.
type Session struct {
	ID           string        `json:"id"` // UUID
	TenantID     string        `json:"tenant_id"`
	Name         string        `json:"name" binding:"required,min=1,max=100"`
	Provider     ProviderKind  `json:"provider"`
	Status       SessionStatus `json:"status"`
	PhoneNumber  *string       `json:"phone_number,omitempty"`
	QRCode       *string       `json:"qr_code,omitempty"`
	LastActivity int64         `json:"last_activity"` // Unix timestamp
	CreatedAt    int64         `json:"created_at"`    // Unix timestamp
	UpdatedAt    int64         `json:"updated_at"`    // Unix timestamp
}

// CreateSessionRequest represents the request body for creating a new session
type CreateSessionRequest struct {
	Name     string       `json:"name" binding:"required,min=1,max=100"`
	Provider ProviderKind `json:"provider" binding:"required"`
}

// NewSession creates a new Session in the connecting state with generated UUID
func NewSession(tenantID, name string, provider ProviderKind) *Session {
	now := time.Now().Unix()
	return &Session{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Name:         name,
		Provider:     provider,
		Status:       SessionConnecting,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsConnected reports whether the session has an active device connection
func (s *Session) IsConnected() bool {
	return s.Status == SessionConnected
}

// CanTransitionTo reports whether moving to the target status is a legal
// step of the session state machine. An explicit stop (disconnected) is
// allowed from every state.
func (s *Session) CanTransitionTo(target SessionStatus) bool {
	switch target {
	case SessionDisconnected:
		return true
	case SessionConnected:
		return s.Status == SessionConnecting
	case SessionConnecting:
		// reconnect
		return s.Status == SessionDisconnected || s.Status == SessionError
	case SessionError:
		// a failed poll can push any live session into the error state
		return s.Status == SessionConnecting || s.Status == SessionConnected
	}
	return false
}
