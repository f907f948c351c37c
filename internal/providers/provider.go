package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

// ErrQRNotAvailable is the normal outcome of asking for a QR code when the
// gateway has none to offer (typically because the session is already
// connected). It is not a transport failure.
var ErrQRNotAvailable = errors.New("qr code not available")

// ErrorKind classifies a gateway failure for the caller
type ErrorKind string

const (
	// KindUnavailable marks transient network/timeout failures; the caller may retry
	KindUnavailable ErrorKind = "unavailable"
	// KindRejected marks provider-side application errors; retrying without
	// changing the input will not help
	KindRejected ErrorKind = "rejected"
)

// ProviderError is the uniform error shape for gateway failures. Adapters
// map provider-specific error bodies into Message so callers never see raw
// provider JSON.
type ProviderError struct {
	Kind     ErrorKind
	Provider models.ProviderKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s gateway %s: %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s gateway %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Unavailable wraps a transport-level failure
func Unavailable(provider models.ProviderKind, err error) error {
	return &ProviderError{Kind: KindUnavailable, Provider: provider, Message: "gateway unreachable", Err: err}
}

// Rejected builds the uniform error for a non-2xx application response,
// extracting the provider's message field when the body is JSON.
func Rejected(provider models.ProviderKind, status int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", status)

	var errorResponse map[string]interface{}
	if err := json.Unmarshal(body, &errorResponse); err == nil {
		for _, key := range []string{"message", "error", "invokeStatus"} {
			if v, ok := errorResponse[key]; ok {
				message = fmt.Sprintf("HTTP %d: %v", status, v)
				break
			}
		}
	} else if len(body) > 0 {
		message = fmt.Sprintf("HTTP %d: %s", status, string(body))
	}

	return &ProviderError{Kind: KindRejected, Provider: provider, Message: message}
}

// IsUnavailable reports whether err is a transient gateway failure
func IsUnavailable(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr) && pErr.Kind == KindUnavailable
}

// IsRejected reports whether err is a provider-side application error
func IsRejected(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr) && pErr.Kind == KindRejected
}

// DeliveryResult is the uniform outcome of a successful send
type DeliveryResult struct {
	ProviderMsgID string `json:"provider_msg_id"`
	Timestamp     int64  `json:"timestamp"` // Unix timestamp; 0 when the gateway reports none
}

// ConnectionStatus is a pure read of the gateway's view of the session.
// Callers apply the resulting state transition; adapters never touch the
// session registry themselves.
type ConnectionStatus struct {
	Connected       bool   `json:"connected"`
	SessionActive   bool   `json:"session_active"`
	DeviceConnected bool   `json:"device_connected"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	Raw             string `json:"raw,omitempty"` // provider's native state string
}

// QRPayload carries the pairing QR code while a session is connecting
type QRPayload struct {
	Data string `json:"data"` // base64 PNG or data URL, as the gateway serves it
}

// MediaPayload describes outbound media: either an RFC 2397 data URL or an
// http(s) URL the gateway can fetch itself.
type MediaPayload struct {
	Data    string
	Kind    models.MessageType
	Caption string
}

// DeliveryAck is a provider notification about an outbound message's
// delivery progress.
type DeliveryAck struct {
	ProviderMsgID string
	Status        models.MessageStatus
}

// Adapter is the uniform capability contract over one messaging gateway.
// Everything behind this interface is provider-specific; everything in
// front of it sees only canonical values.
type Adapter interface {
	// Kind names the gateway variant backing this adapter
	Kind() models.ProviderKind

	// SendText delivers a text message to the given (already normalized)
	// phone number
	SendText(ctx context.Context, phone, text string) (*DeliveryResult, error)

	// SendMedia delivers a media message; the adapter owns the
	// provider-specific request shape
	SendMedia(ctx context.Context, phone string, media MediaPayload) (*DeliveryResult, error)

	// Status reads the gateway's connection state without side effects
	Status(ctx context.Context) (*ConnectionStatus, error)

	// QRCode fetches the pairing QR payload; ErrQRNotAvailable is a
	// normal outcome, distinct from transport errors
	QRCode(ctx context.Context) (*QRPayload, error)

	// History returns past messages for a contact, best effort. Gateways
	// without the capability return an empty slice, not an error.
	History(ctx context.Context, phone string) ([]*models.Message, error)

	// ParseWebhook interprets a raw provider event. It returns (nil, nil)
	// for anything that is not a genuine inbound user message: self-sent
	// echoes, delivery acks, presence events, unparseable payloads.
	// Silently dropping such events is the contract, not a bug.
	ParseWebhook(raw []byte) (*models.Message, error)
}

// AckParser is an optional adapter capability: gateways that push delivery
// receipts implement it so outbound message statuses can move forward.
type AckParser interface {
	// ParseAck returns nil for events that are not delivery receipts
	ParseAck(raw []byte) *DeliveryAck
}
