package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

// wppAdapter talks to a WPPConnect-style gateway: one named session per
// device, bearer token auth, JSON endpoints under /api/{session}/.
type wppAdapter struct {
	baseURL     string
	session     string
	token       string
	countryCode string
	httpClient  *http.Client
}

// NewWPPAdapter builds the adapter for one gateway session
func NewWPPAdapter(baseURL, session, token, countryCode string, timeout time.Duration) Adapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &wppAdapter{
		baseURL:     baseURL,
		session:     session,
		token:       token,
		countryCode: countryCode,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (a *wppAdapter) Kind() models.ProviderKind {
	return models.ProviderWPP
}

func (a *wppAdapter) endpoint(suffix string) (string, error) {
	base, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	base.Path = path.Join(base.Path, "api", a.session, suffix)
	return base.String(), nil
}

// request executes one gateway call and decodes the 2xx response into out.
// Transport failures map to Unavailable, non-2xx responses to Rejected.
func (a *wppAdapter) request(ctx context.Context, method, suffix string, body, out interface{}) error {
	requestURL, err := a.endpoint(suffix)
	if err != nil {
		return err
	}

	var requestBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, requestBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Unavailable(models.ProviderWPP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return Rejected(models.ProviderWPP, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}

	return nil
}

func (a *wppAdapter) SendText(ctx context.Context, phone, text string) (*DeliveryResult, error) {
	payload := map[string]interface{}{
		"phone":   models.NormalizePhone(phone, a.countryCode),
		"message": text,
	}

	var result struct {
		ID        string `json:"id"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := a.request(ctx, http.MethodPost, "send-message", payload, &result); err != nil {
		return nil, err
	}

	return &DeliveryResult{ProviderMsgID: result.ID, Timestamp: result.Timestamp}, nil
}

func (a *wppAdapter) SendMedia(ctx context.Context, phone string, media MediaPayload) (*DeliveryResult, error) {
	payload := map[string]interface{}{
		"phone":    models.NormalizePhone(phone, a.countryCode),
		"filename": mediaFilename(media),
		"caption":  media.Caption,
	}

	// The gateway takes data URLs on one endpoint and fetchable URLs on
	// another; both answer the same shape.
	suffix := "send-file-base64"
	if isRemoteURL(media.Data) {
		suffix = "send-file"
		payload["path"] = media.Data
	} else {
		encoded, err := toDataURL(media)
		if err != nil {
			return nil, err
		}
		payload["base64"] = encoded
	}

	var result struct {
		ID        string `json:"id"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := a.request(ctx, http.MethodPost, suffix, payload, &result); err != nil {
		return nil, err
	}

	return &DeliveryResult{ProviderMsgID: result.ID, Timestamp: result.Timestamp}, nil
}

func (a *wppAdapter) Status(ctx context.Context) (*ConnectionStatus, error) {
	var result struct {
		Status string `json:"status"`
		Phone  string `json:"phone"`
	}
	if err := a.request(ctx, http.MethodGet, "status-session", nil, &result); err != nil {
		return nil, err
	}

	connected := result.Status == "CONNECTED"
	return &ConnectionStatus{
		Connected:       connected,
		SessionActive:   connected || result.Status == "QRCODE",
		DeviceConnected: connected,
		PhoneNumber:     models.NormalizePhone(result.Phone, a.countryCode),
		Raw:             result.Status,
	}, nil
}

func (a *wppAdapter) QRCode(ctx context.Context) (*QRPayload, error) {
	var result struct {
		Status string `json:"status"`
		QRCode string `json:"qrcode"`
	}
	if err := a.request(ctx, http.MethodGet, "qrcode-session", nil, &result); err != nil {
		return nil, err
	}

	if result.QRCode == "" {
		// Already paired, nothing to scan
		return nil, ErrQRNotAvailable
	}

	return &QRPayload{Data: result.QRCode}, nil
}

func (a *wppAdapter) History(ctx context.Context, phone string) ([]*models.Message, error) {
	suffix := "all-messages-in-chat/" + models.NormalizePhone(phone, a.countryCode)

	var result []wppEvent
	if err := a.request(ctx, http.MethodGet, suffix, nil, &result); err != nil {
		// History is an optimization; a gateway refusing the call is not
		// a failure worth surfacing
		if IsRejected(err) {
			return nil, nil
		}
		return nil, err
	}

	var messages []*models.Message
	for i := range result {
		if msg := a.eventToMessage(&result[i]); msg != nil {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// wppEvent is the gateway's native message/event shape, shared by webhooks
// and chat history.
type wppEvent struct {
	Event     string `json:"event"`
	ID        string `json:"id"`
	FromMe    bool   `json:"fromMe"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	Caption   string `json:"caption"`
	MediaURL  string `json:"mediaUrl"`
	Timestamp int64  `json:"timestamp"`
	Ack       int    `json:"ack"`
	Sender    struct {
		Pushname string `json:"pushname"`
	} `json:"sender"`
}

func (a *wppAdapter) ParseWebhook(raw []byte) (*models.Message, error) {
	var event wppEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		// Malformed input means nothing to parse
		return nil, nil
	}

	if event.Event != "onmessage" {
		return nil, nil
	}
	if event.FromMe {
		// Self-sent echo, never an inbound message
		return nil, nil
	}

	return a.eventToMessage(&event), nil
}

// ParseAck interprets delivery receipt events ("onack") pushed by the
// gateway for outbound messages.
func (a *wppAdapter) ParseAck(raw []byte) *DeliveryAck {
	var event wppEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil
	}
	if event.Event != "onack" || event.ID == "" {
		return nil
	}

	var status models.MessageStatus
	switch event.Ack {
	case 1:
		status = models.StatusSent
	case 2:
		status = models.StatusDelivered
	case 3:
		status = models.StatusRead
	default:
		return nil
	}

	return &DeliveryAck{ProviderMsgID: event.ID, Status: status}
}

func (a *wppAdapter) eventToMessage(event *wppEvent) *models.Message {
	if event.ID == "" || event.From == "" {
		return nil
	}

	status := models.StatusDelivered
	if event.FromMe {
		status = models.StatusSent
	}

	timestamp := event.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	return &models.Message{
		ProviderMsgID: event.ID,
		ContactPhone:  models.NormalizePhone(event.From, a.countryCode),
		ContactName:   event.Sender.Pushname,
		FromMe:        event.FromMe,
		Type:          wppMessageType(event.Type),
		Body:          event.Body,
		Caption:       event.Caption,
		MediaURL:      event.MediaURL,
		Status:        status,
		Timestamp:     timestamp,
	}
}

func wppMessageType(t string) models.MessageType {
	switch t {
	case "chat", "text":
		return models.MessageText
	case "image":
		return models.MessageImage
	case "audio", "ptt":
		return models.MessageAudio
	case "video":
		return models.MessageVideo
	case "document":
		return models.MessageFile
	case "sticker":
		return models.MessageSticker
	case "vcard", "contact":
		return models.MessageContact
	}
	return models.MessageFile
}
