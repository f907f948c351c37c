package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

// greenAdapter talks to a Green API-style gateway: instance id and API
// token travel in the URL path, contacts are addressed as {digits}@c.us.
type greenAdapter struct {
	baseURL     string
	instanceID  string
	token       string
	countryCode string
	httpClient  *http.Client
}

// NewGreenAdapter builds the adapter for one gateway instance
func NewGreenAdapter(baseURL, instanceID, token, countryCode string, timeout time.Duration) Adapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &greenAdapter{
		baseURL:     baseURL,
		instanceID:  instanceID,
		token:       token,
		countryCode: countryCode,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (a *greenAdapter) Kind() models.ProviderKind {
	return models.ProviderGreen
}

func (a *greenAdapter) endpoint(method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", a.baseURL, a.instanceID, method, a.token)
}

func (a *greenAdapter) chatID(phone string) string {
	return models.NormalizePhone(phone, a.countryCode) + "@c.us"
}

func (a *greenAdapter) request(ctx context.Context, httpMethod, apiMethod string, body, out interface{}) error {
	var requestBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, a.endpoint(apiMethod), requestBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Unavailable(models.ProviderGreen, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return Rejected(models.ProviderGreen, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}

	return nil
}

func (a *greenAdapter) SendText(ctx context.Context, phone, text string) (*DeliveryResult, error) {
	payload := map[string]interface{}{
		"chatId":  a.chatID(phone),
		"message": text,
	}

	var result struct {
		IDMessage string `json:"idMessage"`
	}
	if err := a.request(ctx, http.MethodPost, "sendMessage", payload, &result); err != nil {
		return nil, err
	}

	return &DeliveryResult{ProviderMsgID: result.IDMessage}, nil
}

func (a *greenAdapter) SendMedia(ctx context.Context, phone string, media MediaPayload) (*DeliveryResult, error) {
	if isRemoteURL(media.Data) {
		payload := map[string]interface{}{
			"chatId":   a.chatID(phone),
			"urlFile":  media.Data,
			"fileName": mediaFilename(media),
			"caption":  media.Caption,
		}

		var result struct {
			IDMessage string `json:"idMessage"`
		}
		if err := a.request(ctx, http.MethodPost, "sendFileByUrl", payload, &result); err != nil {
			return nil, err
		}
		return &DeliveryResult{ProviderMsgID: result.IDMessage}, nil
	}

	// Inline payloads go up as a multipart upload
	return a.sendFileByUpload(ctx, phone, media)
}

func (a *greenAdapter) sendFileByUpload(ctx context.Context, phone string, media MediaPayload) (*DeliveryResult, error) {
	data, _, err := decodeDataURL(media)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chatId", a.chatID(phone)); err != nil {
		return nil, fmt.Errorf("failed to write chatId field: %w", err)
	}
	if media.Caption != "" {
		if err := writer.WriteField("caption", media.Caption); err != nil {
			return nil, fmt.Errorf("failed to write caption field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", mediaFilename(media))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("sendFileByUpload"), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, Unavailable(models.ProviderGreen, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, Rejected(models.ProviderGreen, resp.StatusCode, respBody)
	}

	var result struct {
		IDMessage string `json:"idMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &DeliveryResult{ProviderMsgID: result.IDMessage}, nil
}

func (a *greenAdapter) Status(ctx context.Context) (*ConnectionStatus, error) {
	var state struct {
		StateInstance string `json:"stateInstance"`
	}
	if err := a.request(ctx, http.MethodGet, "getStateInstance", nil, &state); err != nil {
		return nil, err
	}

	status := &ConnectionStatus{
		SessionActive: state.StateInstance != "notAuthorized",
		Raw:           state.StateInstance,
	}

	if state.StateInstance == "authorized" {
		status.Connected = true
		status.DeviceConnected = true

		// Only an authorized instance knows its own number
		var settings struct {
			Phone string `json:"phone"`
		}
		if err := a.request(ctx, http.MethodGet, "getWaSettings", nil, &settings); err != nil {
			return nil, err
		}
		status.PhoneNumber = models.NormalizePhone(settings.Phone, a.countryCode)
	}

	return status, nil
}

func (a *greenAdapter) QRCode(ctx context.Context) (*QRPayload, error) {
	var result struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := a.request(ctx, http.MethodGet, "qr", nil, &result); err != nil {
		return nil, err
	}

	if result.Type != "qrCode" {
		// "alreadyLogged" and friends: a normal outcome, not an error
		return nil, ErrQRNotAvailable
	}

	return &QRPayload{Data: result.Message}, nil
}

func (a *greenAdapter) History(ctx context.Context, phone string) ([]*models.Message, error) {
	payload := map[string]interface{}{
		"chatId": a.chatID(phone),
		"count":  100,
	}

	var entries []greenHistoryEntry
	if err := a.request(ctx, http.MethodPost, "getChatHistory", payload, &entries); err != nil {
		if IsRejected(err) {
			return nil, nil
		}
		return nil, err
	}

	var messages []*models.Message
	for i := range entries {
		if msg := a.historyToMessage(phone, &entries[i]); msg != nil {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

type greenHistoryEntry struct {
	IDMessage     string `json:"idMessage"`
	Type          string `json:"type"` // incoming | outgoing
	Timestamp     int64  `json:"timestamp"`
	TypeMessage   string `json:"typeMessage"`
	TextMessage   string `json:"textMessage"`
	DownloadURL   string `json:"downloadUrl"`
	Caption       string `json:"caption"`
	StatusMessage string `json:"statusMessage"`
	SenderName    string `json:"senderName"`
}

func (a *greenAdapter) historyToMessage(phone string, entry *greenHistoryEntry) *models.Message {
	if entry.IDMessage == "" {
		return nil
	}

	fromMe := entry.Type == "outgoing"
	status := models.StatusDelivered
	if fromMe {
		status = greenAckStatus(entry.StatusMessage)
		if status == "" {
			status = models.StatusSent
		}
	}

	return &models.Message{
		ProviderMsgID: entry.IDMessage,
		ContactPhone:  models.NormalizePhone(phone, a.countryCode),
		ContactName:   entry.SenderName,
		FromMe:        fromMe,
		Type:          greenMessageType(entry.TypeMessage),
		Body:          entry.TextMessage,
		Caption:       entry.Caption,
		MediaURL:      entry.DownloadURL,
		Status:        status,
		Timestamp:     entry.Timestamp,
	}
}

// greenWebhook is the gateway's push notification envelope
type greenWebhook struct {
	TypeWebhook string `json:"typeWebhook"`
	IDMessage   string `json:"idMessage"`
	Timestamp   int64  `json:"timestamp"`
	Status      string `json:"status"`
	SenderData  struct {
		ChatID     string `json:"chatId"`
		SenderName string `json:"senderName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		FileMessageData struct {
			DownloadURL string `json:"downloadUrl"`
			Caption     string `json:"caption"`
		} `json:"fileMessageData"`
	} `json:"messageData"`
}

func (a *greenAdapter) ParseWebhook(raw []byte) (*models.Message, error) {
	var event greenWebhook
	if err := json.Unmarshal(raw, &event); err != nil {
		// Malformed input means nothing to parse
		return nil, nil
	}

	// Everything except a received incoming message is dropped here:
	// outgoing echoes, status updates, instance state changes.
	if event.TypeWebhook != "incomingMessageReceived" {
		return nil, nil
	}
	if event.IDMessage == "" || event.SenderData.ChatID == "" {
		return nil, nil
	}

	timestamp := event.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	return &models.Message{
		ProviderMsgID: event.IDMessage,
		ContactPhone:  models.NormalizePhone(event.SenderData.ChatID, a.countryCode),
		ContactName:   event.SenderData.SenderName,
		FromMe:        false,
		Type:          greenMessageType(event.MessageData.TypeMessage),
		Body:          event.MessageData.TextMessageData.TextMessage,
		Caption:       event.MessageData.FileMessageData.Caption,
		MediaURL:      event.MessageData.FileMessageData.DownloadURL,
		Status:        models.StatusDelivered,
		Timestamp:     timestamp,
	}, nil
}

// ParseAck interprets outbound status notifications pushed by the gateway
func (a *greenAdapter) ParseAck(raw []byte) *DeliveryAck {
	var event greenWebhook
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil
	}
	if event.TypeWebhook != "outgoingMessageStatus" || event.IDMessage == "" {
		return nil
	}

	status := greenAckStatus(event.Status)
	if status == "" {
		return nil
	}

	return &DeliveryAck{ProviderMsgID: event.IDMessage, Status: status}
}

func greenAckStatus(s string) models.MessageStatus {
	switch s {
	case "sent":
		return models.StatusSent
	case "delivered":
		return models.StatusDelivered
	case "read":
		return models.StatusRead
	}
	return ""
}

func greenMessageType(t string) models.MessageType {
	switch t {
	case "textMessage", "extendedTextMessage":
		return models.MessageText
	case "imageMessage":
		return models.MessageImage
	case "audioMessage":
		return models.MessageAudio
	case "videoMessage":
		return models.MessageVideo
	case "documentMessage":
		return models.MessageFile
	case "stickerMessage":
		return models.MessageSticker
	case "contactMessage":
		return models.MessageContact
	}
	return models.MessageFile
}
