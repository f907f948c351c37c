package handlers

import (
	"context"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/services"
)

// SessionServiceInterface defines the contract for session registry operations
// This interface is used for dependency injection and testing
type SessionServiceInterface interface {
	Create(tenantID string, req *models.CreateSessionRequest) (*models.Session, error)
	Get(tenantID, id string) (*models.Session, error)
	List(tenantID string) ([]*models.Session, error)
	ListActive(tenantID string) ([]*models.Session, error)
	Delete(tenantID, id string) error
	Reconnect(tenantID, id string) (*models.Session, error)
	QRCode(ctx context.Context, tenantID, id string) (string, error)
}

// MessageServiceInterface defines the contract for the send and read paths
type MessageServiceInterface interface {
	SendText(ctx context.Context, tenantID, sessionID string, req *models.SendTextRequest) (*models.Message, error)
	SendMedia(ctx context.Context, tenantID, sessionID string, req *models.SendMediaRequest) (*models.Message, error)
	ListMessages(ctx context.Context, tenantID, sessionID, phone string, limit, offset int) ([]*models.Message, error)
}

// ConversationServiceInterface defines the contract for conversation reads
type ConversationServiceInterface interface {
	List(tenantID, sessionID string) ([]*models.Conversation, error)
	MarkRead(tenantID, sessionID, contactPhone string) (int, error)
}

// WebhookServiceInterface defines the contract for webhook ingestion
type WebhookServiceInterface interface {
	Ingest(sessionID string, raw []byte) (*models.Message, error)
}

// TagServiceInterface defines the contract for conversation labels
type TagServiceInterface interface {
	Create(tenantID string, req *models.CreateTagRequest) (*models.Tag, error)
	List(tenantID string) ([]*models.Tag, error)
	Delete(tenantID, id string) error
	Attach(tenantID string, req *models.TagAttachmentRequest) error
	Detach(tenantID string, req *models.TagAttachmentRequest) error
}

// EventHubInterface defines the contract for realtime subscriptions
type EventHubInterface interface {
	Subscribe(tenantID string) chan services.Event
	Unsubscribe(tenantID string, ch chan services.Event)
}
