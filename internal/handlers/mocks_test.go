package handlers

import (
	"context"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// testTenant is the tenant injected into every test request context
const testTenant = "tenant-1"

// testRouter returns a gin engine that authenticates every request as
// testTenant, standing in for the JWT middleware
func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("tenantID", testTenant)
		c.Next()
	})
	return router
}

// MockSessionService is a mock implementation of SessionServiceInterface
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(tenantID string, req *models.CreateSessionRequest) (*models.Session, error) {
	args := m.Called(tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionService) Get(tenantID, id string) (*models.Session, error) {
	args := m.Called(tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionService) List(tenantID string) ([]*models.Session, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockSessionService) ListActive(tenantID string) ([]*models.Session, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockSessionService) Delete(tenantID, id string) error {
	args := m.Called(tenantID, id)
	return args.Error(0)
}

func (m *MockSessionService) Reconnect(tenantID, id string) (*models.Session, error) {
	args := m.Called(tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionService) QRCode(ctx context.Context, tenantID, id string) (string, error) {
	args := m.Called(ctx, tenantID, id)
	return args.String(0), args.Error(1)
}

// MockMessageService is a mock implementation of MessageServiceInterface
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) SendText(ctx context.Context, tenantID, sessionID string, req *models.SendTextRequest) (*models.Message, error) {
	args := m.Called(ctx, tenantID, sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) SendMedia(ctx context.Context, tenantID, sessionID string, req *models.SendMediaRequest) (*models.Message, error) {
	args := m.Called(ctx, tenantID, sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) ListMessages(ctx context.Context, tenantID, sessionID, phone string, limit, offset int) ([]*models.Message, error) {
	args := m.Called(ctx, tenantID, sessionID, phone, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

// MockConversationService is a mock implementation of ConversationServiceInterface
type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) List(tenantID, sessionID string) ([]*models.Conversation, error) {
	args := m.Called(tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockConversationService) MarkRead(tenantID, sessionID, contactPhone string) (int, error) {
	args := m.Called(tenantID, sessionID, contactPhone)
	return args.Int(0), args.Error(1)
}

// MockWebhookService is a mock implementation of WebhookServiceInterface
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Ingest(sessionID string, raw []byte) (*models.Message, error) {
	args := m.Called(sessionID, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// MockTagService is a mock implementation of TagServiceInterface
type MockTagService struct {
	mock.Mock
}

func (m *MockTagService) Create(tenantID string, req *models.CreateTagRequest) (*models.Tag, error) {
	args := m.Called(tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *MockTagService) List(tenantID string) ([]*models.Tag, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tag), args.Error(1)
}

func (m *MockTagService) Delete(tenantID, id string) error {
	args := m.Called(tenantID, id)
	return args.Error(0)
}

func (m *MockTagService) Attach(tenantID string, req *models.TagAttachmentRequest) error {
	args := m.Called(tenantID, req)
	return args.Error(0)
}

func (m *MockTagService) Detach(tenantID string, req *models.TagAttachmentRequest) error {
	args := m.Called(tenantID, req)
	return args.Error(0)
}

// MockEventHub is a mock implementation of EventHubInterface
type MockEventHub struct {
	mock.Mock
}

func (m *MockEventHub) Subscribe(tenantID string) chan services.Event {
	args := m.Called(tenantID)
	return args.Get(0).(chan services.Event)
}

func (m *MockEventHub) Unsubscribe(tenantID string, ch chan services.Event) {
	m.Called(tenantID, ch)
}
