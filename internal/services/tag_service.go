package services

import (
	"errors"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/db"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"go.uber.org/zap"
)

// ErrTagNotFound is returned when the tag does not exist or belongs to
// another tenant
var ErrTagNotFound = errors.New("tag not found")

// TagService manages conversation labels. Tags live at the tenant level;
// attachments reference the conversation key (session + contact phone)
// directly, so tagging never requires a stored conversation row.
type TagService struct {
	sessions *SessionService
	tags     db.TagRepository
}

// NewTagService creates a tag service
func NewTagService(sessions *SessionService, tags db.TagRepository) *TagService {
	return &TagService{sessions: sessions, tags: tags}
}

// Create registers a new tag for the tenant
func (s *TagService) Create(tenantID string, req *models.CreateTagRequest) (*models.Tag, error) {
	tag := models.NewTag(tenantID, req.Name, req.Color)
	if err := s.tags.Create(tag); err != nil {
		return nil, err
	}

	logger.Info("Tag created",
		zap.String("tag_id", tag.ID),
		zap.String("tenant_id", tenantID),
		zap.String("name", tag.Name),
	)
	return tag, nil
}

// List returns the tenant's tags with usage counts
func (s *TagService) List(tenantID string) ([]*models.Tag, error) {
	return s.tags.ListByTenant(tenantID)
}

// Delete removes a tag and all its attachments. Deleting an unknown tag
// is a no-op.
func (s *TagService) Delete(tenantID, id string) error {
	tag, err := s.get(tenantID, id)
	if err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return nil
		}
		return err
	}

	if err := s.tags.Delete(tag.ID); err != nil {
		return err
	}

	logger.Info("Tag deleted",
		zap.String("tag_id", id),
		zap.String("tenant_id", tenantID),
	)
	return nil
}

// Attach labels a conversation with a tag. Attaching twice is a no-op.
func (s *TagService) Attach(tenantID string, req *models.TagAttachmentRequest) error {
	if err := s.checkOwnership(tenantID, req); err != nil {
		return err
	}
	return s.tags.Attach(req.SessionID, req.Phone, req.TagID)
}

// Detach removes a tag from a conversation. Detaching an absent tag is a
// no-op.
func (s *TagService) Detach(tenantID string, req *models.TagAttachmentRequest) error {
	if err := s.checkOwnership(tenantID, req); err != nil {
		return err
	}
	return s.tags.Detach(req.SessionID, req.Phone, req.TagID)
}

func (s *TagService) get(tenantID, id string) (*models.Tag, error) {
	tag, err := s.tags.GetByID(id)
	if err != nil {
		return nil, err
	}
	if tag == nil || tag.TenantID != tenantID {
		return nil, ErrTagNotFound
	}
	return tag, nil
}

// checkOwnership verifies that both ends of an attachment belong to the
// caller's tenant
func (s *TagService) checkOwnership(tenantID string, req *models.TagAttachmentRequest) error {
	if _, err := s.get(tenantID, req.TagID); err != nil {
		return err
	}

	session, err := s.sessions.Get(tenantID, req.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return nil
}
