package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a label attachable to conversations. UsageCount is derived from
// the attachment table, not stored on the tag itself.
type Tag struct {
	ID         string `json:"id"` // UUID
	TenantID   string `json:"tenant_id"`
	Name       string `json:"name" binding:"required,min=1,max=50"`
	Color      string `json:"color"`
	UsageCount int    `json:"usage_count"`
	CreatedAt  int64  `json:"created_at"` // Unix timestamp
}

// CreateTagRequest represents the request body for creating a new tag
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=50"`
	Color string `json:"color,omitempty"`
}

// TagAttachmentRequest represents the request body for attaching or
// detaching a tag on a conversation key
type TagAttachmentRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	TagID     string `json:"tag_id" binding:"required"`
}

// NewTag creates a new Tag with generated UUID and timestamp
func NewTag(tenantID, name, color string) *Tag {
	if color == "" {
		color = "#808080"
	}
	return &Tag{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().Unix(),
	}
}
