package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

// TagRepository defines the interface for tag data access. Usage counts are
// always derived from the attachment table on read.
type TagRepository interface {
	Create(tag *models.Tag) error
	GetByID(id string) (*models.Tag, error)
	ListByTenant(tenantID string) ([]*models.Tag, error)
	Delete(id string) error
	Attach(sessionID, contactPhone, tagID string) error
	Detach(sessionID, contactPhone, tagID string) error
	ListForConversation(sessionID, contactPhone string) ([]*models.Tag, error)
}

// tagRepository implements TagRepository interface
type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db *sql.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(tag *models.Tag) error {
	if tag == nil {
		return fmt.Errorf("tag cannot be nil")
	}
	if tag.ID == "" {
		return fmt.Errorf("tag ID cannot be empty")
	}

	query := `
		INSERT INTO tags (id, tenant_id, name, color, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, tag.ID, tag.TenantID, tag.Name, tag.Color, tag.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

func (r *tagRepository) GetByID(id string) (*models.Tag, error) {
	if id == "" {
		return nil, fmt.Errorf("tag ID cannot be empty")
	}

	query := `
		SELECT t.id, t.tenant_id, t.name, t.color, t.created_at,
			(SELECT COUNT(*) FROM conversation_tags ct WHERE ct.tag_id = t.id)
		FROM tags t
		WHERE t.id = ?
	`

	tag := &models.Tag{}
	err := r.db.QueryRow(query, id).Scan(
		&tag.ID,
		&tag.TenantID,
		&tag.Name,
		&tag.Color,
		&tag.CreatedAt,
		&tag.UsageCount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag by ID: %w", err)
	}

	return tag, nil
}

func (r *tagRepository) ListByTenant(tenantID string) ([]*models.Tag, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID cannot be empty")
	}

	query := `
		SELECT t.id, t.tenant_id, t.name, t.color, t.created_at,
			(SELECT COUNT(*) FROM conversation_tags ct WHERE ct.tag_id = t.id)
		FROM tags t
		WHERE t.tenant_id = ?
		ORDER BY t.name
	`

	return r.list(query, tenantID)
}

func (r *tagRepository) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("tag ID cannot be empty")
	}

	query := `DELETE FROM tags WHERE id = ?`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("tag not found")
	}

	return nil
}

// Attach links a tag to a conversation key. Attaching twice is a no-op.
func (r *tagRepository) Attach(sessionID, contactPhone, tagID string) error {
	if sessionID == "" || contactPhone == "" || tagID == "" {
		return fmt.Errorf("session ID, contact phone and tag ID are required")
	}

	query := `
		INSERT OR IGNORE INTO conversation_tags (session_id, contact_phone, tag_id, attached_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, sessionID, contactPhone, tagID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to attach tag: %w", err)
	}

	return nil
}

func (r *tagRepository) Detach(sessionID, contactPhone, tagID string) error {
	if sessionID == "" || contactPhone == "" || tagID == "" {
		return fmt.Errorf("session ID, contact phone and tag ID are required")
	}

	query := `DELETE FROM conversation_tags WHERE session_id = ? AND contact_phone = ? AND tag_id = ?`

	if _, err := r.db.Exec(query, sessionID, contactPhone, tagID); err != nil {
		return fmt.Errorf("failed to detach tag: %w", err)
	}

	return nil
}

func (r *tagRepository) ListForConversation(sessionID, contactPhone string) ([]*models.Tag, error) {
	if sessionID == "" || contactPhone == "" {
		return nil, fmt.Errorf("session ID and contact phone are required")
	}

	query := `
		SELECT t.id, t.tenant_id, t.name, t.color, t.created_at,
			(SELECT COUNT(*) FROM conversation_tags c2 WHERE c2.tag_id = t.id)
		FROM tags t
		INNER JOIN conversation_tags ct ON t.id = ct.tag_id
		WHERE ct.session_id = ? AND ct.contact_phone = ?
		ORDER BY t.name
	`

	return r.list(query, sessionID, contactPhone)
}

func (r *tagRepository) list(query string, args ...interface{}) ([]*models.Tag, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		tag := &models.Tag{}
		err := rows.Scan(
			&tag.ID,
			&tag.TenantID,
			&tag.Name,
			&tag.Color,
			&tag.CreatedAt,
			&tag.UsageCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}
