package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
)

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(session *models.Session) error
	GetByID(id string) (*models.Session, error)
	ListByTenant(tenantID string) ([]*models.Session, error)
	ListActive(tenantID string) ([]*models.Session, error)
	ListLive() ([]*models.Session, error)
	UpdateState(session *models.Session) error
	TouchActivity(id string, at int64) error
	Delete(id string) error
}

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a new session
func (r *sessionRepository) Create(session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	query := `
		INSERT INTO sessions (id, tenant_id, name, provider, status, phone_number, qr_code, last_activity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		session.ID,
		session.TenantID,
		session.Name,
		session.Provider,
		session.Status,
		session.PhoneNumber,
		session.QRCode,
		session.LastActivity,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by ID
func (r *sessionRepository) GetByID(id string) (*models.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	query := `
		SELECT id, tenant_id, name, provider, status, phone_number, qr_code, last_activity, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	session := &models.Session{}
	err := r.db.QueryRow(query, id).Scan(
		&session.ID,
		&session.TenantID,
		&session.Name,
		&session.Provider,
		&session.Status,
		&session.PhoneNumber,
		&session.QRCode,
		&session.LastActivity,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by ID: %w", err)
	}

	return session, nil
}

// ListByTenant retrieves all sessions owned by a tenant
func (r *sessionRepository) ListByTenant(tenantID string) ([]*models.Session, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID cannot be empty")
	}

	query := `
		SELECT id, tenant_id, name, provider, status, phone_number, qr_code, last_activity, created_at, updated_at
		FROM sessions
		WHERE tenant_id = ?
		ORDER BY created_at
	`

	return r.list(query, tenantID)
}

// ListActive retrieves the tenant's sessions that are currently connected
func (r *sessionRepository) ListActive(tenantID string) ([]*models.Session, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID cannot be empty")
	}

	query := `
		SELECT id, tenant_id, name, provider, status, phone_number, qr_code, last_activity, created_at, updated_at
		FROM sessions
		WHERE tenant_id = ? AND status = ?
		ORDER BY created_at
	`

	return r.list(query, tenantID, models.SessionConnected)
}

// ListLive retrieves every session, across tenants, that is not explicitly
// disconnected. Used to rebind gateway adapters after a restart.
func (r *sessionRepository) ListLive() ([]*models.Session, error) {
	query := `
		SELECT id, tenant_id, name, provider, status, phone_number, qr_code, last_activity, created_at, updated_at
		FROM sessions
		WHERE status != ?
		ORDER BY created_at
	`

	return r.list(query, models.SessionDisconnected)
}

func (r *sessionRepository) list(query string, args ...interface{}) ([]*models.Session, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		err := rows.Scan(
			&session.ID,
			&session.TenantID,
			&session.Name,
			&session.Provider,
			&session.Status,
			&session.PhoneNumber,
			&session.QRCode,
			&session.LastActivity,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// UpdateState writes the session's status, phone number, QR payload and
// activity timestamp back to the store
func (r *sessionRepository) UpdateState(session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	session.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE sessions
		SET status = ?, phone_number = ?, qr_code = ?, last_activity = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		session.Status,
		session.PhoneNumber,
		session.QRCode,
		session.LastActivity,
		session.UpdatedAt,
		session.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found")
	}

	return nil
}

// TouchActivity bumps the session's last-activity timestamp
func (r *sessionRepository) TouchActivity(id string, at int64) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	query := `UPDATE sessions SET last_activity = ?, updated_at = ? WHERE id = ?`

	_, err := r.db.Exec(query, at, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to touch session activity: %w", err)
	}

	return nil
}

// Delete removes a session. Deleting an unknown session is a no-op so the
// operation stays idempotent.
func (r *sessionRepository) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	query := `DELETE FROM sessions WHERE id = ?`

	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
