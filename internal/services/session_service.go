package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/db"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"
	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/providers"
	"github.com/fazendassa/crm-fazendas-sa-sub002/pkg/logger"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned when the session does not exist or
	// belongs to another tenant
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotBound is returned when an operation needs a connected
	// gateway and the session has none
	ErrSessionNotBound = errors.New("session is not bound to a connected gateway")
)

// AdapterFactory builds gateway adapters for sessions
type AdapterFactory interface {
	New(kind models.ProviderKind, sessionID string) (providers.Adapter, error)
}

// sessionBinding is the in-memory half of a session: its live adapter,
// its poller, and the timestamp of the last status observation applied.
type sessionBinding struct {
	adapter providers.Adapter
	cancel  context.CancelFunc

	mu           sync.Mutex
	lastObserved time.Time
}

// SessionService is the session registry. It owns the mapping from session
// IDs to live gateway adapters, drives the session state machine from
// polled and pushed status observations, and hands adapters out to the
// send and webhook paths.
type SessionService struct {
	repo         db.SessionRepository
	factory      AdapterFactory
	notifier     Notifier
	pollInterval time.Duration
	qrCache      *cache.Cache

	mu       sync.Mutex
	bindings map[string]*sessionBinding
}

// NewSessionService creates a session registry. A non-positive poll
// interval disables background status polling.
func NewSessionService(repo db.SessionRepository, factory AdapterFactory, notifier Notifier, pollInterval time.Duration) *SessionService {
	return &SessionService{
		repo:         repo,
		factory:      factory,
		notifier:     notifier,
		pollInterval: pollInterval,
		qrCache:      cache.New(20*time.Second, time.Minute),
		bindings:     make(map[string]*sessionBinding),
	}
}

// Restore rebinds adapters for every session that was live before a
// restart. Each poller will converge the stored status with the
// gateway's actual state.
func (s *SessionService) Restore() error {
	sessions, err := s.repo.ListLive()
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}

	for _, session := range sessions {
		adapter, err := s.factory.New(session.Provider, session.ID)
		if err != nil {
			logger.Error("Failed to rebind session adapter",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			continue
		}
		s.bind(session.ID, adapter)
	}

	logger.Info("Restored session bindings", zap.Int("count", len(sessions)))
	return nil
}

// Create registers a new session in the connecting state and binds a
// gateway adapter to it
func (s *SessionService) Create(tenantID string, req *models.CreateSessionRequest) (*models.Session, error) {
	if !models.ValidProviderKind(req.Provider) {
		return nil, fmt.Errorf("unknown provider: %s", req.Provider)
	}

	session := models.NewSession(tenantID, req.Name, req.Provider)

	adapter, err := s.factory.New(session.Provider, session.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(session); err != nil {
		return nil, err
	}

	s.bind(session.ID, adapter)
	if s.pollInterval > 0 {
		go s.warmQR(session.ID, adapter)
	}

	logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("tenant_id", tenantID),
		zap.String("provider", string(session.Provider)),
	)

	s.notifier.Notify(tenantID, Event{Type: EventSessionStatus, SessionID: session.ID})
	return session, nil
}

// Get retrieves a session scoped to the tenant; (nil, nil) when absent
func (s *SessionService) Get(tenantID, id string) (*models.Session, error) {
	session, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if session == nil || session.TenantID != tenantID {
		return nil, nil
	}
	return session, nil
}

// List returns all of the tenant's sessions
func (s *SessionService) List(tenantID string) ([]*models.Session, error) {
	return s.repo.ListByTenant(tenantID)
}

// ListActive returns the tenant's currently connected sessions
func (s *SessionService) ListActive(tenantID string) ([]*models.Session, error) {
	return s.repo.ListActive(tenantID)
}

// Delete tears down the binding and removes the session. Deleting an
// unknown session is a no-op.
func (s *SessionService) Delete(tenantID, id string) error {
	session, err := s.Get(tenantID, id)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	s.unbind(id)
	s.qrCache.Delete(id)

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	logger.Info("Session deleted",
		zap.String("session_id", id),
		zap.String("tenant_id", tenantID),
	)
	return nil
}

// Reconnect moves a disconnected or errored session back into the
// connecting state and rebinds its adapter. Reconnecting a session that
// is already live is a no-op.
func (s *SessionService) Reconnect(tenantID, id string) (*models.Session, error) {
	session, err := s.Get(tenantID, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.Status == models.SessionConnecting || session.Status == models.SessionConnected {
		return session, nil
	}
	if !session.CanTransitionTo(models.SessionConnecting) {
		return nil, fmt.Errorf("cannot reconnect session in status %s", session.Status)
	}

	session.Status = models.SessionConnecting
	session.PhoneNumber = nil
	session.QRCode = nil
	session.LastActivity = time.Now().Unix()
	if err := s.repo.UpdateState(session); err != nil {
		return nil, err
	}

	binding := s.binding(id)
	if binding == nil {
		adapter, err := s.factory.New(session.Provider, id)
		if err != nil {
			return nil, err
		}
		s.bind(id, adapter)
		binding = s.binding(id)
	}
	if s.pollInterval > 0 {
		go s.warmQR(id, binding.adapter)
	}

	logger.Info("Session reconnecting",
		zap.String("session_id", id),
		zap.String("tenant_id", tenantID),
	)

	s.notifier.Notify(tenantID, Event{Type: EventSessionStatus, SessionID: id})
	return session, nil
}

// QRCode returns the pairing QR payload for a connecting session. The
// payload is cached briefly so polling clients do not hammer the gateway.
func (s *SessionService) QRCode(ctx context.Context, tenantID, id string) (string, error) {
	session, err := s.Get(tenantID, id)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrSessionNotFound
	}
	if session.IsConnected() {
		return "", providers.ErrQRNotAvailable
	}

	if cached, found := s.qrCache.Get(id); found {
		return cached.(string), nil
	}

	binding := s.binding(id)
	if binding == nil {
		return "", ErrSessionNotBound
	}

	payload, err := binding.adapter.QRCode(ctx)
	if err != nil {
		return "", err
	}

	s.qrCache.Set(id, payload.Data, cache.DefaultExpiration)

	session.QRCode = &payload.Data
	if err := s.repo.UpdateState(session); err != nil {
		logger.Warn("Failed to persist QR payload", zap.String("session_id", id), zap.Error(err))
	}

	return payload.Data, nil
}

// ResolveAdapter returns the live adapter for a connected session. The
// send path goes through here so messages are never handed to a gateway
// that has no authenticated device behind it.
func (s *SessionService) ResolveAdapter(tenantID, id string) (providers.Adapter, *models.Session, error) {
	session, err := s.Get(tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}
	if !session.IsConnected() {
		return nil, nil, ErrSessionNotBound
	}

	binding := s.binding(id)
	if binding == nil {
		return nil, nil, ErrSessionNotBound
	}

	return binding.adapter, session, nil
}

// webhookAdapter resolves the adapter for inbound webhook traffic. Unlike
// the send path it accepts any bound session: webhooks arrive while a
// session is still connecting.
func (s *SessionService) webhookAdapter(id string) (providers.Adapter, *models.Session, error) {
	session, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}

	binding := s.binding(id)
	if binding == nil {
		return nil, nil, ErrSessionNotBound
	}

	return binding.adapter, session, nil
}

// TouchActivity bumps the session's last-activity timestamp
func (s *SessionService) TouchActivity(id string) {
	if err := s.repo.TouchActivity(id, time.Now().Unix()); err != nil {
		logger.Warn("Failed to touch session activity", zap.String("session_id", id), zap.Error(err))
	}
}

// ApplyStatus feeds one gateway status observation into the session state
// machine. Observations are ordered by their timestamp: a stale one that
// arrives after a newer one is discarded, so out-of-order poll responses
// cannot flap the session state.
func (s *SessionService) ApplyStatus(id string, status *providers.ConnectionStatus, observedAt time.Time) error {
	binding := s.binding(id)
	if binding == nil {
		return ErrSessionNotBound
	}

	binding.mu.Lock()
	defer binding.mu.Unlock()

	if !observedAt.After(binding.lastObserved) {
		return nil
	}
	binding.lastObserved = observedAt

	session, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	target := session.Status
	if status.Connected {
		// a connected session always has a phone number behind it, so
		// the transition waits until some observation carries one
		if status.PhoneNumber != "" || session.PhoneNumber != nil {
			target = models.SessionConnected
		}
	} else if session.Status == models.SessionConnected {
		// the device dropped off after being paired
		target = models.SessionDisconnected
	}

	changed := false
	if target != session.Status && session.CanTransitionTo(target) {
		session.Status = target
		changed = true
	}

	if session.IsConnected() {
		session.QRCode = nil
		s.qrCache.Delete(id)
		if status.PhoneNumber != "" && (session.PhoneNumber == nil || *session.PhoneNumber != status.PhoneNumber) {
			phone := status.PhoneNumber
			session.PhoneNumber = &phone
			changed = true
		}
	} else if session.PhoneNumber != nil {
		session.PhoneNumber = nil
		changed = true
	}

	if !changed {
		return nil
	}

	session.LastActivity = time.Now().Unix()
	if err := s.repo.UpdateState(session); err != nil {
		return err
	}

	logger.Info("Session status updated",
		zap.String("session_id", id),
		zap.String("status", string(session.Status)),
	)

	s.notifier.Notify(session.TenantID, Event{Type: EventSessionStatus, SessionID: id})
	return nil
}

// warmQR primes the QR cache right after a session starts connecting, so
// the first client poll does not pay the gateway round trip
func (s *SessionService) warmQR(id string, adapter providers.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload, err := adapter.QRCode(ctx)
	if err != nil {
		logger.Debug("QR warmup skipped", zap.String("session_id", id), zap.Error(err))
		return
	}
	s.qrCache.Set(id, payload.Data, cache.DefaultExpiration)
}

// markError pushes a session into the error state after a failed poll
func (s *SessionService) markError(id string) {
	session, err := s.repo.GetByID(id)
	if err != nil || session == nil {
		return
	}
	if !session.CanTransitionTo(models.SessionError) {
		return
	}

	session.Status = models.SessionError
	session.PhoneNumber = nil
	session.LastActivity = time.Now().Unix()
	if err := s.repo.UpdateState(session); err != nil {
		logger.Error("Failed to mark session errored", zap.String("session_id", id), zap.Error(err))
		return
	}

	s.notifier.Notify(session.TenantID, Event{Type: EventSessionStatus, SessionID: id})
}

// Close stops all pollers
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, binding := range s.bindings {
		if binding.cancel != nil {
			binding.cancel()
		}
		delete(s.bindings, id)
	}
}

func (s *SessionService) binding(id string) *sessionBinding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindings[id]
}

func (s *SessionService) bind(id string, adapter providers.Adapter) {
	binding := &sessionBinding{adapter: adapter}

	if s.pollInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		binding.cancel = cancel
		go s.pollLoop(ctx, id, adapter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.bindings[id]; ok && prev.cancel != nil {
		prev.cancel()
	}
	s.bindings[id] = binding
}

func (s *SessionService) unbind(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if binding, ok := s.bindings[id]; ok {
		if binding.cancel != nil {
			binding.cancel()
		}
		delete(s.bindings, id)
	}
}

func (s *SessionService) pollLoop(ctx context.Context, id string, adapter providers.Adapter) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observedAt := time.Now()
			status, err := adapter.Status(ctx)
			if err != nil {
				logger.Warn("Session status poll failed",
					zap.String("session_id", id),
					zap.Error(err),
				)
				s.markError(id)
				continue
			}
			if err := s.ApplyStatus(id, status, observedAt); err != nil && !errors.Is(err, ErrSessionNotBound) {
				logger.Error("Failed to apply session status",
					zap.String("session_id", id),
					zap.Error(err),
				)
			}
		}
	}
}
