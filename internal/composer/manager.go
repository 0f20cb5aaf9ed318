package composer

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pwoszkowski/macrospy/internal/service"
)

const (
	defaultIdleTTL    = 30 * time.Minute
	defaultResetDelay = 2 * time.Second
	sweepInterval     = time.Minute
)

// Manager owns the live composition sessions. Sessions are in-memory only:
// they exist between dialog open and save/cancel and are swept after idling.
type Manager struct {
	gateway Gateway
	meals   MealStore
	photos  service.PhotoStore

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	idleTTL    time.Duration
	resetDelay time.Duration
	done       chan struct{}
	sweepOnce  sync.Once
}

// NewManager creates a session manager and starts its idle sweeper. The photo
// store may be nil when no bucket is configured.
func NewManager(gateway Gateway, meals MealStore, photos service.PhotoStore) *Manager {
	m := &Manager{
		gateway:    gateway,
		meals:      meals,
		photos:     photos,
		sessions:   make(map[uuid.UUID]*Session),
		idleTTL:    defaultIdleTTL,
		resetDelay: defaultResetDelay,
		done:       make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Open creates a new idle session owned by userID.
func (m *Manager) Open(userID uuid.UUID) *Session {
	s := newSession(userID, m.gateway, m.meals, m.photos, m.resetDelay)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session, or nil when it does not exist or belongs to a
// different user.
func (m *Manager) Get(id, userID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil
	}
	return s
}

// Close cancels and removes a session. Unless force is set, a session still
// holding an unsaved candidate is kept and ErrUnsavedCandidate is returned so
// the caller can ask for confirmation. Returns false when no such session
// exists for this user.
func (m *Manager) Close(id, userID uuid.UUID, force bool) (bool, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		m.mu.Unlock()
		return false, nil
	}
	m.mu.Unlock()

	if !force && s.HasUnsavedCandidate() {
		return true, ErrUnsavedCandidate
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	s.close()
	return true, nil
}

// Stop terminates the sweeper and tears down every remaining session.
func (m *Manager) Stop() {
	m.sweepOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.close()
		delete(m.sessions, id)
	}
}

func (m *Manager) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.idleTTL)

			m.mu.Lock()
			var expired []*Session
			for id, s := range m.sessions {
				if s.idleSince().Before(cutoff) {
					expired = append(expired, s)
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()

			for _, s := range expired {
				log.Printf("composer session %s expired after %v idle", s.ID, m.idleTTL)
				s.close()
			}
		}
	}
}
