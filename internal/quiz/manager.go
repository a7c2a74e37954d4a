package quiz

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns the live practice sessions of the process. Sessions exist
// only in memory and are evicted after sitting idle.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	loader  *Loader
	sink    Sink
	idleTTL time.Duration

	newRand func() *rand.Rand
	now     func() time.Time

	// background writes of every session started here, ended or not
	writes sync.WaitGroup
}

func NewManager(loader *Loader, sink Sink, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		loader:   loader,
		sink:     sink,
		idleTTL:  idleTTL,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		now: time.Now,
	}
}

// Start registers a new session and loads its pool. The session is
// visible in the loading phase while the reads are in flight.
func (m *Manager) Start(ctx context.Context, userID, chapterID string, revision bool) *Session {
	s := newSession(uuid.NewString(), userID, chapterID, revision, m.sink, m.newRand(), m.now)
	s.shared = &m.writes

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.Load(m.loader.LoadPool(ctx, chapterID, userID, revision))
	log.Printf("[quiz] session %s started: user=%s chapter=%s revision=%v phase=%s",
		s.ID, userID, chapterID, revision, s.Phase())
	return s
}

// Get returns the session if it exists and belongs to userID.
func (m *Manager) Get(id, userID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// End discards a session. Background writes it started keep running.
func (m *Manager) End(id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Run drives the session clocks until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("[quiz] Session clock started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[quiz] Session clock shutting down")
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Manager) tick() {
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()

	for _, s := range live {
		s.Tick()
	}
	m.evictIdle()
}

func (m *Manager) evictIdle() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("[quiz] evicted %d idle sessions", evicted)
	}
	return evicted
}

// Wait blocks until the background writes of every session started by the
// manager finish, including sessions already ended or evicted.
func (m *Manager) Wait() {
	m.writes.Wait()
}
