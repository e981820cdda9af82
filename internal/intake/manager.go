package intake

import "sync"

// Manager tracks at most one live intake session per chat. Telegram
// serializes updates within a chat, but the map is shared across chats, so
// access is guarded.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: map[int64]*Session{}}
}

// Start begins a fresh session for the chat, replacing any active one, and
// returns the first prompt. A /add during a running dialog restarts it.
func (m *Manager) Start(chatID int64) (*Session, Effect) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, eff := Start(chatID)
	m.sessions[chatID] = s
	return s, eff
}

// Get returns the active session for a chat, or nil.
func (m *Manager) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[chatID]
}

// Drop discards the session for a chat and reports whether one was active.
func (m *Manager) Drop(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[chatID]
	delete(m.sessions, chatID)
	return ok
}
