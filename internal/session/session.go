// Package session manages user sessions, each owning one document editor.
//
// Types:
//   - Session: Holds the editor of one user and when it was last used.
//   - SessionManager: Manages all active sessions.
//
// Expected outputs:
// - Session IDs are unique (UUID)
// - Every session has its own editor; nothing is shared between sessions
// - Sweep closes and removes sessions idle for longer than the TTL
//
// Used by API handlers to manage user state.
package session

import (
	"sync"
	"time"

	"go-signpdf/internal/editor"
	"go-signpdf/internal/utils"
)

type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
	Editor    *editor.Editor
	Mutex     sync.Mutex
}

type SessionManager struct {
	Sessions  map[string]*Session
	Mutex     sync.RWMutex
	newEditor func() *editor.Editor
	now       func() time.Time
}

// NewSessionManager creates sessions whose editors are built with opts.
func NewSessionManager(opts ...editor.Option) *SessionManager {
	return &SessionManager{
		Sessions:  make(map[string]*Session),
		newEditor: func() *editor.Editor { return editor.New(opts...) },
		now:       time.Now,
	}
}

func (sm *SessionManager) CreateSession() *Session {
	sm.Mutex.Lock()
	defer sm.Mutex.Unlock()

	now := sm.now()
	session := &Session{
		ID:        utils.GenerateUUID(),
		CreatedAt: now,
		LastSeen:  now,
		Editor:    sm.newEditor(),
	}
	sm.Sessions[session.ID] = session
	return session
}

// GetSession looks up a session and marks it as used.
func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	sm.Mutex.RLock()
	session, exists := sm.Sessions[id]
	sm.Mutex.RUnlock()
	if exists {
		session.Touch(sm.now())
	}
	return session, exists
}

func (sm *SessionManager) DeleteSession(id string) {
	sm.Mutex.Lock()
	session, exists := sm.Sessions[id]
	delete(sm.Sessions, id)
	sm.Mutex.Unlock()
	if exists {
		session.Cleanup()
	}
}

func (sm *SessionManager) Len() int {
	sm.Mutex.RLock()
	defer sm.Mutex.RUnlock()
	return len(sm.Sessions)
}

// Sweep removes sessions not used for longer than maxIdle and returns how
// many were removed.
func (sm *SessionManager) Sweep(maxIdle time.Duration) int {
	now := sm.now()
	var expired []*Session

	sm.Mutex.Lock()
	for id, session := range sm.Sessions {
		if now.Sub(session.lastSeen()) > maxIdle {
			expired = append(expired, session)
			delete(sm.Sessions, id)
		}
	}
	sm.Mutex.Unlock()

	for _, session := range expired {
		session.Cleanup()
	}
	return len(expired)
}

func (s *Session) Touch(t time.Time) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if t.After(s.LastSeen) {
		s.LastSeen = t
	}
}

func (s *Session) lastSeen() time.Time {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	return s.LastSeen
}

// Cleanup releases the document held by the session.
func (s *Session) Cleanup() {
	s.Editor.Close()
}
