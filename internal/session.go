package gsp

import (
	"sync"
	"time"

	"github.com/lanterndev/google-signin/internal/provider"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Session states
const (
	StatePending = "pending"
	StateReady   = "ready"
	StateFailed  = "failed"
)

// Session holds the server side state for one signed-in browser
type Session struct {
	ID       string
	Provider string
	Token    string
	Created  time.Time

	mu    sync.RWMutex
	state string
	user  provider.User
}

// Status returns the current fetch state and user snapshot
func (s *Session) Status() (string, provider.User) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.user
}

// SetUser marks the session ready with the given user
func (s *Session) SetUser(user provider.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.state = StateReady
}

// Fail marks the session failed
func (s *Session) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
}

// SessionStore holds active sessions for their configured lifetime
type SessionStore struct {
	cache *cache.Cache
}

// NewSessionStore creates a session store expiring entries after lifetime
func NewSessionStore(lifetime time.Duration) *SessionStore {
	return &SessionStore{
		cache: cache.New(lifetime, 10*time.Minute),
	}
}

// New creates and stores a pending session for the given provider token
func (s *SessionStore) New(providerName, token string) (*Session, error) {
	id, err := Nonce()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:       id,
		Provider: providerName,
		Token:    token,
		Created:  time.Now(),
		state:    StatePending,
	}
	s.cache.SetDefault(id, session)

	return session, nil
}

// Get returns the session with the given id, if it exists
func (s *SessionStore) Get(id string) (*Session, bool) {
	value, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	return value.(*Session), true
}

// Delete removes the session with the given id
func (s *SessionStore) Delete(id string) {
	s.cache.Delete(id)
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}

// FetchUser resolves the session token into a user profile. It is run in
// its own goroutine after the code exchange, the session stays pending
// until it returns.
func (s *SessionStore) FetchUser(session *Session, p provider.Provider) {
	logger := log.WithFields(logrus.Fields{
		"provider": session.Provider,
		"session":  session.ID,
	})

	user, err := p.GetUser(session.Token)
	if err != nil {
		logger.Errorf("Error getting user: %v", err)
		session.Fail()
		return
	}

	// Validate user
	if !ValidateEmail(user.Email) {
		logger.WithFields(logrus.Fields{
			"email": user.Email,
		}).Errorf("Invalid email")
		session.Fail()
		return
	}

	session.SetUser(user)
	logger.WithFields(logrus.Fields{
		"email": user.Email,
	}).Infof("Fetched user details")
}
