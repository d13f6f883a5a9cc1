package sessions

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/bgv-gateway/internal/utils"
	"github.com/jrsteele09/bgv-gateway/token"
	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/rs/zerolog/log"
)

// Observer is notified with the new snapshot after every mutation.
type Observer func(Session)

// Store owns the gateway's single Session. All mutation goes through
// SetAuthData, SetUser, SetLoading and Clear, so the claims derived from a
// token can never disagree with the token held.
type Store struct {
	notifyMu  sync.Mutex // held across mutate and notify so observers see mutations in order
	mu        sync.RWMutex
	session   Session
	observers map[int]Observer
	nextID    int
}

// NewStore returns an empty store that is still loading.
func NewStore() *Store {
	return &Store{
		session:   Session{Loading: true},
		observers: make(map[int]Observer),
	}
}

// SetAuthData decodes raw and stores it together with its derived claims.
// If raw cannot be decoded the whole session is cleared.
func (s *Store) SetAuthData(raw string) error {
	claims, err := token.Decode(raw)
	if err != nil {
		log.Warn().Err(err).Msg("Access token could not be decoded, clearing session")
		s.Clear()
		return fmt.Errorf("Store.SetAuthData: %w", err)
	}

	s.update(func(sess *Session) {
		sess.AccessToken = raw
		sess.LoggedInRole = utils.PtrOrNil(claims.ActiveRole)
		sess.UserType = utils.PtrOrNil(claims.UserType)
		sess.TokenType = utils.PtrOrNil(claims.TokenType)
	})
	return nil
}

// SetUser stores the profile of the logged in user.
func (s *Store) SetUser(profile *users.Profile) {
	s.update(func(sess *Session) {
		if profile == nil {
			sess.User = nil
			return
		}
		p := *profile
		sess.User = &p
	})
}

// SetLoading marks whether the bootstrap sequence is still running.
func (s *Store) SetLoading(loading bool) {
	s.update(func(sess *Session) {
		sess.Loading = loading
	})
}

// Clear wipes the token, every derived claim and the user profile in one update.
func (s *Store) Clear() {
	s.update(func(sess *Session) {
		sess.AccessToken = ""
		sess.LoggedInRole = nil
		sess.UserType = nil
		sess.TokenType = nil
		sess.User = nil
	})
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.clone()
}

// AccessToken returns the raw token currently held, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// Subscribe registers fn for change notifications and returns a function that
// removes it. Observers run on the mutating goroutine, one mutation at a time
// and in mutation order. They may read from the store and unsubscribe, but
// must not mutate it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) update(mutate func(*Session)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	mutate(&s.session)
	snapshot := s.session.clone()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snapshot)
	}
}
