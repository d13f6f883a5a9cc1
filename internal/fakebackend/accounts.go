package fakebackend

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/bgv-gateway/users"
	"golang.org/x/crypto/bcrypt"
)

var errAccountNotFound = errors.New("not found")

type account struct {
	profile      users.Profile
	passwordHash string
}

// accounts is the fake backend's user directory.
type accounts struct {
	byID     map[string]*account
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func newAccounts() *accounts {
	return &accounts{
		byID:     make(map[string]*account),
		emailIds: make(map[string]string),
	}
}

func (a *accounts) upsert(profile users.Profile, password string) (users.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return users.Profile{}, err
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	a.byID[profile.ID] = &account{profile: profile, passwordHash: string(hash)}
	a.emailIds[profile.Email] = profile.ID
	return profile, nil
}

func (a *accounts) getByEmail(email string) (*account, error) {
	a.lock.RLock()
	defer a.lock.RUnlock()

	id, ok := a.emailIds[email]
	if !ok {
		return nil, errAccountNotFound
	}
	return a.byID[id], nil
}

func (a *accounts) getByID(id string) (*account, error) {
	a.lock.RLock()
	defer a.lock.RUnlock()

	acc, ok := a.byID[id]
	if !ok {
		return nil, errAccountNotFound
	}
	return acc, nil
}

func (acc *account) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)) == nil
}
