// Package recent keeps the short list of candidates an operator searched for
// most recently.
package recent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
	"github.com/jrsteele09/bgv-gateway/storage"
)

const (
	// MaxEntries is how many searches are kept.
	MaxEntries = 5

	bucket = "recent"
	key    = "searches"
)

// NowTimeFunc stamps new entries; tests override it.
var NowTimeFunc = time.Now

// Entry is one remembered search.
type Entry struct {
	CandidateID   string    `json:"candidateId"`
	CandidateName string    `json:"candidateName"`
	CaseNumber    string    `json:"caseNumber,omitempty"`
	Organization  string    `json:"organization,omitempty"`
	SearchedAt    time.Time `json:"searchedAt"`
}

// List is a most-recent-first list of searches, deduplicated by candidate
// and capped at MaxEntries, persisted in a storage.KV.
type List struct {
	kv storage.KV
	mu sync.Mutex
}

func NewList(kv storage.KV) *List {
	return &List{kv: kv}
}

// Add puts e at the front, dropping any older entry for the same candidate
// and anything past MaxEntries.
func (l *List) Add(e Entry) error {
	if strings.TrimSpace(e.CandidateID) == "" {
		return fmt.Errorf("List.Add: candidate id is required: %w", gwerrors.ErrInvalidRequest)
	}
	if e.SearchedAt.IsZero() {
		e.SearchedAt = NowTimeFunc()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	updated := make([]Entry, 0, MaxEntries)
	updated = append(updated, e)
	for _, existing := range entries {
		if len(updated) == MaxEntries {
			break
		}
		if existing.CandidateID != e.CandidateID {
			updated = append(updated, existing)
		}
	}
	return l.save(updated)
}

// All returns the entries, most recent first.
func (l *List) All() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *List) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.kv.Delete(bucket, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("List.Clear: %w", err)
	}
	return nil
}

func (l *List) load() ([]Entry, error) {
	data, err := l.kv.Get(bucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("List.load: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("List.load: decoding: %w", err)
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	return entries, nil
}

func (l *List) save(entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("List.save: %w", err)
	}
	if err := l.kv.Put(bucket, key, data); err != nil {
		return fmt.Errorf("List.save: %w", err)
	}
	return nil
}
