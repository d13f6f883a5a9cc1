// Package bootstrap runs the start-up session check: one silent refresh,
// skipped on public candidate routes, after which the session stops loading.
package bootstrap

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Refresher performs the silent refresh.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// LoadingSetter is the part of the session store the sequencer writes to.
type LoadingSetter interface {
	SetLoading(loading bool)
}

// PublicChecker reports whether the current route is a public candidate route.
type PublicChecker interface {
	IsPublic() bool
}

// Sequencer runs the start-up sequence once.
type Sequencer struct {
	store    LoadingSetter
	gate     Refresher
	location PublicChecker

	once sync.Once
	done chan struct{}
	err  error
}

func New(store LoadingSetter, gate Refresher, location PublicChecker) *Sequencer {
	return &Sequencer{
		store:    store,
		gate:     gate,
		location: location,
		done:     make(chan struct{}),
	}
}

// Run performs the start-up sequence. Only the first call does anything;
// later calls wait for it and return its result. Loading is always marked
// complete, and the only error returned is ctx's.
func (s *Sequencer) Run(ctx context.Context) error {
	s.once.Do(func() {
		defer close(s.done)
		defer s.store.SetLoading(false)

		if s.location != nil && s.location.IsPublic() {
			log.Debug().Msg("Public route, skipping start-up refresh")
			return
		}
		token, err := s.gate.Refresh(ctx)
		if err != nil {
			s.err = err
			return
		}
		log.Debug().Bool("authenticated", token != "").Msg("Start-up refresh complete")
	})
	return s.err
}

// Done is closed once loading is complete.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}
