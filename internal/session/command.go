package session

import (
	"context"

	"github.com/podlens/podlens/internal/api"
)

// command is one server-backed operation: preconditions and the optimistic
// mutation run under the session lock, the network call runs outside it,
// and exactly one of commit or rollback runs once the call resolves.
type command struct {
	pre        func() error
	optimistic func()
	call       func(ctx context.Context) error
	commit     func()
	rollback   func()
}

// run executes a command under the single-flight guard. Only one command
// may be outstanding at a time; a second caller gets ErrBusy without any
// state change.
func (s *Session) run(ctx context.Context, cmd command) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	if cmd.pre != nil {
		if err := cmd.pre(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.inFlight = true
	if cmd.optimistic != nil {
		cmd.optimistic()
	}
	s.mu.Unlock()

	err := cmd.call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		if cmd.rollback != nil {
			cmd.rollback()
		}
		s.applyError(err)
		return err
	}

	s.lastError = ""
	if cmd.commit != nil {
		cmd.commit()
	}
	return nil
}

// applyError records the user-visible message and handles the one error
// that changes the quota model: a 429 zeroes the query counter and parks
// the session in the terminal rate-limited state.
func (s *Session) applyError(err error) {
	if api.IsRateLimited(err) {
		s.queriesRemaining = 0
		s.state = StateRateLimited
	}
	s.lastError = api.UserMessage(err)
}
