// Package session models the authentication status of one dashboard
// session. The login widget is an external collaborator: it drives the
// transitions, and handlers only read the result.
//
//	Unauthenticated -> Pending -> Authenticated(username)
//	                           -> Rejected
package session

import (
	"errors"
	"fmt"
)

// State is the authentication status of a session.
type State int

const (
	Unauthenticated State = iota
	Pending
	Authenticated
	Rejected
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a transition is not allowed from
// the current state.
var ErrInvalidTransition = errors.New("invalid session transition")

// Session is passed explicitly to whatever needs the caller's identity.
// The zero value is an unauthenticated session.
type Session struct {
	state    State
	username string
}

// New returns an unauthenticated session.
func New() Session { return Session{} }

// State returns the current state.
func (s Session) State() State { return s.state }

// Username is set only in the Authenticated state.
func (s Session) Username() string { return s.username }

// Authenticated reports whether the login succeeded.
func (s Session) Authenticated() bool { return s.state == Authenticated }

// Begin moves an unauthenticated session to Pending.
func (s Session) Begin() (Session, error) {
	if s.state != Unauthenticated {
		return s, fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.state)
	}
	return Session{state: Pending}, nil
}

// Accept completes a pending login for username.
func (s Session) Accept(username string) (Session, error) {
	if s.state != Pending {
		return s, fmt.Errorf("%w: accept from %s", ErrInvalidTransition, s.state)
	}
	if username == "" {
		return s, fmt.Errorf("%w: accept without a username", ErrInvalidTransition)
	}
	return Session{state: Authenticated, username: username}, nil
}

// Reject fails a pending login.
func (s Session) Reject() (Session, error) {
	if s.state != Pending {
		return s, fmt.Errorf("%w: reject from %s", ErrInvalidTransition, s.state)
	}
	return Session{state: Rejected}, nil
}

// Logout returns to Unauthenticated from any state.
func (s Session) Logout() Session { return Session{} }
