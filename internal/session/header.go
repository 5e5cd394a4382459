package session

import (
	"net/http"
	"strings"
)

const (
	HeaderUser   = "X-Remote-User"
	HeaderStatus = "X-Auth-Status"
)

// Authenticator derives the session of an incoming request.
type Authenticator interface {
	Authenticate(r *http.Request) Session
}

// HeaderAuthenticator trusts identity headers set by the login proxy in
// front of the service. It must not be exposed to clients directly.
//
// X-Auth-Status may be "pending" or "rejected"; otherwise a non-empty
// X-Remote-User means the login was accepted.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) Session {
	s := New()

	status := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderStatus)))
	user := strings.TrimSpace(r.Header.Get(HeaderUser))
	if status == "" && user == "" {
		return s
	}

	s, _ = s.Begin()
	switch {
	case status == "pending":
		return s
	case status == "rejected" || user == "":
		s, _ = s.Reject()
		return s
	}
	s, _ = s.Accept(user)
	return s
}
