// Package credentials keeps the registry of dashboard users: an ordered
// mapping of username to profile with one protected administrator,
// persisted through a storage.Storage backend after every mutation.
//
// The administrator identity comes from configuration, never from the
// stored data, so editing the credential file cannot promote a user.
//
// There is no cross-process locking. Two processes saving the same
// backend concurrently are last-writer-wins; each completed save is
// still atomic.
package credentials

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-report/internal/storage"
	"github.com/aanand-mishra/students-report/internal/types"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrProtectedAccount = errors.New("the administrator account cannot be modified")
	ErrDuplicate        = errors.New("user already exists")
	ErrInvalidProfile   = errors.New("invalid user profile")
)

// LoadError wraps a failure to read the backing store.
type LoadError struct{ Err error }

func (e *LoadError) Error() string { return "load credentials: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// SaveError wraps a failure to persist the directory. The durable state
// is whatever it was before the failed save.
type SaveError struct{ Err error }

func (e *SaveError) Error() string { return "save credentials: " + e.Err.Error() }
func (e *SaveError) Unwrap() error { return e.Err }

// Option configures a Directory.
type Option func(*Directory)

// WithClock sets the time source used to stamp new registrations.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// Directory is the in-memory view of the credential store.
type Directory struct {
	store storage.Storage
	admin string
	now   func() time.Time

	mu       sync.RWMutex
	profiles []types.UserProfile
}

var validate = validator.New()

// Open loads the directory from store. admin names the protected
// administrator account.
func Open(store storage.Storage, admin string, opts ...Option) (*Directory, error) {
	d := &Directory{
		store: store,
		admin: admin,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload replaces the in-memory view with the durable state.
func (d *Directory) Reload() error {
	profiles, err := d.store.LoadProfiles()
	if err != nil {
		return &LoadError{Err: err}
	}

	d.mu.Lock()
	d.profiles = profiles
	d.mu.Unlock()
	return nil
}

// Save writes the in-memory view back to the store.
func (d *Directory) Save() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.persist(d.profiles)
}

// IsAdmin reports whether username is the configured administrator.
func (d *Directory) IsAdmin(username string) bool {
	return d.admin != "" && username == d.admin
}

// Admin returns the configured administrator username.
func (d *Directory) Admin() string { return d.admin }

// List returns a copy of every profile in storage order.
func (d *Directory) List() []types.UserProfile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.profiles)
}

// Count returns the number of registered users.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.profiles)
}

// Get returns the profile of username.
func (d *Directory) Get(username string) (types.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i := d.index(username)
	if i < 0 {
		return types.UserProfile{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	return d.profiles[i], nil
}

// Add registers a new user and persists the directory. A missing
// RegisteredAt is stamped with the current time.
func (d *Directory) Add(p types.UserProfile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index(p.Username) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, p.Username)
	}
	if p.RegisteredAt == nil {
		now := d.now()
		p.RegisteredAt = &now
	}

	next := append(slices.Clone(d.profiles), p)
	if err := d.persist(next); err != nil {
		return err
	}
	d.profiles = next
	return nil
}

// Remove deletes username and persists the directory. The administrator
// can never be removed.
func (d *Directory) Remove(username string) error {
	if d.IsAdmin(username) {
		return ErrProtectedAccount
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.index(username)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, username)
	}

	next := slices.Delete(slices.Clone(d.profiles), i, i+1)
	if err := d.persist(next); err != nil {
		return err
	}
	d.profiles = next
	return nil
}

// persist must be called with d.mu held.
func (d *Directory) persist(profiles []types.UserProfile) error {
	if err := d.store.SaveProfiles(profiles); err != nil {
		return &SaveError{Err: err}
	}
	return nil
}

func (d *Directory) index(username string) int {
	return slices.IndexFunc(d.profiles, func(p types.UserProfile) bool {
		return p.Username == username
	})
}
