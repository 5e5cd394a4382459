// Package storage defines the Storage interface: the contract any
// durable credential backend must satisfy to sit behind the credential
// directory.
//
// The directory only knows this interface. Switching from the YAML
// credential file to SQLite is a config change; tests can pass a fake.
package storage

import (
	"errors"

	"github.com/aanand-mishra/students-report/internal/types"
)

// Storage persists the ordered list of user profiles.
type Storage interface {
	// LoadProfiles returns every stored profile in insertion order.
	// A store that does not exist yet yields an empty, non-nil slice.
	LoadProfiles() ([]types.UserProfile, error)

	// SaveProfiles replaces the stored profiles with the given list.
	// Implementations must be atomic: when SaveProfiles returns an error
	// the previously stored state is intact, and a completed save is
	// never partially visible to readers.
	SaveProfiles(profiles []types.UserProfile) error
}

// ErrCorrupt is wrapped by backends when stored data cannot be decoded.
var ErrCorrupt = errors.New("credential store is corrupt")
