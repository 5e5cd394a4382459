package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-report/internal/storage/yamlfile"
	"github.com/aanand-mishra/students-report/internal/types"
)

const adminUser = "sebomaro2103"

const credentialsYAML = `credentials:
  usernames:
    sebomaro2103:
      email: admin@example.com
      name: Sebastian
      password: $2b$12$adminhash
    jsmith:
      email: jsmith@example.com
      name: John Smith
      password: $2b$12$jsmithhash
      registration_date: "2024-03-01"
    rbriggs:
      email: rbriggs@example.com
      name: Rebecca Briggs
      password: $2b$12$rbriggshash
`

// memStore is a storage.Storage that can be told to fail.
type memStore struct {
	profiles []types.UserProfile
	saves    int
	failSave error
	failLoad error
}

func (m *memStore) LoadProfiles() ([]types.UserProfile, error) {
	if m.failLoad != nil {
		return nil, m.failLoad
	}
	return append([]types.UserProfile(nil), m.profiles...), nil
}

func (m *memStore) SaveProfiles(p []types.UserProfile) error {
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	m.profiles = append([]types.UserProfile(nil), p...)
	return nil
}

func openFile(t *testing.T) (*Directory, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(credentialsYAML), 0o600))

	d, err := Open(yamlfile.New(path), adminUser)
	require.NoError(t, err)
	return d, path
}

func usernames(ps []types.UserProfile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Username)
	}
	return out
}

func TestListKeepsStorageOrder(t *testing.T) {
	d, _ := openFile(t)

	assert.Equal(t, []string{adminUser, "jsmith", "rbriggs"}, usernames(d.List()))
	assert.Equal(t, 3, d.Count())
}

func TestIsAdmin(t *testing.T) {
	d, _ := openFile(t)

	assert.True(t, d.IsAdmin(adminUser))
	assert.False(t, d.IsAdmin("jsmith"))
	assert.False(t, d.IsAdmin(""))

	noAdmin, err := Open(&memStore{}, "")
	require.NoError(t, err)
	assert.False(t, noAdmin.IsAdmin(""))
}

func TestRemoveAdminIsRejected(t *testing.T) {
	d, path := openFile(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = d.Remove(adminUser)
	assert.ErrorIs(t, err, ErrProtectedAccount)
	assert.Equal(t, 3, d.Count())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRemoveAdminIsRejectedEvenWhenNotStored(t *testing.T) {
	d, err := Open(&memStore{}, "ghost")
	require.NoError(t, err)
	assert.ErrorIs(t, d.Remove("ghost"), ErrProtectedAccount)
}

func TestRemovePersists(t *testing.T) {
	d, path := openFile(t)

	require.NoError(t, d.Remove("jsmith"))
	assert.Equal(t, []string{adminUser, "rbriggs"}, usernames(d.List()))

	reopened, err := Open(yamlfile.New(path), adminUser)
	require.NoError(t, err)
	assert.Equal(t, []string{adminUser, "rbriggs"}, usernames(reopened.List()))
}

func TestRemoveUnknown(t *testing.T) {
	d, _ := openFile(t)

	err := d.Remove("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 3, d.Count())
}

func TestRemoveSaveFailureKeepsMemoryState(t *testing.T) {
	store := &memStore{profiles: []types.UserProfile{{Username: adminUser}, {Username: "bob"}}}
	d, err := Open(store, adminUser)
	require.NoError(t, err)

	store.failSave = errors.New("disk full")
	err = d.Remove("bob")

	var se *SaveError
	require.ErrorAs(t, err, &se)
	assert.EqualError(t, err, "save credentials: disk full")
	assert.Equal(t, []string{adminUser, "bob"}, usernames(d.List()))
}

func TestAdd(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	store := &memStore{profiles: []types.UserProfile{{Username: adminUser}}}
	d, err := Open(store, adminUser, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	require.NoError(t, d.Add(types.UserProfile{Username: "ana", DisplayName: "Ana", Email: "ana@example.com"}))

	got, err := d.Get("ana")
	require.NoError(t, err)
	require.NotNil(t, got.RegisteredAt)
	assert.Equal(t, fixed, *got.RegisteredAt)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, []string{adminUser, "ana"}, usernames(store.profiles))
}

func TestAddRejects(t *testing.T) {
	store := &memStore{profiles: []types.UserProfile{{Username: adminUser}}}
	d, err := Open(store, adminUser)
	require.NoError(t, err)

	assert.ErrorIs(t, d.Add(types.UserProfile{Username: adminUser}), ErrDuplicate)
	assert.ErrorIs(t, d.Add(types.UserProfile{DisplayName: "no username"}), ErrInvalidProfile)
	assert.ErrorIs(t, d.Add(types.UserProfile{Username: "x", Email: "not-an-email"}), ErrInvalidProfile)
	assert.Equal(t, 0, store.saves)

	store.failSave = errors.New("read-only")
	assert.ErrorAs(t, d.Add(types.UserProfile{Username: "y"}), new(*SaveError))
	assert.Equal(t, 1, d.Count())
}

func TestGetUnknown(t *testing.T) {
	d, _ := openFile(t)
	_, err := d.Get("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenLoadError(t *testing.T) {
	_, err := Open(&memStore{failLoad: errors.New("boom")}, adminUser)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.EqualError(t, err, "load credentials: boom")
}

func TestSaveRoundTrip(t *testing.T) {
	d, path := openFile(t)
	require.NoError(t, d.Save())

	reopened, err := Open(yamlfile.New(path), adminUser)
	require.NoError(t, err)
	assert.Equal(t, d.List(), reopened.List())
}

func TestListReturnsCopy(t *testing.T) {
	d, _ := openFile(t)
	list := d.List()
	list[0].Username = "mutated"

	assert.Equal(t, adminUser, d.List()[0].Username)
}
