// Package yamlfile stores user profiles in the YAML credential file
// shared with the login widget:
//
//	credentials:
//	  usernames:
//	    jsmith:
//	      name: John Smith
//	      email: jsmith@example.com
//	      password: $2b$12$...
//	      registration_date: "2024-03-01"
//
// The file is handled as a yaml.Node tree rather than decoded into
// structs, so keys this package does not own (password hashes, cookie
// settings, comments) and the order of users survive every save.
package yamlfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aanand-mishra/students-report/internal/storage"
	"github.com/aanand-mishra/students-report/internal/types"
)

const (
	keyCredentials = "credentials"
	keyUsernames   = "usernames"
	keyName        = "name"
	keyEmail       = "email"
	keyRegistered  = "registration_date"
)

// dateLayouts are tried in order when reading registration_date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// File is a storage.Storage backed by one YAML file.
type File struct {
	path string
}

var _ storage.Storage = (*File)(nil)

// New returns a File store for path. The file need not exist yet.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the credential file location.
func (f *File) Path() string { return f.path }

// LoadProfiles reads credentials.usernames in file order.
func (f *File) LoadProfiles() ([]types.UserProfile, error) {
	root, err := f.readRoot()
	if err != nil {
		return nil, err
	}

	profiles := make([]types.UserProfile, 0)
	users := lookup(lookup(root, keyCredentials), keyUsernames)
	if users == nil {
		return profiles, nil
	}
	if users.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("yamlfile.LoadProfiles: %s.%s is not a mapping: %w", keyCredentials, keyUsernames, storage.ErrCorrupt)
	}

	for i := 0; i+1 < len(users.Content); i += 2 {
		username := users.Content[i].Value
		entry := users.Content[i+1]
		if entry.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("yamlfile.LoadProfiles: user %q is not a mapping: %w", username, storage.ErrCorrupt)
		}

		p := types.UserProfile{
			Username:    username,
			DisplayName: scalar(lookup(entry, keyName)),
			Email:       scalar(lookup(entry, keyEmail)),
		}
		if t, ok := parseDate(scalar(lookup(entry, keyRegistered))); ok {
			p.RegisteredAt = &t
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// SaveProfiles rewrites credentials.usernames to hold exactly profiles,
// in the given order. Existing user entries, keys included, are updated
// in place so their other keys and comments are kept. The file is
// replaced atomically.
func (f *File) SaveProfiles(profiles []types.UserProfile) error {
	doc, err := f.readDocument()
	if err != nil {
		return err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		doc = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{newMapping()}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("yamlfile.SaveProfiles: document root is not a mapping: %w", storage.ErrCorrupt)
	}

	creds := ensureMapping(root, keyCredentials)
	users := ensureMapping(creds, keyUsernames)
	if creds == nil || users == nil {
		return fmt.Errorf("yamlfile.SaveProfiles: %s.%s is not a mapping: %w", keyCredentials, keyUsernames, storage.ErrCorrupt)
	}

	content := make([]*yaml.Node, 0, 2*len(profiles))
	for _, p := range profiles {
		key, entry := lookupPair(users, p.Username)
		if key == nil {
			key = newString(p.Username)
		}
		if entry == nil || entry.Kind != yaml.MappingNode {
			entry = newMapping()
		}
		setScalar(entry, keyName, p.DisplayName)
		setScalar(entry, keyEmail, p.Email)
		if p.RegisteredAt != nil {
			existing, ok := parseDate(scalar(lookup(entry, keyRegistered)))
			if !ok || !existing.Equal(*p.RegisteredAt) {
				setScalar(entry, keyRegistered, formatDate(*p.RegisteredAt))
			}
		}
		content = append(content, key, entry)
	}
	users.Content = content

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("yamlfile.SaveProfiles: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("yamlfile.SaveProfiles: encode: %w", err)
	}

	return writeAtomic(f.path, buf.Bytes())
}

func (f *File) readDocument() (*yaml.Node, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &yaml.Node{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("yamlfile: read %s: %w", f.path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yamlfile: decode %s: %w", f.path, errors.Join(storage.ErrCorrupt, err))
	}
	return &doc, nil
}

func (f *File) readRoot() (*yaml.Node, error) {
	doc, err := f.readDocument()
	if err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("yamlfile: %s: document root is not a mapping: %w", f.path, storage.ErrCorrupt)
	}
	return root, nil
}

// writeAtomic replaces path with data via a temp file in the same
// directory, so a failed write leaves the previous file untouched.
func writeAtomic(path string, data []byte) (err error) {
	mode := os.FileMode(0o600)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("yamlfile: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("yamlfile: write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("yamlfile: sync temp file: %w", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("yamlfile: chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("yamlfile: close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("yamlfile: replace %s: %w", path, err)
	}
	return nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	_, v := lookupPair(m, key)
	return v
}

// lookupPair returns both nodes of the key/value pair for key. Keeping
// the key node keeps its comments and tag.
func lookupPair(m *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i], m.Content[i+1]
		}
	}
	return nil, nil
}

// ensureMapping returns the mapping under key, creating it when absent
// or null. It returns nil if key holds some other kind of node.
func ensureMapping(m *yaml.Node, key string) *yaml.Node {
	if m == nil {
		return nil
	}
	v := lookup(m, key)
	switch {
	case v == nil:
		v = newMapping()
		m.Content = append(m.Content, newString(key), v)
	case v.Kind == yaml.ScalarNode && v.Tag == "!!null":
		*v = *newMapping()
	case v.Kind != yaml.MappingNode:
		return nil
	}
	return v
}

func setScalar(m *yaml.Node, key, value string) {
	v := lookup(m, key)
	if v == nil {
		m.Content = append(m.Content, newString(key), newString(value))
		return
	}
	if v.Kind == yaml.ScalarNode && v.Value == value {
		return
	}
	*v = *newString(value)
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatDate writes date-only values the way the login widget does and
// keeps the full timestamp otherwise.
func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
