// Package config persists connection profiles under the user's baul
// directory. Secrets are never written to disk; each profile's secret key
// is resolved from the BAUL_SECRET_<ID> environment variable at load time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/baulhq/baul/internal/models"
)

const (
	dirName  = ".baul"
	fileName = "connections.yaml"
)

// connectionsFile is the on-disk document shape.
type connectionsFile struct {
	Connections []models.Connection `yaml:"connections"`
}

// Store loads and saves connection profiles. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	conns []models.Connection
}

// DefaultPath returns the connections file location, honouring the
// BAUL_CONFIG_DIR override.
func DefaultPath() (string, error) {
	if dir := os.Getenv("BAUL_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Load reads the store at path, creating an empty one when the file does
// not exist. Secrets are resolved from the environment for every profile.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc connectionsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i := range doc.Connections {
		doc.Connections[i].SecretKey = SecretFromEnv(doc.Connections[i].ID)
	}
	s.conns = doc.Connections
	return s, nil
}

// SecretFromEnv returns the secret key for a connection id, taken from
// BAUL_SECRET_<ID> with the id uppercased and dashes mapped to underscores.
func SecretFromEnv(id string) string {
	return os.Getenv("BAUL_SECRET_" + EnvSuffix(id))
}

// EnvSuffix maps a connection id to its environment variable suffix.
func EnvSuffix(id string) string {
	return strings.ToUpper(strings.ReplaceAll(id, "-", "_"))
}

// Save writes the profiles back to disk with owner-only permissions.
// Secret keys carry yaml:"-" and never reach the file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(connectionsFile{Connections: s.conns})
	if err != nil {
		return fmt.Errorf("encode connections: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Add inserts or replaces the profile with the same id and persists.
func (s *Store) Add(conn models.Connection) error {
	if conn.ID == "" {
		return fmt.Errorf("connection id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.conns {
		if s.conns[i].ID == conn.ID {
			s.conns[i] = conn
			replaced = true
			break
		}
	}
	if !replaced {
		s.conns = append(s.conns, conn)
	}
	return s.saveLocked()
}

// Remove deletes the profile with the given id and persists. Removing an
// unknown id is an error so CLI typos surface.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.conns {
		if s.conns[i].ID == id {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return s.saveLocked()
		}
	}
	return fmt.Errorf("connection %s not found", id)
}

// Get returns the profile with the given id.
func (s *Store) Get(id string) (models.Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conns {
		if c.ID == id {
			return c, true
		}
	}
	return models.Connection{}, false
}

// Connections returns a copy of all profiles.
func (s *Store) Connections() []models.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Connection, len(s.conns))
	copy(out, s.conns)
	return out
}
