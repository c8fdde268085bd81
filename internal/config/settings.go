package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInsecureURL is returned for backend URLs that do not use https
var ErrInsecureURL = errors.New("die URL muss mit https:// beginnen")

// EnvAPIURL overrides the built-in backend URL
const EnvAPIURL = "RESORT_API_URL"

const (
	builtinAPIURL = "https://localhost:8000"
	settingsFile  = "settings.json"
	keyBackendURL = "resort_backend_url"
)

// DefaultAPIURL returns the backend URL used when nothing was saved
func DefaultAPIURL() string {
	return getEnv(EnvAPIURL, builtinAPIURL)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// NormalizeAPIURL trims the input, checks for an https:// prefix with a host
// and strips trailing slashes.
func NormalizeAPIURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "https://") || len(trimmed) == len("https://") {
		return "", fmt.Errorf("%q: %w", raw, ErrInsecureURL)
	}
	cleaned := strings.TrimRight(trimmed, "/")
	if cleaned == "https:" {
		return "", fmt.Errorf("%q: %w", raw, ErrInsecureURL)
	}
	return cleaned, nil
}

// SettingsStore persists user settings as a JSON key-value file. Reads are
// cached after the first load.
type SettingsStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	loaded bool
	err    error
}

// NewSettingsStore creates a store backed by path
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// GetSettingsPath returns the default settings file path
func GetSettingsPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "resort", settingsFile)
}

// Path returns the file backing the store
func (s *SettingsStore) Path() string {
	return s.path
}

// LoadError returns why the settings file could not be read, or nil. A
// missing file is not an error.
func (s *SettingsStore) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.err
}

// APIURL returns the saved backend URL, or DefaultAPIURL when none is saved
// or the file cannot be read.
func (s *SettingsStore) APIURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	if v := s.values[keyBackendURL]; v != "" {
		return v
	}
	return DefaultAPIURL()
}

// SetAPIURL validates, normalizes and saves the backend URL. It returns the
// stored value.
func (s *SettingsStore) SetAPIURL(raw string) (string, error) {
	cleaned, err := NormalizeAPIURL(raw)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()

	prev, had := s.values[keyBackendURL]
	s.values[keyBackendURL] = cleaned
	if err := s.saveLocked(); err != nil {
		if had {
			s.values[keyBackendURL] = prev
		} else {
			delete(s.values, keyBackendURL)
		}
		return "", err
	}
	return cleaned, nil
}

// ResetAPIURL removes the saved URL so DefaultAPIURL applies again
func (s *SettingsStore) ResetAPIURL() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	delete(s.values, keyBackendURL)
	return s.saveLocked()
}

func (s *SettingsStore) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.values = make(map[string]string)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.err = fmt.Errorf("failed to read settings file: %w", err)
		return
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		s.values = make(map[string]string)
		s.err = fmt.Errorf("failed to parse settings file: %w", err)
		return
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
}

func (s *SettingsStore) saveLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
