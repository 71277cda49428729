package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// UserData holds user-specific settings that are stored locally
type UserData struct {
	// ConfirmDelete overrides explorer.confirm_delete once toggled in the UI
	ConfirmDelete *bool     `json:"confirm_delete,omitempty"`
	LastPath      string    `json:"last_path"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	path string
}

// LoadUserData loads user data from ~/.rbrowse/user.data
func LoadUserData() (*UserData, error) {
	userDataPath, err := getUserDataPath()
	if err != nil {
		return createDefaultUserData(""), nil
	}
	return LoadUserDataFrom(userDataPath), nil
}

// LoadUserDataFrom loads user data from path. A missing or corrupt file
// yields defaults.
func LoadUserDataFrom(path string) *UserData {
	data, err := os.ReadFile(path)
	if err != nil {
		return createDefaultUserData(path)
	}

	var userData UserData
	if err := json.Unmarshal(data, &userData); err != nil {
		// Invalid JSON, return default
		return createDefaultUserData(path)
	}
	userData.path = path
	return &userData
}

// SaveUserData saves user data to the file it was loaded from
func (ud *UserData) SaveUserData() error {
	if ud.path == "" {
		return nil
	}

	ud.UpdatedAt = time.Now()
	if ud.CreatedAt.IsZero() {
		ud.CreatedAt = ud.UpdatedAt
	}

	data, err := json.MarshalIndent(ud, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(ud.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(ud.path, data, 0644)
}

// createDefaultUserData creates a new UserData with default values
func createDefaultUserData(path string) *UserData {
	now := time.Now()
	return &UserData{
		CreatedAt: now,
		UpdatedAt: now,
		path:      path,
	}
}

// getUserDataPath returns the path to the user.data file
func getUserDataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".rbrowse", "user.data"), nil
}

// Settings is the settings registry consulted by the explorer. The
// confirm-before-delete flag falls back to the config default until the user
// toggles it.
type Settings struct {
	mu       sync.Mutex
	data     *UserData
	fallback bool
}

// NewSettings combines persisted user data with the configured defaults
func NewSettings(data *UserData, cfg ExplorerConfig) *Settings {
	if data == nil {
		data = createDefaultUserData("")
	}
	return &Settings{data: data, fallback: cfg.ConfirmDelete}
}

// ConfirmDelete reports whether deletes ask for confirmation
func (s *Settings) ConfirmDelete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.ConfirmDelete != nil {
		return *s.data.ConfirmDelete
	}
	return s.fallback
}

// SetConfirmDelete persists the confirm-before-delete choice
func (s *Settings) SetConfirmDelete(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ConfirmDelete = &on
	return s.data.SaveUserData()
}

// ToggleConfirmDelete flips the setting and returns the new value
func (s *Settings) ToggleConfirmDelete() (bool, error) {
	on := !s.ConfirmDelete()
	return on, s.SetConfirmDelete(on)
}

// LastPath is the directory the user was in when the browser last closed
func (s *Settings) LastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastPath
}

// SetLastPath remembers the current directory
func (s *Settings) SetLastPath(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.LastPath == p {
		return nil
	}
	s.data.LastPath = p
	return s.data.SaveUserData()
}
