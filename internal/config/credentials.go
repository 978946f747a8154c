package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const credentialsFile = "agency-crm/supabase.json"

// Credentials are the store settings saved by the first-run setup.
type Credentials struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// CredentialsPath returns the XDG config location of the setup file.
func CredentialsPath() string {
	return filepath.Join(xdg.ConfigHome, credentialsFile)
}

// LoadCredentials reads the setup file. A missing file returns nil, nil.
func LoadCredentials(path string) (*Credentials, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode credentials %s: %w", path, err)
	}
	if c.URL == "" || c.Key == "" {
		return nil, nil
	}
	return &c, nil
}

// SaveCredentials writes the setup file readable by the owner only.
func SaveCredentials(path string, c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Apply makes saved credentials take precedence over the environment and
// reports which source the store settings come from ("file", "env" or "").
func (c *Config) Apply(saved *Credentials) string {
	if saved != nil {
		c.SupabaseURL = saved.URL
		c.SupabaseKey = saved.Key
		return "file"
	}
	if len(c.MissingStore()) == 0 {
		return "env"
	}
	return ""
}
