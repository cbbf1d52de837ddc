// Package config provides keychain integration for build stats store credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/zalando/go-keyring"

	"github.com/fluxbase-eu/buildtrace/internal/config"
)

const (
	// ServiceName is the keychain service identifier
	ServiceName = "buildtrace"
)

// Credential keys accepted by Set
const (
	KeyS3AccessKey = "s3_access_key"
	KeyS3SecretKey = "s3_secret_key"
	KeyRedisURL    = "redis_url"
	KeyPostgresDSN = "postgres_dsn"
)

// Keys lists the credential keys in display order
var Keys = []string{KeyS3AccessKey, KeyS3SecretKey, KeyRedisURL, KeyPostgresDSN}

// Credentials are the stats store secrets of one project
type Credentials struct {
	S3AccessKey string `json:"s3_access_key,omitempty"`
	S3SecretKey string `json:"s3_secret_key,omitempty"`
	RedisURL    string `json:"redis_url,omitempty"`
	PostgresDSN string `json:"postgres_dsn,omitempty"`
}

// Set assigns the credential named key
func (c *Credentials) Set(key, value string) error {
	switch key {
	case KeyS3AccessKey:
		c.S3AccessKey = value
	case KeyS3SecretKey:
		c.S3SecretKey = value
	case KeyRedisURL:
		c.RedisURL = value
	case KeyPostgresDSN:
		c.PostgresDSN = value
	default:
		return fmt.Errorf("unknown credential key: %s (valid: %v)", key, Keys)
	}
	return nil
}

// KeychainStore stores credentials in the system keychain
type KeychainStore struct {
	serviceName string
}

// NewKeychainStore creates a new keychain store
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{
		serviceName: ServiceName,
	}
}

// IsAvailable checks if keychain is available on this system
func (k *KeychainStore) IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		// Linux requires a secret service (like gnome-keyring)
		err := keyring.Set(k.serviceName, "__test__", "test")
		if err != nil {
			return false
		}
		_ = keyring.Delete(k.serviceName, "__test__")
		return true
	default:
		return false
	}
}

// Save stores the credentials of project in keychain
func (k *KeychainStore) Save(project string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := keyring.Set(k.serviceName, project, string(data)); err != nil {
		return fmt.Errorf("failed to save to keychain: %w", err)
	}

	return nil
}

// Load retrieves the credentials of project, or nil when none are stored
func (k *KeychainStore) Load(project string) (*Credentials, error) {
	data, err := keyring.Get(k.serviceName, project)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load from keychain: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	return &creds, nil
}

// Delete removes the credentials of project from keychain
func (k *KeychainStore) Delete(project string) error {
	err := keyring.Delete(k.serviceName, project)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}
	return nil
}

// NeedsCredentials reports whether the stats backend reads secrets
func NeedsCredentials(cfg config.BuildStatsConfig) bool {
	switch cfg.Backend {
	case "s3", "redis", "postgres":
		return true
	default:
		return false
	}
}

// ResolveCredentials fills the empty secrets of cfg from the keychain entry
// of cfg.ProjectKey. Values already set in the config or environment win.
func ResolveCredentials(k *KeychainStore, cfg *config.BuildStatsConfig) error {
	creds, err := k.Load(cfg.ProjectKey)
	if err != nil || creds == nil {
		return err
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&cfg.S3.AccessKey, creds.S3AccessKey)
	fill(&cfg.S3.SecretKey, creds.S3SecretKey)
	fill(&cfg.RedisURL, creds.RedisURL)
	fill(&cfg.PostgresDSN, creds.PostgresDSN)
	return nil
}
