package storage

import (
	"regexp"

	"luca-backend/internal/config"
	"luca-backend/pkg/logger"
)

// PreferenceStore keeps per-client UI preferences.
type PreferenceStore interface {
	Get(clientID string) (Preferences, error)
	Put(clientID string, prefs Preferences) (Preferences, error)
	Delete(clientID string) error

	Init() error
	Close() error
}

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateClientID(clientID string) error {
	if !clientIDPattern.MatchString(clientID) {
		return ErrInvalidClientID
	}
	return nil
}

// New builds the configured store, falling back to memory when the disk store
// cannot be initialized.
func New(cfg config.StorageConfig) PreferenceStore {
	var store PreferenceStore
	if cfg.Type == "disk" {
		store = NewDiskStorage(cfg.DataDir)
	} else {
		store = NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		store = NewMemoryStorage()
		_ = store.Init()
	}
	return store
}
