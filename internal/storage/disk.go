package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"luca-backend/pkg/logger"
)

// DiskStorage writes one JSON file per client under <dataDir>/preferences and
// keeps a read-through cache of everything it has loaded.
type DiskStorage struct {
	dataDir string
	mu      sync.RWMutex
	cache   map[string]Preferences
	now     func() time.Time
}

func NewDiskStorage(dataDir string) *DiskStorage {
	return &DiskStorage{
		dataDir: dataDir,
		cache:   make(map[string]Preferences),
		now:     time.Now,
	}
}

func (d *DiskStorage) Init() error {
	if err := os.MkdirAll(d.prefsDir(), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	entries, err := os.ReadDir(d.prefsDir())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		clientID := e.Name()[:len(e.Name())-len(".json")]
		p, err := d.loadFromFile(clientID)
		if err != nil {
			logger.Errorf("Failed to load preferences %s: %v", clientID, err)
			continue
		}
		d.cache[clientID] = p
	}

	logger.Infof("Disk storage initialized with %d preference files", len(d.cache))
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

func (d *DiskStorage) prefsDir() string {
	return filepath.Join(d.dataDir, "preferences")
}

func (d *DiskStorage) pathFor(clientID string) string {
	return filepath.Join(d.prefsDir(), clientID+".json")
}

func (d *DiskStorage) loadFromFile(clientID string) (Preferences, error) {
	data, err := os.ReadFile(d.pathFor(clientID))
	if err != nil {
		return Preferences{}, err
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return p, nil
}

func (d *DiskStorage) saveToFile(clientID string, p Preferences) error {
	path := d.pathFor(clientID)
	tempPath := path + ".tmp"

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskStorage) Get(clientID string) (Preferences, error) {
	if err := validateClientID(clientID); err != nil {
		return Preferences{}, err
	}

	d.mu.RLock()
	p, ok := d.cache[clientID]
	d.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := d.loadFromFile(clientID)
	if errors.Is(err, fs.ErrNotExist) {
		return Preferences{}, ErrPreferencesNotFound
	}
	if err != nil {
		return Preferences{}, err
	}

	d.mu.Lock()
	d.cache[clientID] = p
	d.mu.Unlock()
	return p, nil
}

func (d *DiskStorage) Put(clientID string, prefs Preferences) (Preferences, error) {
	if err := validateClientID(clientID); err != nil {
		return Preferences{}, err
	}
	prefs, err := prefs.Normalize()
	if err != nil {
		return Preferences{}, err
	}
	prefs.UpdatedAt = d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.saveToFile(clientID, prefs); err != nil {
		return Preferences{}, err
	}
	d.cache[clientID] = prefs
	return prefs, nil
}

func (d *DiskStorage) Delete(clientID string) error {
	if err := validateClientID(clientID); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.pathFor(clientID))
	if errors.Is(err, fs.ErrNotExist) {
		if _, cached := d.cache[clientID]; !cached {
			return ErrPreferencesNotFound
		}
	} else if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	delete(d.cache, clientID)
	return nil
}
