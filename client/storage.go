package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-blog-server/api"
)

// SessionStorage persists the current session between client runs.
// Load returns nil, nil when nothing is stored.
type SessionStorage interface {
	Load() (*api.Session, error)
	Save(session *api.Session) error
	Clear() error
}

// MemoryStorage keeps the session for the life of the process.
type MemoryStorage struct {
	lock    sync.RWMutex
	session *api.Session
}

var _ SessionStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load() (*api.Session, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	if ms.session == nil {
		return nil, nil
	}
	session := *ms.session
	return &session, nil
}

func (ms *MemoryStorage) Save(session *api.Session) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	stored := *session
	ms.session = &stored
	return nil
}

func (ms *MemoryStorage) Clear() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.session = nil
	return nil
}

// FileStorage keeps the session in a JSON file readable only by the current user.
type FileStorage struct {
	lock sync.Mutex
	path string
}

var _ SessionStorage = (*FileStorage)(nil)

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (fs *FileStorage) Load() (*api.Session, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStorage.Load] %w", err)
	}

	var session api.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("[FileStorage.Load] corrupt session file %s: %w", fs.path, err)
	}
	return &session, nil
}

func (fs *FileStorage) Save(session *api.Session) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStorage.Save] %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("[FileStorage.Save] %w", err)
	}

	// Write then rename so a crash never leaves a half written session
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("[FileStorage.Save] %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("[FileStorage.Save] %w", err)
	}
	return nil
}

func (fs *FileStorage) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[FileStorage.Clear] %w", err)
	}
	return nil
}
