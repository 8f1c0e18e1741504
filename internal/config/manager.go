package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current configuration and reloads it when the file changes.
// Readers call GetConfig per use, so a reload takes effect on the next session.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	onReload []func(*Config)
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
}

// NewManager loads the config at path, or at GetConfigPath when path is empty.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	config, err := LoadFile(path)
	if err != nil {
		logger.Errorf("failed to load initial configuration: %v", err)
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Debugf("initialized from %s", path)
	return &Manager{config: config, path: path}, nil
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	configCopy.Transcription.Keywords = append([]string(nil), m.config.Transcription.Keywords...)
	return &configCopy
}

// OnReload registers fn to run after each successful reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	m.onReload = append(m.onReload, fn)
	m.mu.Unlock()
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Editors replace the file on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	logger.Infof("watching %s for changes", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				logger.Infof("change detected in %s, reloading", event.Name)
				m.reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload() {
	newConfig, err := LoadFile(m.path)
	if err != nil {
		logger.Errorf("failed to reload config: %v", err)
		return
	}
	if err := newConfig.Validate(); err != nil {
		logger.Errorf("invalid config after reload, keeping previous: %v", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	hooks := append([]func(*Config){}, m.onReload...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(newConfig)
	}
	logger.Infof("configuration reloaded")
}
