// Package settings persists device selections in a TOML file under the user
// config directory. The file may be edited outside the process at any time,
// so it is watched and reloaded on change.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"meetnote/internal/domain"
)

type fileData struct {
	InputDevice  string `toml:"input_device,omitempty"`
	OutputDevice string `toml:"output_device,omitempty"`
}

// Store is a durable key-value store with two string entries.
type Store struct {
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	data fileData

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads the settings file (if present) and starts watching it for
// external edits. The parent directory is created when missing.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}

	s := &Store{
		path: path,
		log:  log.With().Str("component", "settings").Logger(),
		done: make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create settings watcher: %w", err)
	}
	// Watch the directory, not the file: editors and atomic writers replace
	// the file by rename, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch settings directory: %w", err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Close stops the file watcher.
func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Selection returns the persisted device name for kind, if any.
func (s *Store) Selection(kind domain.DeviceKind) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.entry(kind)
	return name, name != ""
}

// SetSelection persists the device name for kind.
func (s *Store) SetSelection(kind domain.DeviceKind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case domain.DeviceInput:
		s.data.InputDevice = name
	case domain.DeviceOutput:
		s.data.OutputDevice = name
	default:
		return fmt.Errorf("unknown device kind %q", kind)
	}
	return s.persist()
}

// ClearSelection removes the persisted device name for kind.
func (s *Store) ClearSelection(kind domain.DeviceKind) error {
	return s.SetSelection(kind, "")
}

func (s *Store) entry(kind domain.DeviceKind) string {
	switch kind {
	case domain.DeviceInput:
		return s.data.InputDevice
	case domain.DeviceOutput:
		return s.data.OutputDevice
	default:
		return ""
	}
}

func (s *Store) persist() error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(s.data); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return nil
}

func (s *Store) reload() error {
	var data fileData
	if _, err := toml.DecodeFile(s.path, &data); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.data = fileData{}
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("decode settings: %w", err)
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.log.Warn().Err(err).Msg("settings reload failed")
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("settings watcher error")
		}
	}
}
