package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/screenscout/screenscout/internal/brand"
	"github.com/screenscout/screenscout/internal/device"
)

const (
	appName      = "screenscout"
	registryFile = "devices.yaml"
)

// ErrNotFound is returned for operations on an address the registry has
// never saved.
var ErrNotFound = errors.New("device not found in registry")

// ConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/screenscout or $HOME/.config/screenscout
//   - macOS: $HOME/.config/screenscout
//   - Windows: %LOCALAPPDATA%\screenscout
func ConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	default:
		// Linux, macOS and other Unix-likes: XDG_CONFIG_HOME or ~/.config.
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// Registry is the persistent device store. Safe for concurrent use from
// multiple goroutines and, through the file lock, multiple processes.
type Registry struct {
	path       string
	lock       *flock.Flock
	classifier *brand.Classifier
	mu         sync.Mutex
}

// Open returns the registry at its default location.
func Open() (*Registry, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return OpenAt(filepath.Join(dir, registryFile)), nil
}

// OpenAt returns a registry backed by the file at path. The parent
// directory is created on first use.
func OpenAt(path string) *Registry {
	return &Registry{
		path:       path,
		lock:       flock.New(path + ".lock"),
		classifier: brand.NewClassifier(),
	}
}

// Path returns the backing file's location.
func (r *Registry) Path() string {
	return r.path
}

// Save records a discovered device and returns the stored record. New
// records get their brand classified and their first-seen time stamped;
// previously saved records keep their custom name, first-seen time and
// any brand an earlier classification produced.
func (r *Registry) Save(d *device.Device) (*device.Device, error) {
	var saved *device.Device

	err := r.update(func(f *File) error {
		rec := *r.classifier.Annotate(d)

		if prev, ok := f.Devices[rec.Addr]; ok {
			rec.CustomName = prev.CustomName
			rec.FirstSeen = prev.FirstSeen
			if !rec.Brand.Known() && prev.Brand.Known() {
				rec.Brand = prev.Brand
			}
		}
		if rec.FirstSeen.IsZero() {
			rec.FirstSeen = time.Now()
		}

		f.Devices[rec.Addr] = &rec
		saved = &rec
		return nil
	})
	return saved, err
}

// Get returns the saved record for addr, or ErrNotFound.
func (r *Registry) Get(addr string) (*device.Device, error) {
	var found *device.Device

	err := r.view(func(f *File) error {
		d, ok := f.Devices[addr]
		if !ok {
			return ErrNotFound
		}
		rec := *d
		found = &rec
		return nil
	})
	return found, err
}

// List returns every saved device, sorted by display name.
func (r *Registry) List() ([]*device.Device, error) {
	var list []*device.Device

	err := r.view(func(f *File) error {
		for _, d := range f.Devices {
			rec := *d
			list = append(list, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].DisplayName()) < strings.ToLower(list[j].DisplayName())
	})
	return list, nil
}

// Rename sets the user-facing name for a saved device. An empty name
// clears the custom name, falling back to the discovered one.
func (r *Registry) Rename(addr, name string) error {
	return r.update(func(f *File) error {
		d, ok := f.Devices[addr]
		if !ok {
			return ErrNotFound
		}
		d.CustomName = strings.TrimSpace(name)
		return nil
	})
}

// Forget removes a saved device.
func (r *Registry) Forget(addr string) error {
	return r.update(func(f *File) error {
		if _, ok := f.Devices[addr]; !ok {
			return ErrNotFound
		}
		delete(f.Devices, addr)
		return nil
	})
}

// view runs fn against the current document under a shared lock.
func (r *Registry) view(fn func(*File) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureDir(); err != nil {
		return err
	}
	if err := r.lock.RLock(); err != nil {
		return fmt.Errorf("failed to lock registry: %w", err)
	}
	defer func() { _ = r.lock.Unlock() }()

	f, err := r.loadLocked()
	if err != nil {
		return err
	}
	return fn(f)
}

// update runs fn against the current document under an exclusive lock
// and writes the result back atomically.
func (r *Registry) update(fn func(*File) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureDir(); err != nil {
		return err
	}
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock registry: %w", err)
	}
	defer func() { _ = r.lock.Unlock() }()

	f, err := r.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return r.writeLocked(f)
}

func (r *Registry) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	return nil
}

// loadLocked reads and parses the document. A missing file is a fresh
// registry, not an error.
func (r *Registry) loadLocked() (*File, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("unsupported registry version: %d (expected %d)", f.Version, fileVersion)
	}
	if f.Devices == nil {
		f.Devices = make(map[string]*device.Device)
	}
	return &f, nil
}

// writeLocked marshals the document and writes it atomically: temp file
// first, then rename over the old one.
func (r *Registry) writeLocked(f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	header := []byte(`# ScreenScout device registry
# Discovered devices and the names you have given them.
# Devices are keyed by network address; a device whose DHCP lease changes
# reappears under its new address.

`)
	data = append(header, data...)

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save registry file: %w", err)
	}
	return nil
}
