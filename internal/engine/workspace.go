package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	workspacePrefix = "engine-"
	lockFileName    = ".lock"
)

// Workspace is the private directory an engine instance converts in. The
// directory holds a flock while live so concurrent processes sharing the
// same root can tell live workspaces from ones left behind by a crash.
type Workspace struct {
	dir  string
	lock *flock.Flock
}

// NewWorkspace creates and locks a fresh workspace under root.
func NewWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root not configured")
	}
	dir := filepath.Join(root, workspacePrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("lock workspace: %s is held by another process", dir)
	}
	return &Workspace{dir: dir, lock: lock}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the absolute path of name inside the workspace.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// Write stores data under name, replacing any previous content.
func (w *Workspace) Write(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	return os.WriteFile(w.Path(name), data, 0o600)
}

// Read returns the content stored under name.
func (w *Workspace) Read(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(w.Path(name))
}

// Has reports whether name appears in the workspace listing.
func (w *Workspace) Has(name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	names, err := w.List()
	if err != nil {
		return false, err
	}
	for _, entry := range names {
		if entry == name {
			return true, nil
		}
	}
	return false, nil
}

// List returns the names of the files stored in the workspace.
func (w *Workspace) List() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("list workspace: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name() == lockFileName {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Remove deletes the named files. Missing files are ignored.
func (w *Workspace) Remove(names ...string) error {
	var errs []error
	for _, name := range names {
		if err := validName(name); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(w.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the lock and deletes the workspace directory.
func (w *Workspace) Close() error {
	unlockErr := w.lock.Unlock()
	removeErr := os.RemoveAll(w.dir)
	return errors.Join(unlockErr, removeErr)
}

// SweepStale removes workspaces under root whose lock is not held. It returns
// the number of directories removed.
func SweepStale(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read workspace root: %w", err)
	}
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workspacePrefix) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		lock := flock.New(filepath.Join(dir, lockFileName))
		locked, err := lock.TryLock()
		if err != nil {
			errs = append(errs, fmt.Errorf("probe %s: %w", dir, err))
			continue
		}
		if !locked {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		} else {
			removed++
		}
		_ = lock.Unlock()
	}
	return removed, errors.Join(errs...)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || name == lockFileName || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
