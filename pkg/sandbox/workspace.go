package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	releaseRetryDelay = 100 * time.Millisecond

	// Containers run as an unprivileged user that owns nothing on the host.
	// Only the run directory is bind mounted, so the root stays private.
	rootMode = 0o700
	runMode  = 0o755
	fileMode = 0o644
)

// Workspace hands out single-use source files, each in its own run directory
// under a shared root.
type Workspace struct {
	root   string
	logger zerolog.Logger
}

// File is a source file written by Acquire. It is closed before being returned.
type File struct {
	dir    string
	path   string
	ws     *Workspace
	mu     sync.Mutex
	closed bool
}

// NewWorkspace ensures root exists and returns a workspace rooted there.
// An empty root falls back to a codesnap directory inside os.TempDir.
func NewWorkspace(root string, logger zerolog.Logger) (*Workspace, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "codesnap")
	}
	if err := os.MkdirAll(root, rootMode); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	return &Workspace{
		root:   root,
		logger: logger.With().Str("component", "sandbox_workspace").Logger(),
	}, nil
}

// Root returns the directory run directories are created in.
func (w *Workspace) Root() string {
	return w.root
}

// Acquire writes content to a new file ending in suffix inside a fresh run
// directory. Only that directory should be exposed to the program.
func (w *Workspace) Acquire(content, suffix string) (*File, error) {
	dir, err := os.MkdirTemp(w.root, "submission-")
	if err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	if err := os.Chmod(dir, runMode); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("set run directory mode: %w", err)
	}

	path, err := writeSource(dir, content, suffix)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	return &File{dir: dir, path: path, ws: w}, nil
}

func writeSource(dir, content, suffix string) (string, error) {
	f, err := os.CreateTemp(dir, "codesnap-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create source file: %w", err)
	}

	path := f.Name()
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write source file: %w", err)
	}
	if err := f.Chmod(fileMode); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("set source file mode: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("flush source file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close source file: %w", err)
	}
	return path, nil
}

// Path returns the absolute path of the file.
func (f *File) Path() string {
	return f.path
}

// Dir returns the run directory holding the file and nothing else.
func (f *File) Dir() string {
	return f.dir
}

// Release removes the run directory. A failed removal is retried once and then only logged.
func (f *File) Release() {
	if f == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true

	err := remove(f.dir)
	if err == nil {
		return
	}

	time.Sleep(releaseRetryDelay)
	if err = remove(f.dir); err != nil {
		f.ws.logger.Warn().Err(err).Str("path", f.dir).Msg("failed to remove run directory")
	}
}

func remove(dir string) error {
	err := os.RemoveAll(dir)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
