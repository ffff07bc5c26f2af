package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/logger"
)

// TempManager owns a process temp root and hands out isolated namespaces,
// one per unit of work, so concurrent workers never collide. It is passed
// explicitly to whoever needs scratch space rather than living as ambient
// global state. Cleanup failures are counted and surfaced in the batch
// summary but never abort processing.
type TempManager struct {
	root        string
	logger      *logger.Logger
	mu          sync.Mutex
	scopes      map[string]bool
	cleanupErrs int
}

// NewTempManager creates a temp manager rooted in a fresh directory under
// the system temp dir.
func NewTempManager(log *logger.Logger) (*TempManager, error) {
	root, err := os.MkdirTemp("", constants.TempNamespaceDirPrefix)
	if err != nil {
		return nil, NewIOError("failed to create temp root", err)
	}
	log.Debug("Created temp root: %s", root)
	return &TempManager{
		root:   root,
		logger: log,
		scopes: make(map[string]bool),
	}, nil
}

// Root returns the temp root directory
func (tm *TempManager) Root() string {
	return tm.root
}

// Acquire creates an isolated temp namespace for one unit of work
func (tm *TempManager) Acquire(prefix string) (*TempScope, error) {
	sanitized := SanitizeFileName(prefix)
	if sanitized == "" {
		sanitized = "work"
	}

	dir, err := os.MkdirTemp(tm.root, sanitized+"-")
	if err != nil {
		return nil, NewIOError("failed to create temp namespace", err)
	}

	tm.mu.Lock()
	tm.scopes[dir] = true
	tm.mu.Unlock()

	tm.logger.Debug("Acquired temp namespace: %s", dir)
	return &TempScope{dir: dir, manager: tm}, nil
}

// CleanupErrors returns how many namespace cleanups have failed so far
func (tm *TempManager) CleanupErrors() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.cleanupErrs
}

// CleanupAll removes every outstanding namespace and the temp root. Called
// on normal exit and on interrupt.
func (tm *TempManager) CleanupAll() error {
	tm.mu.Lock()
	dirs := make([]string, 0, len(tm.scopes))
	for dir := range tm.scopes {
		dirs = append(dirs, dir)
	}
	tm.scopes = make(map[string]bool)
	tm.mu.Unlock()

	var failed int
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
			failed++
			tm.logger.Warn("Failed to remove temp namespace: %s, error: %v", dir, err)
		}
	}

	if err := os.RemoveAll(tm.root); err != nil && !os.IsNotExist(err) {
		failed++
		tm.logger.Warn("Failed to remove temp root: %s, error: %v", tm.root, err)
	}

	if failed > 0 {
		tm.mu.Lock()
		tm.cleanupErrs += failed
		tm.mu.Unlock()
		return NewTempFileError(fmt.Sprintf("cleanup failed for %d temp paths", failed), nil)
	}
	return nil
}

// release removes a single namespace and untracks it
func (tm *TempManager) release(dir string) error {
	tm.mu.Lock()
	delete(tm.scopes, dir)
	tm.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		tm.mu.Lock()
		tm.cleanupErrs++
		tm.mu.Unlock()
		tm.logger.Warn("Failed to remove temp namespace: %s, error: %v", dir, err)
		return NewTempFileError(fmt.Sprintf("failed to remove temp namespace %s", dir), err)
	}
	tm.logger.Debug("Released temp namespace: %s", dir)
	return nil
}

// TempScope is an isolated scratch directory owned by one unit of work
type TempScope struct {
	dir     string
	manager *TempManager
	mu      sync.Mutex
	seq     int
}

// Dir returns the namespace directory
func (s *TempScope) Dir() string {
	return s.dir
}

// Path returns a path under the namespace
func (s *TempScope) Path(relativePath string) string {
	return filepath.Join(s.dir, relativePath)
}

// CreateFile creates an empty scratch file inside the namespace
func (s *TempScope) CreateFile(prefix, suffix string) (string, error) {
	s.mu.Lock()
	s.seq++
	name := fmt.Sprintf("%s_%d%s", SanitizeFileName(prefix), s.seq, suffix)
	s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", NewIOError("failed to create temp file", err)
	}
	file.Close()
	return path, nil
}

// Release deletes the namespace and everything in it
func (s *TempScope) Release() error {
	return s.manager.release(s.dir)
}

// WithCleanup executes a function and releases the namespace on all exit
// paths, including panics.
func (s *TempScope) WithCleanup(fn func() error) error {
	defer func() {
		if err := s.Release(); err != nil {
			s.manager.logger.Error("Temp namespace cleanup failed: %v", err)
		}
	}()
	return fn()
}
