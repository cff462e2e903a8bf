// Package testing provides a fake sshutil.SSHClient backed by an
// in-memory filesystem, so remote key provisioning can be tested without a
// network or a real sshd.
package testing

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
)

// MockFS simulates the remote account's filesystem.
// Paths are absolute and slash-separated.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte   // path -> content
	dirs  map[string]struct{} // directories
}

// NewMockFS creates a new empty mock filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

// Mkdir creates a directory. Returns error if directory already exists.
// This mimics the behavior of `mkdir` (without -p flag).
func (fs *MockFS) Mkdir(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)

	// Check if already exists
	if _, exists := fs.dirs[p]; exists {
		return errors.New("directory already exists")
	}
	if _, exists := fs.files[p]; exists {
		return errors.New("file exists at path")
	}

	fs.dirs[p] = struct{}{}
	return nil
}

// MkdirAll creates a directory and all parent directories.
// This mimics the behavior of `mkdir -p`.
func (fs *MockFS) MkdirAll(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)

	// Create all parent directories
	parts := strings.Split(p, "/")
	current := ""
	for _, part := range parts {
		if part == "" {
			current = "/"
			continue
		}
		if current == "/" {
			current = "/" + part
		} else {
			current = current + "/" + part
		}
		fs.dirs[current] = struct{}{}
	}
	return nil
}

// WriteFile writes content to a file, creating parent directories as needed.
func (fs *MockFS) WriteFile(p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)

	// Create parent directory
	dir := path.Dir(p)
	if dir != "." && dir != "/" {
		fs.dirs[dir] = struct{}{}
	}

	fs.files[p] = append([]byte(nil), content...)
	return nil
}

// AppendFile appends content to a file, creating it if missing.
func (fs *MockFS) AppendFile(p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if _, isDir := fs.dirs[p]; isDir {
		return errors.New("is a directory")
	}
	fs.files[p] = append(fs.files[p], content...)
	return nil
}

// ReadFile reads the content of a file. Returns error if file doesn't exist.
func (fs *MockFS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)

	content, exists := fs.files[p]
	if !exists {
		return nil, errors.New("file not found")
	}
	return content, nil
}

// Remove removes a file or directory and all its contents.
// This mimics the behavior of `rm -rf`.
func (fs *MockFS) Remove(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)

	// Remove the path itself
	delete(fs.files, p)
	delete(fs.dirs, p)

	// Remove all children (for directories)
	prefix := p + "/"
	for p := range fs.files {
		if strings.HasPrefix(p, prefix) {
			delete(fs.files, p)
		}
	}
	for p := range fs.dirs {
		if strings.HasPrefix(p, prefix) {
			delete(fs.dirs, p)
		}
	}

	return nil
}

// Exists returns true if the path exists (file or directory).
func (fs *MockFS) Exists(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)

	if _, exists := fs.dirs[p]; exists {
		return true
	}
	if _, exists := fs.files[p]; exists {
		return true
	}
	return false
}

// IsDir returns true if the path exists and is a directory.
func (fs *MockFS) IsDir(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)
	_, exists := fs.dirs[p]
	return exists
}

// IsFile returns true if the path exists and is a file.
func (fs *MockFS) IsFile(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)
	_, exists := fs.files[p]
	return exists
}

// Files returns every file path, sorted.
func (fs *MockFS) Files() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]string, 0, len(fs.files))
	for p := range fs.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
