package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Storage keeps the captured image or PDF a receipt was scanned from
type Storage interface {
	// Save stores data under name and returns the stored path
	Save(name string, data []byte) (string, error)

	// Get retrieves an attachment by path
	Get(path string) ([]byte, error)

	// Delete removes an attachment
	Delete(path string) error
}

// LocalStorage implements Storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// resolve joins path onto the base directory, refusing anything that escapes it
func (l *LocalStorage) resolve(path string) (string, error) {
	clean := filepath.Clean(string(filepath.Separator) + path)
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid attachment path %q", path)
	}
	return filepath.Join(l.basePath, clean), nil
}

// Save writes an attachment
func (l *LocalStorage) Save(name string, data []byte) (string, error) {
	full, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Get reads an attachment
func (l *LocalStorage) Get(path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes an attachment
func (l *LocalStorage) Delete(path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s\-_]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and shortens long phone-camera names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaceRuns.ReplaceAllString(base, " "))

	const maxLen = 50
	if runes := []rune(base); len(runes) > maxLen {
		base = string(runes[:maxLen])
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}
