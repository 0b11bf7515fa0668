// Package storage persists generated image binaries on the local
// filesystem and maps between stored files and the public URL paths kept
// in the database.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes files under a base directory and serves them below a
// fixed URL prefix ("/uploads/generated"). File names are derived from
// the owning user and a timestamp so they never collide.
type LocalStore struct {
	baseDir   string
	urlPrefix string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir, urlPrefix: "/uploads/generated"}, nil
}

// BaseDir returns the directory files are written to, for static serving.
func (s *LocalStore) BaseDir() string { return s.baseDir }

// URLPrefix returns the public path prefix stored files are served under.
func (s *LocalStore) URLPrefix() string { return s.urlPrefix }

// Save writes data to disk and returns the public URL path to store in
// the images table.
func (s *LocalStore) Save(userID uint64, mimeType string, data []byte) (string, error) {
	name := fmt.Sprintf("u%d-%d%s", userID, time.Now().UnixNano(), ExtensionFor(mimeType))
	if err := os.WriteFile(filepath.Join(s.baseDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// Remove deletes the file behind a stored URL path. Unknown paths and
// already-missing files are not errors; image deletion must not fail
// because the binary is gone.
func (s *LocalStore) Remove(urlPath string) error {
	name, ok := s.fileName(urlPath)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Open returns the on-disk path for a stored URL, for download handlers.
func (s *LocalStore) Open(urlPath string) (string, error) {
	name, ok := s.fileName(urlPath)
	if !ok {
		return "", os.ErrNotExist
	}
	full := filepath.Join(s.baseDir, name)
	if _, err := os.Stat(full); err != nil {
		return "", err
	}
	return full, nil
}

// fileName extracts the bare file name from a stored URL path and
// rejects anything that could escape the base directory.
func (s *LocalStore) fileName(urlPath string) (string, bool) {
	rel, ok := strings.CutPrefix(urlPath, s.urlPrefix+"/")
	if !ok {
		return "", false
	}
	name := filepath.Base(rel)
	if name == "." || name == ".." || name == "/" {
		return "", false
	}
	return name, true
}

// ExtensionFor maps a MIME type to a file extension, defaulting to .png
// since that is what the image model returns most of the time.
func ExtensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
