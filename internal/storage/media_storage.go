package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmitchellscott/marquee/internal/config"
)

// MediaStorage stores uploaded media files content-addressed by SHA-256, so
// re-uploads of identical bytes land on the same path and the checksum the
// devices verify against is the filename itself.
type MediaStorage struct {
	basePath string
}

// StoredFile describes one persisted media file.
type StoredFile struct {
	Path      string
	Checksum  string
	SizeBytes int64
}

func NewMediaStorage(basePath string) *MediaStorage {
	return &MediaStorage{basePath: basePath}
}

// GetDefaultMediaStorage returns storage rooted at MEDIA_STORAGE_PATH.
func GetDefaultMediaStorage() *MediaStorage {
	return NewMediaStorage(config.Get("MEDIA_STORAGE_PATH", filepath.Join(".", "data", "media")))
}

// Store writes the stream to disk and returns its relative path, SHA-256 hex
// checksum and size. The extension is kept from the original filename.
func (s *MediaStorage) Store(r io.Reader, originalName string) (*StoredFile, error) {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.basePath, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close media file: %w", err)
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	ext := strings.ToLower(filepath.Ext(originalName))
	filename := checksum + ext
	finalPath := filepath.Join(s.basePath, filename)

	if _, err := os.Stat(finalPath); err == nil {
		// Same content already stored.
		return &StoredFile{Path: filename, Checksum: checksum, SizeBytes: size}, nil
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return nil, fmt.Errorf("failed to finalize media file: %w", err)
	}
	return &StoredFile{Path: filename, Checksum: checksum, SizeBytes: size}, nil
}

// Open returns a reader for a stored file path.
func (s *MediaStorage) Open(path string) (*os.File, error) {
	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid media path %q", path)
	}
	return os.Open(filepath.Join(s.basePath, clean))
}

// Remove deletes a stored file. Missing files are not an error.
func (s *MediaStorage) Remove(path string) error {
	err := os.Remove(filepath.Join(s.basePath, filepath.Clean(path)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// BasePath returns the storage root.
func (s *MediaStorage) BasePath() string {
	return s.basePath
}
