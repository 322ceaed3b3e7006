package storage

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	thumbnailsSubdir = "thumbnails"
	placeholderName  = "placeholder.png"
)

// LocalStore writes image bytes under a fixed uploads root and hands back
// stable relative paths. Callers never assume anything beyond "write bytes,
// get back a path".
type LocalStore struct {
	baseDir string
	logger  *slog.Logger
}

// NewLocalStore creates the uploads root (and the default placeholder asset)
// if they do not exist yet.
func NewLocalStore(baseDir string, logger *slog.Logger) (*LocalStore, error) {
	store := &LocalStore{
		baseDir: baseDir,
		logger:  logger,
	}

	if err := os.MkdirAll(filepath.Join(baseDir, thumbnailsSubdir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	if err := store.ensurePlaceholder(); err != nil {
		return nil, fmt.Errorf("failed to create placeholder asset: %w", err)
	}

	return store, nil
}

// SaveImage writes image bytes under a fresh UUID filename and returns the
// relative path. The extension is derived from the content type when known.
func (s *LocalStore) SaveImage(data []byte, contentType string) (string, error) {
	ext := extensionForContentType(contentType)
	name := uuid.New().String() + ext
	rel := filepath.Join(thumbnailsSubdir, name)

	if err := os.WriteFile(filepath.Join(s.baseDir, rel), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", rel, err)
	}

	s.logger.Debug("Saved image", "path", rel, "bytes", len(data))
	return rel, nil
}

// Remove deletes a previously saved image. Missing files are not an error;
// frame-capture cleanup may race with earlier cleanup passes.
func (s *LocalStore) Remove(rel string) error {
	if rel == "" || rel == s.PlaceholderPath() {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", rel, err)
	}
	return nil
}

// AbsPath resolves a stored relative path against the uploads root
func (s *LocalStore) AbsPath(rel string) string {
	return filepath.Join(s.baseDir, rel)
}

// BaseDir returns the uploads root (used by the HTTP layer to serve files)
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// PlaceholderPath returns the relative path of the default placeholder asset
func (s *LocalStore) PlaceholderPath() string {
	return filepath.Join(thumbnailsSubdir, placeholderName)
}

// ensurePlaceholder synthesizes the default thumbnail once: a flat neutral
// card at 16:9 so degraded recipes still render sensibly in clients.
func (s *LocalStore) ensurePlaceholder() error {
	path := s.AbsPath(s.PlaceholderPath())
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, 640, 360))
	fill := color.RGBA{R: 0xE8, G: 0xE4, B: 0xDD, A: 0xFF}
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			img.Set(x, y, fill)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return err
	}

	s.logger.Info("Created placeholder thumbnail", "path", path)
	return nil
}

func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
