package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/tailaid/tailaid-api/internal/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Download when nothing is stored at the path
var ErrObjectNotFound = errors.New("storage object not found")

// Storage holds uploaded alert photos
type Storage interface {
	// Upload stores data under folder with a generated name and returns its path and size
	Upload(ctx context.Context, folder, ext, contentType string, data io.Reader) (string, int64, error)
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
	// Delete is a no-op for paths that do not exist
	Delete(ctx context.Context, storagePath string) error
}

// NewStorage creates the backend selected by cfg.Mode: "local", "azure" (or
// "cloud") and "memory".
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// objectPath builds "<folder>/<uuid><ext>" using forward slashes
func objectPath(folder, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString() + ext
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// cleanPath drops a leading slash and rejects paths that climb out of the store
func cleanPath(storagePath string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(storagePath, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || cleaned != strings.TrimPrefix(storagePath, "/") {
		return "", fmt.Errorf("invalid storage path: %q", storagePath)
	}
	return cleaned, nil
}
