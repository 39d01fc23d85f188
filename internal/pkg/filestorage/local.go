package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/pkg/logger"
)

// LocalStorage keeps documents on the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
	subPath  string // Directory under basePath for new documents
}

// NewLocalStorage creates a new LocalStorage instance.
// basePath is the required directory path on the server.
func NewLocalStorage(basePath, subPath string) (*LocalStorage, error) {
	// Ensure the base path exists
	dir := filepath.Join(basePath, subPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	logger.Info().Str("path", dir).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		subPath:  subPath,
	}, nil
}

// Save implements DocumentStore.
func (ls *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Generate a unique filename to prevent collisions
	ref := filepath.ToSlash(filepath.Join(ls.subPath, uuid.New().String()+strings.ToLower(filepath.Ext(name))))
	dstPath := filepath.Join(ls.basePath, filepath.FromSlash(ref))

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	// Copy the uploaded content to the destination file
	if _, err = io.Copy(dst, r); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		// Attempt to remove the partially created file
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().Str("filename", name).Str("ref", ref).Msg("Document saved successfully")
	return ref, nil
}

// Open implements DocumentStore.
func (ls *LocalStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := ls.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return f, nil
}

// Delete implements DocumentStore.
// Returns nil if deletion is successful or if the file doesn't exist.
func (ls *LocalStorage) Delete(_ context.Context, ref string) error {
	if ref == "" {
		return nil // Nothing to delete
	}
	path, err := ls.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Msg("File to delete does not exist")
			return nil // Consider this a successful delete (idempotent operation)
		}
		logger.Error().Err(err).Str("path", path).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", path).Msg("File deleted successfully")
	return nil
}

// resolve maps a ref to a path inside basePath.
func (ls *LocalStorage) resolve(ref string) (string, error) {
	rel := filepath.FromSlash(ref)
	if ref == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid document ref: %q", ref)
	}
	return filepath.Join(ls.basePath, rel), nil
}
