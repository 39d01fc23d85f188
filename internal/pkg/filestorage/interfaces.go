package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// DocumentStore holds uploaded transcript documents. A ref returned by Save
// is the only handle callers keep.
type DocumentStore interface {
	// Save stores the content of r under a generated name keeping name's
	// extension and returns its ref
	Save(ctx context.Context, name string, r io.Reader) (string, error)

	// Open returns the stored document. The caller closes it.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)

	// Delete removes a document. Missing documents are not an error.
	Delete(ctx context.Context, ref string) error
}

// SaveMultipart stores an uploaded multipart file.
func SaveMultipart(ctx context.Context, store DocumentStore, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()
	return store.Save(ctx, fileHeader.Filename, file)
}
