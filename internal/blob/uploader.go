// Package blob is the attachment storage boundary. Uploads are keyed
// tickets/{ticketId}/{generatedFilename} and yield an opaque URL that is
// stored verbatim on the message; the core never parses it back.
package blob

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploader accepts attachment bytes and returns a retrievable URL.
type Uploader interface {
	Upload(ctx context.Context, ticketID, ext string, data []byte) (string, error)
}

// DiskUploader writes attachments under a local root served at a public
// base URL. Stands in for a hosted blob store behind the same interface.
type DiskUploader struct {
	root    string
	baseURL string
	logger  *zap.Logger
}

// NewDiskUploader constructs the uploader.
func NewDiskUploader(root, baseURL string, logger *zap.Logger) *DiskUploader {
	return &DiskUploader{root: root, baseURL: baseURL, logger: logger}
}

// Upload stores the bytes and returns their URL. The generated filename is
// a UUID so concurrent uploads to one ticket never collide.
func (u *DiskUploader) Upload(ctx context.Context, ticketID, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	filename := uuid.NewString() + ext
	key := path.Join("tickets", ticketID, filename)

	target := filepath.Join(u.root, "tickets", ticketID, filename)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}

	u.logger.Debug("attachment stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return u.baseURL + "/" + key, nil
}
