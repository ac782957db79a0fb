package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"video-generation-api/internal/domain/ports/adapter"
)

var _ adapter.StorageAdapter = (*GDrive)(nil)

// GDrive stores videos in a Drive folder. The object key is the Drive
// fileId, so deletion works without a separate lookup. Download links use
// Drive's webContentLink, which honors the file's sharing settings rather
// than a TTL.
type GDrive struct {
	srv      *drive.Service
	folderID string
}

func NewGDrive(srv *drive.Service, folderID string) *GDrive {
	return &GDrive{srv: srv, folderID: folderID}
}

func (g *GDrive) Provider() string { return "gdrive" }

func (g *GDrive) Upload(ctx context.Context, localPath, jobID string) (adapter.UploadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return adapter.UploadResult{}, err
	}
	defer f.Close()

	meta := &drive.File{Name: fmt.Sprintf("%s%s", jobID, filepath.Ext(localPath))}
	if g.folderID != "" {
		meta.Parents = []string{g.folderID}
	}

	created, err := g.srv.Files.Create(meta).
		Media(f, googleapi.ContentType("video/mp4")).
		Fields("id", "webContentLink").
		Context(ctx).
		Do()
	if err != nil {
		return adapter.UploadResult{}, fmt.Errorf("gdrive upload failed: %w", err)
	}

	return adapter.UploadResult{
		ObjectKey: created.Id,
		SignedURL: created.WebContentLink,
	}, nil
}

func (g *GDrive) Delete(ctx context.Context, objectKey string) error {
	return g.srv.Files.Delete(objectKey).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}
