package adapter

import "context"

// UploadResult names the stored artifact and the caller-presentable URL
// issued by the provider. URL expiry is the provider's business; we only
// store what we are given.
type UploadResult struct {
	ObjectKey string
	SignedURL string
}

// StorageAdapter is the port for object storage (video upload plus signed
// URL issuance).
type StorageAdapter interface {
	Provider() string
	Upload(ctx context.Context, localPath, jobID string) (UploadResult, error)
	Delete(ctx context.Context, objectKey string) error
}
