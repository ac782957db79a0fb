package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"video-generation-api/internal/domain/ports/adapter"
)

var _ adapter.StorageAdapter = (*LocalFS)(nil)

// LocalFS stores videos under a root directory and mints expiring
// HMAC-signed download links served by the API's /files handler.
type LocalFS struct {
	root    string
	baseURL string
	secret  string
	ttl     time.Duration

	now func() time.Time
}

func NewLocalFS(root, baseURL, secret string, ttl time.Duration) *LocalFS {
	return &LocalFS{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (l *LocalFS) Provider() string { return "localfs" }

func (l *LocalFS) Upload(ctx context.Context, localPath, jobID string) (adapter.UploadResult, error) {
	objectKey := fmt.Sprintf("videos/%s.mp4", jobID)
	dst := filepath.Join(l.root, filepath.FromSlash(objectKey))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return adapter.UploadResult{}, err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return adapter.UploadResult{}, err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return adapter.UploadResult{}, err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return adapter.UploadResult{}, err
	}

	return adapter.UploadResult{
		ObjectKey: objectKey,
		SignedURL: l.SignURL(objectKey),
	}, nil
}

func (l *LocalFS) Delete(ctx context.Context, objectKey string) error {
	p := filepath.Join(l.root, filepath.FromSlash(objectKey))
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SignURL mints a download link that stops verifying after the TTL. The
// token covers key and expiry, so neither can be swapped.
func (l *LocalFS) SignURL(objectKey string) string {
	expires := l.now().Add(l.ttl).Unix()
	return fmt.Sprintf("%s/files/%s?expires=%d&sig=%s",
		l.baseURL, objectKey, expires, l.token(objectKey, expires))
}

// VerifyURL checks the signature and expiry on a /files request. The
// query values come straight from the caller; nothing in them is trusted
// until the HMAC passes.
func (l *LocalFS) VerifyURL(objectKey string, query url.Values) bool {
	expires, err := strconv.ParseInt(query.Get("expires"), 10, 64)
	if err != nil {
		return false
	}
	if l.now().Unix() > expires {
		return false
	}
	want, err := hex.DecodeString(query.Get("sig"))
	if err != nil {
		return false
	}
	got, _ := hex.DecodeString(l.token(objectKey, expires))
	return hmac.Equal(got, want)
}

// Open resolves an object key to a readable file, refusing keys that
// escape the root.
func (l *LocalFS) Open(objectKey string) (*os.File, error) {
	clean := filepath.Clean(filepath.FromSlash(objectKey))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(l.root, clean))
}

func (l *LocalFS) token(objectKey string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(l.secret))
	fmt.Fprintf(mac, "%s|%d", objectKey, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
