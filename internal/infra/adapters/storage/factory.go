package storage

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"video-generation-api/internal/config"
	"video-generation-api/internal/domain/ports/adapter"
)

// New builds the configured storage provider.
func New(ctx context.Context, cfg config.StorageConfig) (adapter.StorageAdapter, error) {
	switch cfg.Provider {
	case "localfs":
		if cfg.LocalRoot == "" {
			return nil, fmt.Errorf("storage.local_root is required for localfs")
		}
		if cfg.SigningSecret == "" {
			return nil, fmt.Errorf("FILES_SIGNING_SECRET is required for localfs")
		}
		return NewLocalFS(cfg.LocalRoot, cfg.LocalBaseURL, cfg.SigningSecret, cfg.URLTTL), nil

	case "gdrive":
		return newGDrive(ctx, cfg.GDrive)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

func newGDrive(ctx context.Context, cfg config.GDriveConfig) (*GDrive, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("gdrive credentials are incomplete")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	tok := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return NewGDrive(srv, cfg.FolderID), nil
}
