package storage

import (
	"context"
	"path/filepath"

	"github.com/devnovate/blog/config"
)

// Open returns S3 storage when a bucket is configured and local disk storage otherwise.
func Open(ctx context.Context, cfg config.AppConfig) (Storage, error) {
	if cfg.S3Bucket != "" {
		opts := S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.AWSRegion,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}
		client, err := NewS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewS3Storage(client, opts), nil
	}
	// served by the router's /static mount
	urlBase := "/" + filepath.ToSlash(filepath.Clean(cfg.UploadDir))
	local, err := NewLocalStorage(cfg.UploadDir, urlBase)
	if err != nil {
		return nil, err
	}
	return local, nil
}
