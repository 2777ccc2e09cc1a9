// Package backend selects and opens the storage variant named by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/filesystem"
	"github.com/sagarc03/docvault/minio"
	"github.com/sagarc03/docvault/s3"
)

// S3 client implementations.
const (
	ClientAWS   = "aws"
	ClientMinio = "minio"
)

// Config carries the parameters of every variant; only the ones for Kind are read.
type Config struct {
	Kind      docvault.Kind
	LocalPath string
	DiskPath  string
	// S3Client picks the S3 driver: ClientAWS (default) or ClientMinio.
	S3Client string
	S3       s3.Config
}

// Open returns the backend for cfg.Kind. Unknown kinds and missing
// parameters wrap docvault.ErrConfiguration.
func Open(ctx context.Context, cfg Config) (docvault.Backend, error) {
	switch cfg.Kind {
	case docvault.KindLocal:
		return opened(filesystem.Open(docvault.KindLocal, cfg.LocalPath))
	case docvault.KindDisk:
		return opened(filesystem.Open(docvault.KindDisk, cfg.DiskPath))
	case docvault.KindS3:
		return openS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("open backend: unknown storage kind %q: %w", cfg.Kind, docvault.ErrConfiguration)
	}
}

func openS3(ctx context.Context, cfg Config) (docvault.Backend, error) {
	switch cfg.S3Client {
	case "", ClientAWS:
		return opened(s3.Open(ctx, cfg.S3))
	case ClientMinio:
		return opened(minio.Open(ctx, minio.Config{
			Endpoint:        cfg.S3.Endpoint,
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			Prefix:          cfg.S3.Prefix,
		}))
	default:
		return nil, fmt.Errorf("open backend: unknown s3 client %q: %w", cfg.S3Client, docvault.ErrConfiguration)
	}
}

// opened keeps a failed open from leaking a typed nil into the interface.
func opened[B docvault.Backend](b B, err error) (docvault.Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}
