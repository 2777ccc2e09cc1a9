// Package minio is an alternative remote object-store driver built on
// minio-go. It targets self-hosted S3-compatible servers where the AWS SDK's
// endpoint resolution is more trouble than it is worth.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sagarc03/docvault"
)

// Config describes the MinIO server and bucket.
type Config struct {
	// Endpoint is host[:port] without a scheme, e.g. "localhost:9000".
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Prefix          string `mapstructure:"prefix"`
	// CreateBucket makes the bucket on Open when it does not exist yet.
	CreateBucket bool `mapstructure:"create_bucket"`
}

// Store keeps documents as objects in a MinIO bucket.
type Store struct {
	client   *miniogo.Client
	bucket   string
	prefix   string
	identity string
}

// Open connects to the server and checks the bucket.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("open minio storage: endpoint and bucket are required: %w", docvault.ErrConfiguration)
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	secure := cfg.UseSSL || strings.HasPrefix(cfg.Endpoint, "https://")

	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("open minio storage: create client: %w: %w", docvault.ErrConfiguration, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("open minio storage: check bucket %s: %w: %w", cfg.Bucket, docvault.ErrConfiguration, err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("open minio storage: bucket %s does not exist: %w", cfg.Bucket, docvault.ErrConfiguration)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("open minio storage: create bucket %s: %w: %w", cfg.Bucket, docvault.ErrConfiguration, err)
		}
	}

	return &Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		identity: "s3:" + endpoint + "/" + cfg.Bucket + "/" + cfg.Prefix,
	}, nil
}

func (s *Store) Kind() docvault.Kind {
	return docvault.KindS3
}

func (s *Store) Identity() string {
	return s.identity
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classify("ping", err)
	}
	if !exists {
		return fmt.Errorf("ping: bucket %s is gone: %w", s.bucket, docvault.ErrConfiguration)
	}
	return nil
}

// Put streams content to the bucket. An unknown size makes minio-go fall back
// to a multipart upload.
func (s *Store) Put(ctx context.Context, name string, content io.Reader, opts docvault.PutOptions) (docvault.Location, error) {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = docvault.ContentTypeFor(name)
	}

	size := int64(-1)
	if sized, ok := content.(interface{ Size() int64 }); ok {
		size = sized.Size()
	}

	putOpts := miniogo.PutObjectOptions{ContentType: contentType}
	if opts.IfMatch != "" {
		putOpts.SetMatchETag(opts.IfMatch)
	}

	info, err := s.client.PutObject(ctx, s.bucket, s.key(name), content, size, putOpts)
	if err != nil {
		err = classify("put", err)
		if opts.IfMatch != "" && errors.Is(err, docvault.ErrNotFound) {
			return docvault.Location{}, fmt.Errorf("put %s: precondition failed, document does not exist: %w", name, docvault.ErrConflict)
		}
		return docvault.Location{}, err
	}

	return docvault.Location{
		Info: docvault.Info{
			Name:         name,
			Size:         info.Size,
			ETag:         strings.Trim(info.ETag, `"`),
			ContentType:  contentType,
			LastModified: info.LastModified.UTC(),
		},
		URI: "s3://" + s.bucket + "/" + s.key(name),
	}, nil
}

// Get returns a seekable object reader. minio-go opens objects lazily, so the
// object is stat'ed first to surface a missing key.
func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, docvault.Info, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), miniogo.GetObjectOptions{})
	if err != nil {
		return nil, docvault.Info{}, classify("get", err)
	}

	oi, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, docvault.Info{}, classify("get", err)
	}

	return obj, s.info(name, oi), nil
}

func (s *Store) Stat(ctx context.Context, name string) (docvault.Info, error) {
	oi, err := s.client.StatObject(ctx, s.bucket, s.key(name), miniogo.StatObjectOptions{})
	if err != nil {
		return docvault.Info{}, classify("stat", err)
	}
	return s.info(name, oi), nil
}

func (s *Store) info(name string, oi miniogo.ObjectInfo) docvault.Info {
	contentType := oi.ContentType
	if contentType == "" {
		contentType = docvault.ContentTypeFor(name)
	}
	return docvault.Info{
		Name:         name,
		Size:         oi.Size,
		ETag:         strings.Trim(oi.ETag, `"`),
		ContentType:  contentType,
		LastModified: oi.LastModified.UTC(),
	}
}

// Delete removes an object, reporting docvault.ErrNotFound when it was not there.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return classify("delete", s.client.RemoveObject(ctx, s.bucket, s.key(name), miniogo.RemoveObjectOptions{}))
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, docvault.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Store) List(ctx context.Context) ([]docvault.Info, error) {
	var items []docvault.Info
	for oi := range s.client.ListObjects(ctx, s.bucket, miniogo.ListObjectsOptions{Prefix: s.prefix}) {
		if oi.Err != nil {
			return nil, classify("list", oi.Err)
		}

		name := strings.TrimPrefix(oi.Key, s.prefix)
		if name == "" || strings.Contains(name, "/") || docvault.IsReservedName(name) {
			continue
		}
		items = append(items, s.info(name, oi))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Store) PresignGet(ctx context.Context, name string, expires time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", name))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, s.key(name), expires, params)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	resp := miniogo.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket":
		return fmt.Errorf("%s: %w: %w", op, docvault.ErrNotFound, err)
	case resp.Code == "NoSuchBucket":
		return fmt.Errorf("%s: %w: %w", op, docvault.ErrConfiguration, err)
	case resp.Code == "AccessDenied" || resp.Code == "InvalidAccessKeyId" || resp.Code == "SignatureDoesNotMatch" ||
		resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, docvault.ErrAccessDenied, err)
	case resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%s: %w: %w", op, docvault.ErrConflict, err)
	case resp.Code == "SlowDown" || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%s: %w: %w", op, docvault.ErrTransient, err)
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, docvault.ErrTransient, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
