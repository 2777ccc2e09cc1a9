// Package s3 provides the remote object-store variant of docvault on top of
// the AWS SDK v2. It works against AWS S3 and S3-compatible services
// (MinIO, LocalStack, R2) when an endpoint is configured.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sagarc03/docvault"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config holds the bucket and credentials of the object store.
type Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	// Endpoint targets an S3-compatible service instead of AWS.
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	// Prefix is prepended to every object key, e.g. "documents/".
	Prefix string `mapstructure:"prefix"`
}

// Store keeps documents as objects in one bucket.
type Store struct {
	client   *awss3.Client
	presign  *awss3.PresignClient
	bucket   string
	prefix   string
	identity string
}

// Open builds an S3 client from cfg and checks the bucket. A failed check is a
// configuration error: the process should refuse to start.
//
// Credentials fall back to the SDK default chain (environment, shared config,
// instance roles) when no static keys are configured.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("open s3 storage: bucket is required: %w", docvault.ErrConfiguration)
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("open s3 storage: load aws config: %w: %w", docvault.ErrConfiguration, err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		// retries are owned by docvault.Service
		o.Retryer = aws.NopRetryer{}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	s := New(client, cfg)

	if err := s.Ping(ctx); err != nil {
		return nil, fmt.Errorf("open s3 storage: bucket %s: %w: %w", cfg.Bucket, docvault.ErrConfiguration, err)
	}

	return s, nil
}

// New wraps an existing client. The bucket is not checked.
func New(client *awss3.Client, cfg Config) *Store {
	identity := "s3:" + cfg.Bucket + "/" + cfg.Prefix
	if cfg.Endpoint != "" {
		identity = "s3:" + strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket + "/" + cfg.Prefix
	}

	return &Store{
		client:   client,
		presign:  awss3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		identity: identity,
	}
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

// Ping checks that the bucket exists and is reachable with our credentials.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return classify("ping", err)
}

// Put uploads content as a single object. S3 replaces objects atomically.
// The body is buffered so the request can be signed and sized up front.
func (s *Store) Put(ctx context.Context, name string, content io.Reader, opts docvault.PutOptions) (docvault.Location, error) {
	buf, err := io.ReadAll(content)
	if err != nil {
		return docvault.Location{}, fmt.Errorf("put: read content: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = docvault.ContentTypeFor(name)
	}

	input := &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(buf),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(buf))),
	}
	if opts.IfMatch != "" {
		input.IfMatch = aws.String(quoteETag(opts.IfMatch))
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		err = classify("put", err)
		if opts.IfMatch != "" && isNotFound(err) {
			return docvault.Location{}, fmt.Errorf("put %s: precondition failed, document does not exist: %w", name, docvault.ErrConflict)
		}
		return docvault.Location{}, err
	}

	return docvault.Location{
		Info: docvault.Info{
			Name:        name,
			Size:        int64(len(buf)),
			ETag:        trimETag(aws.ToString(out.ETag)),
			ContentType: contentType,
		},
		URI: "s3://" + s.bucket + "/" + s.key(name),
	}, nil
}

// Get streams an object. The body is not seekable.
func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, docvault.Info, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, docvault.Info{}, classify("get", err)
	}

	info := docvault.Info{
		Name:         name,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         trimETag(aws.ToString(out.ETag)),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified).UTC(),
	}
	if info.ContentType == "" {
		info.ContentType = docvault.ContentTypeFor(name)
	}

	return out.Body, info, nil
}

func (s *Store) Stat(ctx context.Context, name string) (docvault.Info, error) {
	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return docvault.Info{}, classify("stat", err)
	}

	info := docvault.Info{
		Name:         name,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         trimETag(aws.ToString(out.ETag)),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified).UTC(),
	}
	if info.ContentType == "" {
		info.ContentType = docvault.ContentTypeFor(name)
	}

	return info, nil
}

// Delete removes an object. S3 deletes are idempotent, so the object is looked
// up first to report docvault.ErrNotFound consistently with the filesystem variants.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return classify("delete", err)
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// List pages through every object under the prefix. Keys in nested
// "directories" and reserved names are skipped.
func (s *Store) List(ctx context.Context) ([]docvault.Info, error) {
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var items []docvault.Info
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list", err)
		}

		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name == "" || strings.Contains(name, "/") || docvault.IsReservedName(name) {
				continue
			}

			items = append(items, docvault.Info{
				Name:         name,
				Size:         aws.ToInt64(obj.Size),
				ETag:         trimETag(aws.ToString(obj.ETag)),
				ContentType:  docvault.ContentTypeFor(name),
				LastModified: aws.ToTime(obj.LastModified).UTC(),
			})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// PresignGet returns a time-limited download URL that serves the object as an attachment.
func (s *Store) PresignGet(ctx context.Context, name string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(s.key(name)),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", name)),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}
