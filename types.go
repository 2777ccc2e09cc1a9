package docvault

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocxContentType is the media type of Word documents.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Kind identifies a storage backend variant.
type Kind string

const (
	// KindLocal keeps documents in a directory relative to the working directory.
	// Content is lost whenever that directory is reset.
	KindLocal Kind = "local"
	// KindDisk keeps documents on a mounted volume that outlives the process.
	KindDisk Kind = "disk"
	// KindS3 keeps documents in an S3-compatible bucket.
	KindS3 Kind = "s3"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindLocal, KindDisk, KindS3:
		return true
	default:
		return false
	}
}

// ParseKind parses a backend kind. The long descriptive names are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "ephemeral-local":
		return KindLocal, nil
	case "disk", "persistent-mounted":
		return KindDisk, nil
	case "s3", "remote-object-store":
		return KindS3, nil
	default:
		return "", fmt.Errorf("invalid storage kind: %q (valid kinds: local, disk, s3): %w", s, ErrConfiguration)
	}
}

// Info describes a stored document.
type Info struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size_bytes"`
	ETag         string    `json:"etag"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

// Location is returned by a successful put.
type Location struct {
	Info
	// URI is the backend-native address: an absolute file path or s3://bucket/key.
	URI string `json:"uri"`
}

// Document is the receipt handed to callers after a write.
type Document struct {
	Location
	URL string `json:"url"`
}

// PutOptions tunes a single put.
type PutOptions struct {
	ContentType string
	// IfMatch makes the put conditional on the current ETag. Empty means unconditional.
	// An IfMatch against a missing document fails with ErrConflict.
	IfMatch string
}

// Record is a catalog row.
type Record struct {
	ID uuid.UUID `json:"id"`
	Info
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListQuery struct {
	Prefix string
	Limit  int
	Cursor string
}

type ListResult struct {
	Items      []Info `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Tables names the catalog tables.
type Tables struct {
	Documents string `mapstructure:"documents"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Documents == "" {
		return fmt.Errorf("validate tables: documents table name cannot be empty: %w", ErrConfiguration)
	}

	if !IsValidTableName(t.Documents) {
		return fmt.Errorf("validate tables: invalid documents table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars): %w", t.Documents, ErrConfiguration)
	}

	return nil
}

// TemplateInfo reports on the stored template.
type TemplateInfo struct {
	Exists       bool      `json:"exists"`
	Size         int64     `json:"size_bytes,omitempty"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

// ContentTypeFor detects a content type from the name's extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".docx" {
		return DocxContentType
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}
