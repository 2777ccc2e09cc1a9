package client

import "time"

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath string
	// Name is the document name on the server. Empty means the base name of LocalPath.
	Name        string
	ContentType string // optional, derived from the name if empty
	// IfMatch makes the upload conditional on the document's current ETag.
	IfMatch string
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath    string    `json:"local_path"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified,omitzero"`
	Err          error     `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	Name      string
	LocalPath string // empty = use Name in the working directory, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	Name        string `json:"name"`
	LocalPath   string `json:"local_path"`
	ETag        string `json:"etag"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Names []string
}

// DeleteResult represents the result of deleting a single document.
type DeleteResult struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListOptions configures a list operation.
type ListOptions struct {
	Prefix string
	Limit  int
	Cursor string
	All    bool // auto-paginate through all results
}

// ListResult contains paginated list results.
type ListResult struct {
	Items      []DocumentInfo `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// DocumentInfo describes a stored document as reported by the server.
type DocumentInfo struct {
	Name         string    `json:"name"`
	URL          string    `json:"url,omitempty"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

// TemplateInfo reports on the server's document template.
type TemplateInfo struct {
	Exists       bool      `json:"exists"`
	Size         int64     `json:"size_bytes,omitempty"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

// Health is the server's health report.
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}
