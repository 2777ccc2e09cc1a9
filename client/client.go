package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/sagarc03/docvault"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultExpires is the default presigned URL expiry (15 minutes).
	DefaultExpires = 15 * time.Minute

	// DefaultRetryCount is how often a request is retried after a 5xx or transport error.
	DefaultRetryCount = 3

	unsignedPayload = "UNSIGNED-PAYLOAD"
	signingService  = "s3"
)

// Client performs operations against a docvault server.
type Client struct {
	config *Config
	doer   heimdall.Doer
	signer *v4.Signer
	now    func() time.Time

	timeout    time.Duration
	retryCount int
	backoff    heimdall.Backoff
}

// Option configures a Client.
type Option func(*Client)

// WithDoer sets the transport requests are sent through, bypassing the built-in retries.
func WithDoer(doer heimdall.Doer) Option {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRetry sets how often failed requests are retried and the backoff between attempts.
func WithRetry(count int, backoff heimdall.Backoff) Option {
	return func(c *Client) {
		c.retryCount = count
		c.backoff = backoff
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")

	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	c := &Client{
		config: cfg,
		signer: v4.NewSigner(func(o *v4.SignerOptions) {
			o.DisableURIPathEscaping = true
		}),
		now:        time.Now,
		timeout:    DefaultTimeout,
		retryCount: DefaultRetryCount,
		backoff:    heimdall.NewExponentialBackoff(200*time.Millisecond, 5*time.Second, 2.0, 100*time.Millisecond),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.doer == nil {
		c.doer = httpclient.NewClient(
			httpclient.WithHTTPTimeout(c.timeout),
			httpclient.WithRetryCount(c.retryCount),
			httpclient.WithRetrier(heimdall.NewRetrier(c.backoff)),
		)
	}

	return c, nil
}

// documentPath returns the escaped request path of a document.
func documentPath(name string) string {
	return docvault.DocumentsPath + url.PathEscape(name)
}

// presign returns the URL for method and path, presigned with AWS Signature V4
// when credentials are configured.
func (c *Client) presign(ctx context.Context, method, path string, query url.Values) (string, error) {
	target := c.config.Endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if !c.config.Signed() {
		return target, nil
	}

	req, err := http.NewRequestWithContext(ctx, method, target, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create presign request: %w", err)
	}

	q := req.URL.Query()
	q.Set("X-Amz-Expires", strconv.Itoa(int(DefaultExpires.Seconds())))
	req.URL.RawQuery = q.Encode()

	creds := aws.Credentials{AccessKeyID: c.config.AccessKey, SecretAccessKey: c.config.SecretKey}
	signed, _, err := c.signer.PresignHTTP(ctx, creds, req, unsignedPayload, signingService, c.config.Region, c.now())
	if err != nil {
		return "", fmt.Errorf("presign %s %s: %w", method, path, err)
	}

	return signed, nil
}

// PresignGet returns a download URL for name that anyone can use until it expires.
func (c *Client) PresignGet(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	return c.presign(ctx, http.MethodGet, documentPath(name), nil)
}

// do sends a presigned request and returns the response when its status is
// one of ok. Any other status is returned as an *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header, ok ...int) (*http.Response, error) {
	target, err := c.presign(ctx, method, path, query)
	if err != nil {
		return nil, err
	}

	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	for _, code := range ok {
		if resp.StatusCode == code {
			return resp, nil
		}
	}

	defer func() { _ = resp.Body.Close() }()
	errBody, _ := io.ReadAll(resp.Body)
	return nil, parseServerError(resp.StatusCode, errBody)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header, out any, ok ...int) error {
	resp, err := c.do(ctx, method, path, query, body, header, ok...)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Upload uploads a local file as a document.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (UploadResult, error) {
	if opts.LocalPath == "" {
		return UploadResult{}, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(opts.LocalPath)
	}

	file, err := os.Open(opts.LocalPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return UploadResult{}, fmt.Errorf("upload %s: %w", opts.LocalPath, ErrIsDirectory)
	}

	doc, err := c.Put(ctx, name, file, opts.ContentType, opts.IfMatch)
	if err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		LocalPath:    opts.LocalPath,
		Name:         doc.Name,
		URL:          doc.URL,
		ContentType:  doc.ContentType,
		ETag:         doc.ETag,
		Size:         doc.Size,
		LastModified: doc.LastModified,
	}, nil
}

// Put writes content as the document name. An empty contentType lets the
// server derive it from the name; a non-empty ifMatch makes the write conditional.
func (c *Client) Put(ctx context.Context, name string, content io.Reader, contentType, ifMatch string) (DocumentInfo, error) {
	if name == "" {
		return DocumentInfo{}, fmt.Errorf("put: %w", ErrEmptyName)
	}

	if contentType == "" {
		contentType = docvault.ContentTypeFor(name)
	}
	header := http.Header{"Content-Type": {contentType}}
	if ifMatch != "" {
		header.Set("If-Match", `"`+strings.Trim(ifMatch, `"`)+`"`)
	}

	var doc DocumentInfo
	if err := c.doJSON(ctx, http.MethodPut, documentPath(name), nil, content, header, &doc, http.StatusOK, http.StatusCreated); err != nil {
		return DocumentInfo{}, fmt.Errorf("put %s: %w", name, err)
	}
	return doc, nil
}

// Download downloads a document.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.Name == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyName)
	}

	resp, err := c.do(ctx, http.MethodGet, documentPath(opts.Name), nil, nil, nil, http.StatusOK)
	if err != nil {
		return nil, nil, fmt.Errorf("download %s: %w", opts.Name, err)
	}

	result := &DownloadResult{
		Name:        opts.Name,
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}
	defer func() { _ = resp.Body.Close() }()

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = attachmentName(resp.Header.Get("Content-Disposition"), opts.Name)
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, err := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return nil, nil, fmt.Errorf("create file: %w", err)
	}

	written, copyErr := io.Copy(file, resp.Body)
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// attachmentName picks the file name from a Content-Disposition header,
// falling back when the header is missing or names a path.
func attachmentName(disposition, fallback string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fallback
	}
	name := params["filename"]
	if name == "" || name != filepath.Base(name) {
		return fallback
	}
	return name
}

// Stat returns document metadata without downloading the content.
func (c *Client) Stat(ctx context.Context, name string) (DocumentInfo, error) {
	if name == "" {
		return DocumentInfo{}, fmt.Errorf("stat: %w", ErrEmptyName)
	}

	resp, err := c.do(ctx, http.MethodHead, documentPath(name), nil, nil, nil, http.StatusOK)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("stat %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	info := DocumentInfo{
		Name:        name,
		URL:         c.config.Endpoint + documentPath(name),
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		Size:        resp.ContentLength,
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		info.LastModified = lm
	}
	return info, nil
}

// Delete deletes one or more documents.
// Continues on error, collecting results for all names.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Names) == 0 {
		return nil, ErrNoNames
	}

	results := make([]DeleteResult, 0, len(opts.Names))
	for _, name := range opts.Names {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := DeleteResult{Name: name}
		resp, err := c.do(ctx, http.MethodDelete, documentPath(name), nil, nil, nil, http.StatusNoContent, http.StatusOK)
		if err != nil {
			result.Err = err
		} else {
			_ = resp.Body.Close()
			result.Deleted = true
		}
		results = append(results, result)
	}

	return results, nil
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// List lists documents on the server.
// If opts.All is true, paginates through all results.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if !opts.All {
		return c.listPage(ctx, opts)
	}

	all := &ListResult{Items: []DocumentInfo{}}
	cursor := opts.Cursor
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.listPage(ctx, ListOptions{Prefix: opts.Prefix, Limit: opts.Limit, Cursor: cursor})
		if err != nil {
			return nil, err
		}

		all.Items = append(all.Items, page.Items...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) listPage(ctx context.Context, opts ListOptions) (*ListResult, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(max(1, min(1000, cmpOr(opts.Limit, 100)))))
	if opts.Prefix != "" {
		query.Set("prefix", opts.Prefix)
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	var result ListResult
	if err := c.doJSON(ctx, http.MethodGet, strings.TrimSuffix(docvault.DocumentsPath, "/"), query, nil, nil, &result, http.StatusOK); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	if result.Items == nil {
		result.Items = []DocumentInfo{}
	}
	return &result, nil
}

func cmpOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// TotalSize calculates the total size of all items in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

// SetTemplate uploads a local .docx file as the server's document template.
func (c *Client) SetTemplate(ctx context.Context, localPath string) (TemplateInfo, error) {
	if localPath == "" {
		return TemplateInfo{}, fmt.Errorf("set template: %w", ErrEmptyPath)
	}

	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return TemplateInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(localPath))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	var info TemplateInfo
	header := http.Header{"Content-Type": {mw.FormDataContentType()}}
	if err := c.doJSON(ctx, http.MethodPost, "/template", nil, pr, header, &info, http.StatusOK); err != nil {
		_ = pr.CloseWithError(err)
		return TemplateInfo{}, fmt.Errorf("set template: %w", err)
	}
	return info, nil
}

// TemplateInfo reports whether the server has a template.
func (c *Client) TemplateInfo(ctx context.Context) (TemplateInfo, error) {
	var info TemplateInfo
	if err := c.doJSON(ctx, http.MethodGet, "/template/info", nil, nil, nil, &info, http.StatusOK); err != nil {
		return TemplateInfo{}, fmt.Errorf("template info: %w", err)
	}
	return info, nil
}

// ClearTemplate removes the server's template.
func (c *Client) ClearTemplate(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/template", nil, nil, nil, nil, http.StatusNoContent); err != nil {
		return fmt.Errorf("clear template: %w", err)
	}
	return nil
}

// Health fetches the server's health report. An unhealthy server is reported
// through Health.Status together with an *APIError.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil, nil, &h, http.StatusOK)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		_ = json.Unmarshal([]byte(apiErr.Body), &h)
	}
	if err != nil {
		return h, fmt.Errorf("health: %w", err)
	}
	return h, nil
}

// parseServerError extracts error details from a server response.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	}

	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	// Code and Message are set when the server answered with a JSON error body.
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + ": " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested document does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrForbidden is returned when the presigned request was rejected (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrPreconditionFailed is returned when a conditional upload lost to a concurrent writer (412).
	ErrPreconditionFailed = &APIError{StatusCode: http.StatusPreconditionFailed}

	// ErrUnavailable is returned when the server's storage is temporarily unavailable (503).
	ErrUnavailable = &APIError{StatusCode: http.StatusServiceUnavailable}
)
