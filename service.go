package docvault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sagarc03/docvault"

// Backend defines the storage medium behind the service.
// Implementations can use a local directory, a mounted volume, or an object store.
//
// All methods accept a context for cancellation and timeout control.
// Names handed to a backend are already validated by the service; backends
// only need to keep them inside their root.
type Backend interface {
	// Kind reports the variant of this backend.
	Kind() Kind

	// Identity returns a stable identifier of the storage location, e.g. "disk:/mnt/disk/documents"
	// or "s3:bucket". Two backends with different identities never share documents.
	Identity() string

	// Put stores content under name, replacing any existing document.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - name: The document name
	//   - content: io.Reader providing the data to write
	//   - opts: Content type and optional IfMatch precondition
	//
	// Returns:
	//   - Location: Info of the stored document plus its backend URI
	//   - error: ErrConflict if IfMatch does not match, or other storage errors
	//
	// Implementations must write atomically: a concurrent reader sees either the
	// old content or the new one, never a mix.
	Put(ctx context.Context, name string, content io.Reader, opts PutOptions) (Location, error)

	// Get opens a document for reading.
	//
	// Returns:
	//   - io.ReadCloser: Reader for the document content. When the backend can seek,
	//     the reader also implements io.Seeker
	//   - Info: Size, ETag, content type and last-modified time
	//   - error: ErrNotFound if the document does not exist, or other storage errors
	//
	// The caller is responsible for closing the returned reader.
	Get(ctx context.Context, name string) (io.ReadCloser, Info, error)

	// Stat returns document info without opening the content.
	Stat(ctx context.Context, name string) (Info, error)

	// Delete removes a document. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, name string) error

	// List returns every stored document sorted by name. Reserved names and
	// in-flight temp files are never included.
	List(ctx context.Context) ([]Info, error)

	// Exists reports whether a document is stored under name. A missing
	// document is (false, nil); only transport or permission problems are errors.
	Exists(ctx context.Context, name string) (bool, error)

	// Ping checks that the backing medium is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error
}

// Presigner is implemented by backends that can hand out time-limited
// direct download links.
type Presigner interface {
	PresignGet(ctx context.Context, name string, expires time.Duration) (string, error)
}

// Catalog is an optional metadata index kept in sync with the backend.
// Implementations are scoped to a single backend identity.
type Catalog interface {
	// Get returns the record for name, or ErrNotFound.
	Get(ctx context.Context, name string) (Record, error)
	// Upsert creates or updates the record for info.Name and reports whether it was inserted.
	Upsert(ctx context.Context, info Info) (Record, bool, error)
	// Delete removes the record for name, or returns ErrNotFound.
	Delete(ctx context.Context, name string) error
	// List returns records ordered by name, starting after the cursor.
	List(ctx context.Context, q ListQuery) (ListResult, error)
}

// ServiceConfig holds the tunables of a Service.
type ServiceConfig struct {
	// BaseURL is the public address documents are served from.
	BaseURL string
	// Timeout bounds a single backend call. Zero disables the deadline.
	Timeout time.Duration
	Retry   RetryConfig
}

// Service validates names and wraps a Backend with deadlines, retries,
// tracing and optional catalog maintenance.
type Service struct {
	backend Backend
	catalog Catalog
	urls    URLBuilder
	cfg     ServiceConfig
	tracer  trace.Tracer
}

// NewService creates a Service. catalog may be nil.
func NewService(backend Backend, catalog Catalog, cfg ServiceConfig) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("new service: backend is required: %w", ErrConfiguration)
	}

	urls, err := NewURLBuilder(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("new service: %w", err)
	}

	return &Service{
		backend: backend,
		catalog: catalog,
		urls:    urls,
		cfg:     cfg,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Kind reports the active backend variant.
func (s *Service) Kind() Kind {
	return s.backend.Kind()
}

// URL returns the public retrieval URL for name.
func (s *Service) URL(name string) string {
	return s.urls.URL(name)
}

// Ping checks the backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.run(ctx, 1, func(ctx context.Context, _ int) error {
		return s.backend.Ping(ctx)
	})
}

// Put stores content under name and returns the resulting Document.
// Content is retried on transient failures only when it implements io.Seeker.
func (s *Service) Put(ctx context.Context, name string, content io.Reader, opts PutOptions) (doc Document, err error) {
	ctx, span := s.startSpan(ctx, "Put", name)
	defer func() { endSpan(span, err) }()

	if !IsValidName(name) {
		return Document{}, fmt.Errorf("put: invalid name %q: %w", name, ErrInvalidInput)
	}

	loc, err := s.put(ctx, name, content, opts)
	if err != nil {
		return Document{}, fmt.Errorf("put: %w", err)
	}

	s.syncCatalog(ctx, loc.Info)

	return Document{Location: loc, URL: s.urls.URL(name)}, nil
}

func (s *Service) put(ctx context.Context, name string, content io.Reader, opts PutOptions) (Location, error) {
	if opts.ContentType == "" {
		opts.ContentType = ContentTypeFor(name)
	}

	attempts := s.cfg.Retry.attempts()
	seeker, rewindable := content.(io.Seeker)
	if !rewindable {
		attempts = 1
	}

	var loc Location
	err := s.run(ctx, attempts, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind content: %w", err)
			}
		}

		var err error
		loc, err = s.backend.Put(ctx, name, content, opts)
		return err
	})
	if err != nil {
		return Location{}, err
	}

	return loc, nil
}

// Get opens the document stored under name.
// The caller is responsible for closing the returned reader.
func (s *Service) Get(ctx context.Context, name string) (rc io.ReadCloser, info Info, err error) {
	ctx, span := s.startSpan(ctx, "Get", name)
	defer func() { endSpan(span, err) }()

	if !IsValidName(name) {
		return nil, Info{}, fmt.Errorf("get: invalid name %q: %w", name, ErrInvalidInput)
	}

	// The reader outlives this call, so it is opened under the caller's
	// context instead of the per-call deadline.
	err = s.run(ctx, s.cfg.Retry.attempts(), func(_ context.Context, _ int) error {
		var getErr error
		rc, info, getErr = s.backend.Get(ctx, name)
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.dropStale(ctx, name)
		}
		return nil, Info{}, fmt.Errorf("get: %w", err)
	}

	return rc, info, nil
}

// Stat returns document info.
func (s *Service) Stat(ctx context.Context, name string) (info Info, err error) {
	ctx, span := s.startSpan(ctx, "Stat", name)
	defer func() { endSpan(span, err) }()

	if !IsValidName(name) {
		return Info{}, fmt.Errorf("stat: invalid name %q: %w", name, ErrInvalidInput)
	}

	err = s.run(ctx, s.cfg.Retry.attempts(), func(ctx context.Context, _ int) error {
		var statErr error
		info, statErr = s.backend.Stat(ctx, name)
		return statErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.dropStale(ctx, name)
		}
		return Info{}, fmt.Errorf("stat: %w", err)
	}

	return info, nil
}

// Exists reports whether a document is stored under name.
// Invalid names are reported as absent.
func (s *Service) Exists(ctx context.Context, name string) (found bool, err error) {
	ctx, span := s.startSpan(ctx, "Exists", name)
	defer func() { endSpan(span, err) }()

	if !IsValidName(name) {
		return false, nil
	}

	err = s.run(ctx, s.cfg.Retry.attempts(), func(ctx context.Context, _ int) error {
		var existsErr error
		found, existsErr = s.backend.Exists(ctx, name)
		return existsErr
	})
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}

	return found, nil
}

// Delete removes the document stored under name. Returns ErrNotFound when it
// does not exist. A retry that finds the document already gone after a
// transient failure counts as success.
func (s *Service) Delete(ctx context.Context, name string) (err error) {
	ctx, span := s.startSpan(ctx, "Delete", name)
	defer func() { endSpan(span, err) }()

	if !IsValidName(name) {
		return fmt.Errorf("delete: invalid name %q: %w", name, ErrInvalidInput)
	}

	err = s.run(ctx, s.cfg.Retry.attempts(), func(ctx context.Context, attempt int) error {
		delErr := s.backend.Delete(ctx, name)
		if attempt > 1 && errors.Is(delErr, ErrNotFound) {
			return nil
		}
		return delErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.dropStale(ctx, name)
		}
		return fmt.Errorf("delete: %w", err)
	}

	if s.catalog != nil {
		if catErr := s.catalog.Delete(ctx, name); catErr != nil && !errors.Is(catErr, ErrNotFound) {
			slog.Warn("failed to remove catalog record", "name", name, "err", catErr)
		}
	}

	return nil
}

// List returns the names of all stored documents, sorted.
func (s *Service) List(ctx context.Context) (names []string, err error) {
	ctx, span := s.startSpan(ctx, "List", "")
	defer func() { endSpan(span, err) }()

	items, err := s.listBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	names = make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}

	return names, nil
}

// ListPage returns one page of documents ordered by name. The catalog serves
// the page when configured; otherwise the backend listing is paged in memory.
func (s *Service) ListPage(ctx context.Context, q ListQuery) (result ListResult, err error) {
	ctx, span := s.startSpan(ctx, "ListPage", "")
	defer func() { endSpan(span, err) }()

	q.Limit = clampLimit(q.Limit)

	after, err := DecodeCursor(q.Cursor)
	if err != nil {
		return ListResult{}, fmt.Errorf("list page: %w", err)
	}

	if s.catalog != nil {
		result, err = s.catalog.List(ctx, q)
		if err != nil {
			return ListResult{}, fmt.Errorf("list page: %w", err)
		}
		return result, nil
	}

	items, err := s.listBackend(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("list page: %w", err)
	}

	return pageItems(items, q.Prefix, after, q.Limit), nil
}

func (s *Service) listBackend(ctx context.Context) ([]Info, error) {
	var items []Info
	err := s.run(ctx, s.cfg.Retry.attempts(), func(ctx context.Context, _ int) error {
		var listErr error
		items, listErr = s.backend.List(ctx)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Copy duplicates src under dst, overwriting dst.
func (s *Service) Copy(ctx context.Context, src, dst string) (Document, error) {
	if !IsValidName(dst) {
		return Document{}, fmt.Errorf("copy: invalid name %q: %w", dst, ErrInvalidInput)
	}

	rc, info, err := s.Get(ctx, src)
	if err != nil {
		return Document{}, fmt.Errorf("copy: %w", err)
	}
	defer func() { _ = rc.Close() }()

	doc, err := s.Put(ctx, dst, rc, PutOptions{ContentType: info.ContentType})
	if err != nil {
		return Document{}, fmt.Errorf("copy: %w", err)
	}

	return doc, nil
}

// DownloadURL returns a time-limited direct link when the backend can presign,
// and the public URL otherwise.
func (s *Service) DownloadURL(ctx context.Context, name string, expires time.Duration) (string, error) {
	if !IsValidName(name) {
		return "", fmt.Errorf("download url: invalid name %q: %w", name, ErrInvalidInput)
	}

	p, ok := s.backend.(Presigner)
	if !ok {
		return s.urls.URL(name), nil
	}

	u, err := p.PresignGet(ctx, name, expires)
	if err != nil {
		return "", fmt.Errorf("download url: %w", err)
	}

	return u, nil
}

// ReindexResult summarizes a catalog rebuild.
type ReindexResult struct {
	Indexed int `json:"indexed"`
	Pruned  int `json:"pruned"`
}

// Reindex rebuilds the catalog from the backend listing and prunes records
// of documents that no longer exist.
func (s *Service) Reindex(ctx context.Context) (result ReindexResult, err error) {
	ctx, span := s.startSpan(ctx, "Reindex", "")
	defer func() { endSpan(span, err) }()

	if s.catalog == nil {
		return ReindexResult{}, fmt.Errorf("reindex: no catalog configured: %w", ErrConfiguration)
	}

	items, err := s.listBackend(ctx)
	if err != nil {
		return ReindexResult{}, fmt.Errorf("reindex: %w", err)
	}

	present := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, _, err := s.catalog.Upsert(ctx, item); err != nil {
			return result, fmt.Errorf("reindex: upsert %s: %w", item.Name, err)
		}
		present[item.Name] = struct{}{}
		result.Indexed++
	}

	var stale []string
	cursor := ""
	for {
		page, err := s.catalog.List(ctx, ListQuery{Limit: 1000, Cursor: cursor})
		if err != nil {
			return result, fmt.Errorf("reindex: list catalog: %w", err)
		}
		for _, item := range page.Items {
			if _, ok := present[item.Name]; !ok {
				stale = append(stale, item.Name)
			}
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	for _, name := range stale {
		if err := s.catalog.Delete(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
			return result, fmt.Errorf("reindex: prune %s: %w", name, err)
		}
		result.Pruned++
	}

	return result, nil
}

func (s *Service) syncCatalog(ctx context.Context, info Info) {
	if s.catalog == nil {
		return
	}
	if _, _, err := s.catalog.Upsert(ctx, info); err != nil {
		slog.Warn("failed to update catalog record", "name", info.Name, "err", err)
	}
}

// dropStale removes a catalog record whose document vanished out of band.
func (s *Service) dropStale(ctx context.Context, name string) {
	if s.catalog == nil {
		return
	}
	err := s.catalog.Delete(ctx, name)
	if err == nil {
		slog.Info("removed stale catalog record", "name", name)
		return
	}
	if !errors.Is(err, ErrNotFound) {
		slog.Warn("failed to remove stale catalog record", "name", name, "err", err)
	}
}

func (s *Service) startSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("docvault.backend", string(s.backend.Kind()))}
	if name != "" {
		attrs = append(attrs, attribute.String("docvault.name", name))
	}
	return s.tracer.Start(ctx, "docvault."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return min(limit, 1000)
}

// pageItems pages a name-sorted listing.
func pageItems(items []Info, prefix, after string, limit int) ListResult {
	result := ListResult{Items: []Info{}}
	for _, item := range items {
		if !strings.HasPrefix(item.Name, prefix) || item.Name <= after {
			continue
		}
		if len(result.Items) == limit {
			result.NextCursor = EncodeCursor(result.Items[len(result.Items)-1].Name)
			break
		}
		result.Items = append(result.Items, item)
	}
	return result
}
