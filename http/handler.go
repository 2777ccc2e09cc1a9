package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sagarc03/docvault"
)

// Service is the document service the handlers delegate to. *docvault.Service implements it.
type Service interface {
	Kind() docvault.Kind
	URL(name string) string
	Ping(ctx context.Context) error
	Put(ctx context.Context, name string, content io.Reader, opts docvault.PutOptions) (docvault.Document, error)
	Get(ctx context.Context, name string) (io.ReadCloser, docvault.Info, error)
	Stat(ctx context.Context, name string) (docvault.Info, error)
	Delete(ctx context.Context, name string) error
	ListPage(ctx context.Context, q docvault.ListQuery) (docvault.ListResult, error)
	SetTemplate(ctx context.Context, content io.Reader) (docvault.Info, error)
	TemplateInfo(ctx context.Context) (docvault.TemplateInfo, error)
	ClearTemplate(ctx context.Context) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// ReadVerifier guards document downloads and listings. Nil means public.
	ReadVerifier RequestVerifier
	// WriteVerifier guards uploads, deletes and template changes. Nil means public.
	WriteVerifier RequestVerifier
	CORS          CORSConfig
	// MaxUploadSize caps request bodies in bytes. Zero or less disables the cap.
	MaxUploadSize int64
	// Registry receives the HTTP metrics and backs GET /metrics. A fresh
	// registry is created when nil.
	Registry *prometheus.Registry
}

// Handler serves documents over HTTP.
type Handler struct {
	config   HandlerConfig
	service  Service
	metrics  *Metrics
	registry *prometheus.Registry
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) (*Handler, error) {
	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	metrics, err := NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Handler{
		config:   *config,
		service:  service,
		metrics:  metrics,
		registry: registry,
	}, nil
}

// Router returns the instrumented http.Handler with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(h.metrics.Middleware)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.ReadVerifier))
		r.Get("/documents", h.handleList)
		r.Get("/documents/{filename}", h.handleGet)
		r.Head("/documents/{filename}", h.handleHead)
		r.Get("/template/info", h.handleTemplateInfo)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.config.WriteVerifier))
		r.Use(h.limitBody)
		r.Put("/documents/{filename}", h.handlePut)
		r.Delete("/documents/{filename}", h.handleDelete)
		r.Post("/template", h.handleSetTemplate)
		r.Post("/upload-template", h.handleSetTemplate)
		r.Delete("/template", h.handleClearTemplate)
	})

	return otelhttp.NewHandler(r, "docvault.http")
}

func (h *Handler) limitBody(next http.Handler) http.Handler {
	if h.config.MaxUploadSize <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
		next.ServeHTTP(w, r)
	})
}

// documentName extracts the {filename} route parameter. chi matches against
// the raw path when the request carries escaped characters.
func documentName(r *http.Request) (string, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || !docvault.IsValidName(name) {
		return "", false
	}
	return name, true
}

type healthResponse struct {
	Status  string        `json:"status"`
	Storage docvault.Kind `json:"storage"`
	Error   string        `json:"error,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "storage", h.service.Kind(), "error", err)
		_ = WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "unavailable",
			Storage: h.service.Kind(),
			Error:   err.Error(),
		})
		return
	}

	_ = WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Storage: h.service.Kind()})
}

type documentView struct {
	docvault.Info
	URL string `json:"url"`
}

type listResponse struct {
	Items      []documentView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	limitStr := r.URL.Query().Get("limit")
	cursor := r.URL.Query().Get("cursor")

	limit := 100
	if limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_input", "limit must be an integer")
			return
		}
		limit = max(1, min(1000, parsed))
	}

	result, err := h.service.ListPage(r.Context(), docvault.ListQuery{
		Prefix: prefix,
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	resp := listResponse{Items: make([]documentView, 0, len(result.Items)), NextCursor: result.NextCursor}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, documentView{Info: item, URL: h.service.URL(item.Name)})
	}

	_ = WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := documentName(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid document name")
		return
	}

	content, info, err := h.service.Get(r.Context(), name)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	setDocumentHeaders(w, name, info)

	if rs, ok := content.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, info.LastModified, rs)
		return
	}

	if match := r.Header.Get("If-None-Match"); match != "" && trimETag(match) == info.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if !info.LastModified.IsZero() {
		w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	if info.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		slog.Warn("failed to stream document", "name", name, "error", err)
	}
}

func (h *Handler) handleHead(w http.ResponseWriter, r *http.Request) {
	name, ok := documentName(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	info, err := h.service.Stat(r.Context(), name)
	if err != nil {
		w.WriteHeader(statusFor(err))
		return
	}

	setDocumentHeaders(w, name, info)
	if !info.LastModified.IsZero() {
		w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
}

func setDocumentHeaders(w http.ResponseWriter, name string, info docvault.Info) {
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	name, ok := documentName(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid document name")
		return
	}

	opts := docvault.PutOptions{
		ContentType: r.Header.Get("Content-Type"),
		IfMatch:     trimETag(r.Header.Get("If-Match")),
	}

	doc, err := h.service.Put(r.Context(), name, r.Body, opts)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := documentName(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid document name")
		return
	}

	if err := h.service.Delete(r.Context(), name); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTemplateInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.TemplateInfo(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, info)
}

// handleSetTemplate accepts the template either as the raw request body or
// as the "file" field of a multipart form.
func (h *Handler) handleSetTemplate(w http.ResponseWriter, r *http.Request) {
	var content io.Reader = r.Body

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				HandleError(w, err)
				return
			}
			WriteError(w, http.StatusBadRequest, "invalid_input", "multipart upload requires a \"file\" field")
			return
		}
		defer func() { _ = file.Close() }()
		content = file
	}

	info, err := h.service.SetTemplate(r.Context(), content)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, docvault.TemplateInfo{
		Exists:       true,
		Size:         info.Size,
		LastModified: info.LastModified,
	})
}

func (h *Handler) handleClearTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearTemplate(r.Context()); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func trimETag(etag string) string {
	return strings.Trim(strings.TrimPrefix(strings.TrimSpace(etag), "W/"), `"`)
}
