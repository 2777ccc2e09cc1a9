package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/client"
	"github.com/sagarc03/docvault/filesystem"
	docvaulthttp "github.com/sagarc03/docvault/http"
	"github.com/sagarc03/docvault/keybackend"
)

const (
	testAccessKey = "AKIATEST"
	testSecretKey = "testsecret"
)

// startServer runs the real HTTP stack on a temporary directory, requiring
// signatures for reads and writes.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := filesystem.Open(docvault.KindDisk, filepath.Join(t.TempDir(), "documents"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var router http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	service, err := docvault.NewService(store, nil, docvault.ServiceConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	verifier := docvault.NewSignatureVerifier(
		docvault.AuthConfig{Region: client.DefaultRegion, Service: "s3"},
		keybackend.NewMapSecretStore(map[string]string{testAccessKey: testSecretKey}),
	)

	handler, err := docvaulthttp.NewHandler(&docvaulthttp.HandlerConfig{
		ReadVerifier:  verifier,
		WriteVerifier: verifier,
	}, service)
	require.NoError(t, err)
	router = handler.Router()

	return srv
}

func noRetry() client.Option {
	return client.WithRetry(0, heimdall.NewConstantBackoff(time.Millisecond, 0))
}

func newClient(t *testing.T, endpoint string) *client.Client {
	t.Helper()

	c, err := client.New(&client.Config{
		Endpoint:  endpoint,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
	}, noRetry())
	require.NoError(t, err)
	return c
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := client.New(nil)
		assert.ErrorIs(t, err, client.ErrConfigRequired)
	})

	t.Run("empty config uses defaults", func(t *testing.T) {
		c, err := client.New(&client.Config{})
		require.NoError(t, err)
		assert.NotNil(t, c)
	})
}

func TestClient_RoundTrip(t *testing.T) {
	srv := startServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	local := writeFile(t, "q3 report.docx", "quarterly numbers")

	uploaded, err := c.Upload(ctx, client.UploadOptions{LocalPath: local})
	require.NoError(t, err)
	assert.Equal(t, "q3 report.docx", uploaded.Name)
	assert.Equal(t, srv.URL+"/documents/q3%20report.docx", uploaded.URL)
	assert.Equal(t, docvault.DocxContentType, uploaded.ContentType)
	assert.Equal(t, int64(len("quarterly numbers")), uploaded.Size)
	assert.NotEmpty(t, uploaded.ETag)

	t.Run("stat", func(t *testing.T) {
		info, err := c.Stat(ctx, "q3 report.docx")
		require.NoError(t, err)
		assert.Equal(t, uploaded.ETag, info.ETag)
		assert.Equal(t, uploaded.Size, info.Size)
		assert.False(t, info.LastModified.IsZero())
	})

	t.Run("list", func(t *testing.T) {
		result, err := c.List(ctx, client.ListOptions{})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "q3 report.docx", result.Items[0].Name)
		assert.Equal(t, uploaded.URL, result.Items[0].URL)
	})

	t.Run("download to file", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out", "copy.docx")
		result, rc, err := c.Download(ctx, client.DownloadOptions{Name: "q3 report.docx", LocalPath: target})
		require.NoError(t, err)
		assert.Nil(t, rc)
		assert.Equal(t, target, result.LocalPath)
		assert.Equal(t, uploaded.ETag, result.ETag)

		body, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "quarterly numbers", string(body))
	})

	t.Run("download to stream", func(t *testing.T) {
		result, rc, err := c.Download(ctx, client.DownloadOptions{Name: "q3 report.docx", LocalPath: "-"})
		require.NoError(t, err)
		require.NotNil(t, rc)
		defer func() { _ = rc.Close() }()

		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "quarterly numbers", string(body))
		assert.Equal(t, "-", result.LocalPath)
	})

	t.Run("presigned get works without credentials", func(t *testing.T) {
		link, err := c.PresignGet(ctx, "q3 report.docx")
		require.NoError(t, err)

		resp, err := http.Get(link) //nolint:noctx // test helper
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		results, err := c.Delete(ctx, client.DeleteOptions{Names: []string{"q3 report.docx", "missing.docx"}})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.True(t, results[0].Deleted)
		assert.NoError(t, results[0].Err)
		assert.False(t, results[1].Deleted)
		assert.ErrorIs(t, results[1].Err, client.ErrNotFound)
		assert.True(t, client.HasDeleteErrors(results))

		_, err = c.Stat(ctx, "q3 report.docx")
		assert.ErrorIs(t, err, client.ErrNotFound)
	})
}

func TestClient_Unsigned(t *testing.T) {
	srv := startServer(t)

	c, err := client.New(&client.Config{Endpoint: srv.URL}, noRetry())
	require.NoError(t, err)

	_, err = c.List(context.Background(), client.ListOptions{})
	assert.ErrorIs(t, err, client.ErrForbidden)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestClient_WrongSecret(t *testing.T) {
	srv := startServer(t)

	c, err := client.New(&client.Config{
		Endpoint:  srv.URL,
		AccessKey: testAccessKey,
		SecretKey: "wrong",
	}, noRetry())
	require.NoError(t, err)

	_, err = c.Put(context.Background(), "a.docx", bytes.NewReader([]byte("a")), "", "")
	assert.ErrorIs(t, err, client.ErrForbidden)
}

func TestClient_ConditionalPut(t *testing.T) {
	srv := startServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	first, err := c.Put(ctx, "memo.docx", bytes.NewReader([]byte("v1")), "", "")
	require.NoError(t, err)

	second, err := c.Put(ctx, "memo.docx", bytes.NewReader([]byte("v2")), "", first.ETag)
	require.NoError(t, err)
	assert.NotEqual(t, first.ETag, second.ETag)

	_, err = c.Put(ctx, "memo.docx", bytes.NewReader([]byte("v3")), "", first.ETag)
	assert.ErrorIs(t, err, client.ErrPreconditionFailed)
}

func TestClient_ListAll(t *testing.T) {
	srv := startServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	for _, name := range []string{"a.docx", "b.docx", "c.docx"} {
		_, err := c.Put(ctx, name, bytes.NewReader([]byte(name)), "", "")
		require.NoError(t, err)
	}

	page, err := c.List(ctx, client.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)

	all, err := c.List(ctx, client.ListOptions{Limit: 1, All: true})
	require.NoError(t, err)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "c.docx", all.Items[2].Name)
	assert.Empty(t, all.NextCursor)
	assert.Equal(t, int64(18), all.TotalSize())
}

func TestClient_Template(t *testing.T) {
	srv := startServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	info, err := c.TemplateInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Exists)

	local := writeFile(t, "letterhead.docx", "template body")
	info, err = c.SetTemplate(ctx, local)
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(len("template body")), info.Size)

	info, err = c.TemplateInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.Exists)

	result, err := c.List(ctx, client.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	require.NoError(t, c.ClearTemplate(ctx))

	info, err = c.TemplateInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestClient_Health(t *testing.T) {
	srv := startServer(t)
	c := newClient(t, srv.URL)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "disk", h.Storage)
}

func TestClient_HealthUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable","storage":"s3","error":"bucket unreachable"}`))
	}))
	defer srv.Close()

	c, err := client.New(&client.Config{Endpoint: srv.URL}, noRetry())
	require.NoError(t, err)

	h, err := c.Health(context.Background())
	assert.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, "unavailable", h.Status)
	assert.Equal(t, "bucket unreachable", h.Error)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"name":"a.docx","size_bytes":1}]}`))
	}))
	defer srv.Close()

	c, err := client.New(&client.Config{Endpoint: srv.URL},
		client.WithRetry(3, heimdall.NewConstantBackoff(time.Millisecond, 0)))
	require.NoError(t, err)

	result, err := c.List(context.Background(), client.ListOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_InputErrors(t *testing.T) {
	c, err := client.New(&client.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Upload(ctx, client.UploadOptions{})
	assert.ErrorIs(t, err, client.ErrEmptyPath)

	_, err = c.Upload(ctx, client.UploadOptions{LocalPath: t.TempDir()})
	assert.ErrorIs(t, err, client.ErrIsDirectory)

	_, _, err = c.Download(ctx, client.DownloadOptions{})
	assert.ErrorIs(t, err, client.ErrEmptyName)

	_, err = c.Delete(ctx, client.DeleteOptions{})
	assert.ErrorIs(t, err, client.ErrNoNames)

	_, err = c.SetTemplate(ctx, "")
	assert.ErrorIs(t, err, client.ErrEmptyPath)
}

func TestAPIError(t *testing.T) {
	err := &client.APIError{StatusCode: http.StatusNotFound, Code: "not_found", Message: "document not found"}
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.NotErrorIs(t, err, client.ErrForbidden)
	assert.Equal(t, "server error: 404 not_found: document not found", err.Error())

	raw := &client.APIError{StatusCode: http.StatusBadGateway, Body: "bad gateway"}
	assert.Equal(t, "server error: 502 - bad gateway", raw.Error())
}
