//go:build integration

package minio_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/minio"
)

func startMinio(t *testing.T) *minio.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcminio.Run(ctx, "minio/minio:RELEASE.2024-12-18T13-15-44Z",
		tcminio.WithUsername("docvault"),
		tcminio.WithPassword("docvault-secret"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := minio.Open(ctx, minio.Config{
		Endpoint:        endpoint,
		Bucket:          "docvault-test",
		AccessKeyID:     container.Username,
		SecretAccessKey: container.Password,
		Prefix:          "documents/",
		CreateBucket:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(body)
}

func listNames(t *testing.T, store *minio.Store) []string {
	t.Helper()

	items, err := store.List(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

func TestStore_Minio(t *testing.T) {
	store := startMinio(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		loc, err := store.Put(ctx, "report.docx", strings.NewReader("docx body"), docvault.PutOptions{})
		require.NoError(t, err)
		assert.Equal(t, "s3://docvault-test/documents/report.docx", loc.URI)
		assert.NotEmpty(t, loc.ETag)

		rc, info, err := store.Get(ctx, "report.docx")
		require.NoError(t, err)
		assert.Equal(t, "docx body", readAll(t, rc))
		assert.Equal(t, int64(9), info.Size)
		assert.Equal(t, loc.ETag, info.ETag)
		assert.Equal(t, docvault.DocxContentType, info.ContentType)
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := store.Get(ctx, "missing.docx")
		assert.ErrorIs(t, err, docvault.ErrNotFound)

		_, err = store.Stat(ctx, "missing.docx")
		assert.ErrorIs(t, err, docvault.ErrNotFound)

		assert.ErrorIs(t, store.Delete(ctx, "missing.docx"), docvault.ErrNotFound)
	})

	t.Run("exists before and after put", func(t *testing.T) {
		found, err := store.Exists(ctx, "fresh.docx")
		require.NoError(t, err)
		assert.False(t, found)

		_, err = store.Put(ctx, "fresh.docx", strings.NewReader("fresh"), docvault.PutOptions{})
		require.NoError(t, err)

		found, err = store.Exists(ctx, "fresh.docx")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("list reflects puts and deletes", func(t *testing.T) {
		_, err := store.Put(ctx, docvault.TemplateName, strings.NewReader("tpl"), docvault.PutOptions{})
		require.NoError(t, err)
		_, err = store.Put(ctx, "a.docx", strings.NewReader("a"), docvault.PutOptions{})
		require.NoError(t, err)

		assert.Equal(t, []string{"a.docx", "fresh.docx", "report.docx"}, listNames(t, store))

		require.NoError(t, store.Delete(ctx, "a.docx"))
		assert.Equal(t, []string{"fresh.docx", "report.docx"}, listNames(t, store))
	})

	t.Run("if-match", func(t *testing.T) {
		first, err := store.Put(ctx, "shared.docx", strings.NewReader("v1"), docvault.PutOptions{})
		require.NoError(t, err)

		second, err := store.Put(ctx, "shared.docx", strings.NewReader("v2"), docvault.PutOptions{IfMatch: first.ETag})
		require.NoError(t, err)

		_, err = store.Put(ctx, "shared.docx", strings.NewReader("stale"), docvault.PutOptions{IfMatch: first.ETag})
		assert.ErrorIs(t, err, docvault.ErrConflict)

		rc, info, err := store.Get(ctx, "shared.docx")
		require.NoError(t, err)
		assert.Equal(t, "v2", readAll(t, rc))
		assert.Equal(t, second.ETag, info.ETag)
	})

	t.Run("if-match on missing document", func(t *testing.T) {
		_, err := store.Put(ctx, "ghost.docx", strings.NewReader("x"), docvault.PutOptions{IfMatch: "0123456789abcdef"})
		assert.ErrorIs(t, err, docvault.ErrConflict)

		found, err := store.Exists(ctx, "ghost.docx")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
