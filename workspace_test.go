package docvault_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/docvault"
	"github.com/sagarc03/docvault/filesystem"
)

func newDiskService(t *testing.T) *docvault.Service {
	t.Helper()

	store, err := filesystem.Open(docvault.KindLocal, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, err := docvault.NewService(store, nil, docvault.ServiceConfig{BaseURL: testBaseURL})
	require.NoError(t, err)
	return s
}

func readDoc(t *testing.T, s *docvault.Service, name string) string {
	t.Helper()

	rc, _, err := s.Get(context.Background(), name)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(body)
}

func appendText(text string) docvault.EditFunc {
	return func(_ context.Context, path string) error {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		if _, err := f.WriteString(text); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
}

func TestService_Template(t *testing.T) {
	s := newDiskService(t)
	ctx := context.Background()

	info, err := s.TemplateInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Exists)

	_, _, err = s.Template(ctx)
	assert.ErrorIs(t, err, docvault.ErrNotFound)

	stored, err := s.SetTemplate(ctx, strings.NewReader("template body"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), stored.Size)
	assert.Equal(t, docvault.DocxContentType, stored.ContentType)

	info, err = s.TemplateInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(13), info.Size)

	rc, _, err := s.Template(ctx)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "template body", string(body))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "template must not show up as a document")

	_, _, err = s.Get(ctx, docvault.TemplateName)
	assert.ErrorIs(t, err, docvault.ErrInvalidInput)

	require.NoError(t, s.ClearTemplate(ctx))
	assert.ErrorIs(t, s.ClearTemplate(ctx), docvault.ErrNotFound)

	info, err = s.TemplateInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestNewWorkspace(t *testing.T) {
	s := newDiskService(t)

	_, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{Policy: "first_writer_wins"})
	assert.ErrorIs(t, err, docvault.ErrConfiguration)

	_, err = docvault.NewWorkspace(s, docvault.WorkspaceConfig{})
	assert.NoError(t, err)
}

func TestWorkspace_Edit(t *testing.T) {
	t.Run("mutates existing document", func(t *testing.T) {
		s := newDiskService(t)
		scratch := t.TempDir()
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: scratch})
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "notes.txt", strings.NewReader("hello"), docvault.PutOptions{})
		require.NoError(t, err)

		doc, err := ws.Edit(ctx, "notes.txt", docvault.EditOptions{}, appendText(" world"))
		require.NoError(t, err)

		assert.Equal(t, "http://docs.example.com/documents/notes.txt", doc.URL)
		assert.Equal(t, int64(11), doc.Size)
		assert.Equal(t, "hello world", readDoc(t, s, "notes.txt"))

		entries, err := os.ReadDir(scratch)
		require.NoError(t, err)
		assert.Empty(t, entries, "scratch directory must be removed")
	})

	t.Run("missing document", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir()})
		require.NoError(t, err)

		_, err = ws.Edit(context.Background(), "missing.docx", docvault.EditOptions{}, appendText("x"))
		assert.ErrorIs(t, err, docvault.ErrNotFound)
	})

	t.Run("creates from template", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir()})
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.SetTemplate(ctx, strings.NewReader("letterhead"))
		require.NoError(t, err)

		doc, err := ws.Edit(ctx, "letter.docx", docvault.EditOptions{CreateIfMissing: true}, appendText(" body"))
		require.NoError(t, err)

		assert.Equal(t, docvault.DocxContentType, doc.ContentType)
		assert.Equal(t, "letterhead body", readDoc(t, s, "letter.docx"))
	})

	t.Run("creates empty without template", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir()})
		require.NoError(t, err)

		_, err = ws.Edit(context.Background(), "new.txt", docvault.EditOptions{CreateIfMissing: true, ContentType: "text/markdown"}, appendText("fresh"))
		require.NoError(t, err)

		info, err := s.Stat(context.Background(), "new.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.Size)
		assert.Equal(t, "fresh", readDoc(t, s, "new.txt"))
	})

	t.Run("failed edit leaves document untouched", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir()})
		require.NoError(t, err)
		ctx := context.Background()
		boom := errors.New("converter crashed")

		_, err = s.Put(ctx, "a.txt", strings.NewReader("original"), docvault.PutOptions{})
		require.NoError(t, err)

		_, err = ws.Edit(ctx, "a.txt", docvault.EditOptions{}, func(_ context.Context, path string) error {
			require.NoError(t, os.WriteFile(path, []byte("half written"), 0o600))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "original", readDoc(t, s, "a.txt"))
	})

	t.Run("removed scratch copy", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir()})
		require.NoError(t, err)

		_, err = ws.Edit(context.Background(), "a.txt", docvault.EditOptions{CreateIfMissing: true}, func(_ context.Context, path string) error {
			return os.Remove(path)
		})
		assert.ErrorIs(t, err, docvault.ErrInvalidInput)
	})

	t.Run("invalid name", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir()})
		require.NoError(t, err)

		_, err = ws.Edit(context.Background(), "../a.txt", docvault.EditOptions{CreateIfMissing: true}, appendText("x"))
		assert.ErrorIs(t, err, docvault.ErrInvalidInput)
	})
}

func TestWorkspace_ConcurrentWriter(t *testing.T) {
	// concurrentPut simulates another writer replacing the document while the
	// scratch copy is being edited.
	concurrentPut := func(s *docvault.Service) docvault.EditFunc {
		return func(ctx context.Context, path string) error {
			if _, err := s.Put(ctx, "shared.txt", strings.NewReader("theirs"), docvault.PutOptions{}); err != nil {
				return err
			}
			return os.WriteFile(path, []byte("mine"), 0o600)
		}
	}

	t.Run("optimistic rejects stale put-back", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir(), Policy: docvault.Optimistic})
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "shared.txt", strings.NewReader("base"), docvault.PutOptions{})
		require.NoError(t, err)

		_, err = ws.Edit(ctx, "shared.txt", docvault.EditOptions{}, concurrentPut(s))
		assert.ErrorIs(t, err, docvault.ErrConflict)
		assert.Equal(t, "theirs", readDoc(t, s, "shared.txt"))
	})

	t.Run("last writer wins overwrites", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir(), Policy: docvault.LastWriterWins})
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "shared.txt", strings.NewReader("base"), docvault.PutOptions{})
		require.NoError(t, err)

		_, err = ws.Edit(ctx, "shared.txt", docvault.EditOptions{}, concurrentPut(s))
		require.NoError(t, err)
		assert.Equal(t, "mine", readDoc(t, s, "shared.txt"))
	})

	t.Run("optimistic accepts unchanged document", func(t *testing.T) {
		s := newDiskService(t)
		ws, err := docvault.NewWorkspace(s, docvault.WorkspaceConfig{ScratchDir: t.TempDir(), Policy: docvault.Optimistic})
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "shared.txt", strings.NewReader("base"), docvault.PutOptions{})
		require.NoError(t, err)

		_, err = ws.Edit(ctx, "shared.txt", docvault.EditOptions{}, appendText("+1"))
		require.NoError(t, err)
		assert.Equal(t, "base+1", readDoc(t, s, "shared.txt"))
	})
}
