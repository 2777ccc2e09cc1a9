package docvault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ConflictPolicy decides what happens when two edits of one document overlap.
type ConflictPolicy string

const (
	// LastWriterWins lets the later put overwrite the earlier one unconditionally.
	LastWriterWins ConflictPolicy = "last_writer_wins"
	// Optimistic makes the put-back conditional on the ETag seen when the
	// scratch copy was taken; a concurrent change yields ErrConflict.
	Optimistic ConflictPolicy = "optimistic"
)

func (p ConflictPolicy) IsValid() bool {
	return p == LastWriterWins || p == Optimistic
}

// WorkspaceConfig configures scratch copies.
type WorkspaceConfig struct {
	// ScratchDir is where per-edit temp directories are created. Empty uses os.TempDir.
	ScratchDir string
	Policy     ConflictPolicy
}

// EditOptions tunes a single Edit.
type EditOptions struct {
	// CreateIfMissing starts a missing document from the template, or from an
	// empty file when no template is stored.
	CreateIfMissing bool
	// ContentType overrides the content type of the put-back.
	ContentType string
}

// EditFunc mutates the scratch copy at path.
type EditFunc func(ctx context.Context, path string) error

// Workspace runs the get, mutate, put-back workflow against a Service.
// Editing code never touches backend storage directly.
type Workspace struct {
	service *Service
	cfg     WorkspaceConfig
}

func NewWorkspace(service *Service, cfg WorkspaceConfig) (*Workspace, error) {
	if cfg.Policy == "" {
		cfg.Policy = LastWriterWins
	}
	if !cfg.Policy.IsValid() {
		return nil, fmt.Errorf("new workspace: invalid conflict policy %q: %w", cfg.Policy, ErrConfiguration)
	}
	return &Workspace{service: service, cfg: cfg}, nil
}

// Edit copies name into a private scratch directory, calls fn with the scratch
// path and puts the result back under name only if fn succeeds. The scratch
// directory is removed on every exit path.
func (w *Workspace) Edit(ctx context.Context, name string, opts EditOptions, fn EditFunc) (Document, error) {
	if !IsValidName(name) {
		return Document{}, fmt.Errorf("edit: invalid name %q: %w", name, ErrInvalidInput)
	}

	dir, err := os.MkdirTemp(w.cfg.ScratchDir, "docvault-edit-")
	if err != nil {
		return Document{}, fmt.Errorf("edit: create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.Warn("failed to remove scratch dir", "dir", dir, "err", rmErr)
		}
	}()

	path := filepath.Join(dir, name)

	etag, err := w.checkout(ctx, name, path, opts.CreateIfMissing)
	if err != nil {
		return Document{}, fmt.Errorf("edit: %w", err)
	}

	if err := fn(ctx, path); err != nil {
		return Document{}, fmt.Errorf("edit %s: %w", name, err)
	}

	f, err := os.Open(path) //nolint:gosec // path is inside our own scratch dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, fmt.Errorf("edit: scratch copy was removed: %w", ErrInvalidInput)
		}
		return Document{}, fmt.Errorf("edit: open scratch copy: %w", err)
	}
	defer func() { _ = f.Close() }()

	putOpts := PutOptions{ContentType: opts.ContentType}
	if w.cfg.Policy == Optimistic {
		putOpts.IfMatch = etag
	}

	doc, err := w.service.Put(ctx, name, f, putOpts)
	if err != nil {
		return Document{}, fmt.Errorf("edit: %w", err)
	}

	return doc, nil
}

// checkout writes the current content of name to path and returns its ETag.
// A document created from scratch has an empty ETag.
func (w *Workspace) checkout(ctx context.Context, name, path string, create bool) (string, error) {
	rc, info, err := w.service.Get(ctx, name)
	switch {
	case err == nil:
		defer func() { _ = rc.Close() }()
		if err := writeFile(path, rc); err != nil {
			return "", err
		}
		return info.ETag, nil
	case errors.Is(err, ErrNotFound) && create:
		return "", w.seed(ctx, path)
	default:
		return "", err
	}
}

func (w *Workspace) seed(ctx context.Context, path string) error {
	rc, _, err := w.service.Template(ctx)
	if errors.Is(err, ErrNotFound) {
		return writeFile(path, nil)
	}
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	return writeFile(path, rc)
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path is inside our own scratch dir
	if err != nil {
		return fmt.Errorf("create scratch copy: %w", err)
	}

	if r != nil {
		if _, err := io.Copy(f, r); err != nil {
			_ = f.Close()
			return fmt.Errorf("write scratch copy: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close scratch copy: %w", err)
	}
	return nil
}
