// Package filesystem provides the directory-backed storage variants of docvault:
// an ephemeral directory under the working directory and a persistent mounted volume.
// It supports atomic writes using temp files, SHA256-based etags cached by
// size and modification time, and per-name serialized writes with
// compare-and-swap for conditional puts.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sagarc03/docvault"
)

// Store keeps documents as plain files in a single directory.
type Store struct {
	kind  docvault.Kind
	dir   string
	root  *os.Root
	locks *nameLocks
	etags *etagCache
}

// Open opens the directory for the given kind.
//
// For docvault.KindLocal the directory is created if needed, relative paths
// resolving against the working directory. For docvault.KindDisk the parent of
// path is the mount point and must already exist; the directory itself is
// created below it and checked for writability. Failures wrap docvault.ErrConfiguration.
func Open(kind docvault.Kind, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open %s storage: path is required: %w", kind, docvault.ErrConfiguration)
	}

	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w: %w", kind, docvault.ErrConfiguration, err)
	}

	switch kind {
	case docvault.KindLocal:
	case docvault.KindDisk:
		mount := filepath.Dir(dir)
		info, statErr := os.Stat(mount)
		if statErr != nil || !info.IsDir() {
			return nil, fmt.Errorf("open disk storage: mount point %s is not available: %w", mount, docvault.ErrConfiguration)
		}
	default:
		return nil, fmt.Errorf("open filesystem storage: unsupported kind %q: %w", kind, docvault.ErrConfiguration)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("open %s storage: create %s: %w: %w", kind, dir, docvault.ErrConfiguration, err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w: %w", kind, docvault.ErrConfiguration, err)
	}

	s := &Store{kind: kind, dir: dir, root: root, locks: newNameLocks(), etags: newETagCache()}

	if kind == docvault.KindDisk {
		if err := s.checkWritable(); err != nil {
			_ = root.Close()
			return nil, fmt.Errorf("open disk storage: %s is not writable: %w: %w", dir, docvault.ErrConfiguration, err)
		}
	}

	return s, nil
}

func (s *Store) Kind() docvault.Kind {
	return s.kind
}

func (s *Store) Identity() string {
	return string(s.kind) + ":" + s.dir
}

// Dir returns the absolute directory documents are stored in.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Close() error {
	return s.root.Close()
}

// Ping checks that the directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.root.Stat("."); err != nil {
		return mapErr("ping", err)
	}
	return nil
}

// Get opens a document for reading. The returned reader is an *os.File and
// therefore seekable. Returns docvault.ErrNotFound if the file does not exist.
func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, docvault.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, docvault.Info{}, err
	}

	f, err := s.root.Open(name)
	if err != nil {
		return nil, docvault.Info{}, mapErr("get", err)
	}

	info, err := s.describe(f, name)
	if err != nil {
		_ = f.Close()
		return nil, docvault.Info{}, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, docvault.Info{}, fmt.Errorf("get: rewind: %w", err)
	}

	return f, info, nil
}

// Stat returns document info. The content is hashed for the ETag unless the
// file's size and modification time match the last hash taken.
func (s *Store) Stat(ctx context.Context, name string) (docvault.Info, error) {
	if err := ctx.Err(); err != nil {
		return docvault.Info{}, err
	}

	f, err := s.root.Open(name)
	if err != nil {
		return docvault.Info{}, mapErr("stat", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "name", name, "err", closeErr)
		}
	}()

	return s.describe(f, name)
}

func (s *Store) describe(f *os.File, name string) (docvault.Info, error) {
	fi, err := f.Stat()
	if err != nil {
		return docvault.Info{}, mapErr("stat", err)
	}
	if fi.IsDir() {
		return docvault.Info{}, fmt.Errorf("stat %s: is a directory: %w", name, docvault.ErrNotFound)
	}

	etag, ok := s.etags.get(name, fi)
	if !ok {
		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return docvault.Info{}, fmt.Errorf("stat %s: hash: %w", name, err)
		}
		etag = hex.EncodeToString(h.Sum(nil))
		s.etags.set(name, fi, etag)
	}

	return docvault.Info{
		Name:         name,
		Size:         fi.Size(),
		ETag:         etag,
		ContentType:  docvault.ContentTypeFor(name),
		LastModified: fi.ModTime().UTC(),
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under name using a temp file and rename.
// Renames of one name are serialized by a per-name lock. With opts.IfMatch set,
// the current ETag is compared under that lock and a mismatch or a missing
// document fails with docvault.ErrConflict. The
// operation respects context cancellation and never leaves a partial file behind.
func (s *Store) Put(ctx context.Context, name string, content io.Reader, opts docvault.PutOptions) (docvault.Location, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return docvault.Location{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return docvault.Location{}, mapErr("put: open temp file", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	size, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return docvault.Location{}, fmt.Errorf("put: copy contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return docvault.Location{}, fmt.Errorf("put: sync written file: %w", err)
	}

	unlock := s.locks.lock(name)
	defer unlock()

	if opts.IfMatch != "" {
		if err := s.checkETag(ctx, name, opts.IfMatch); err != nil {
			return docvault.Location{}, err
		}
	}

	if renameErr := s.root.Rename(tmpFile, name); renameErr != nil {
		return docvault.Location{}, mapErr("put: rename", renameErr)
	}
	success = true

	contentType := opts.ContentType
	if contentType == "" {
		contentType = docvault.ContentTypeFor(name)
	}

	info := docvault.Info{
		Name:        name,
		Size:        size,
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ContentType: contentType,
	}
	if fi, statErr := s.root.Stat(name); statErr == nil {
		info.LastModified = fi.ModTime().UTC()
		s.etags.set(name, fi, info.ETag)
	} else {
		s.etags.forget(name)
	}

	return docvault.Location{Info: info, URI: filepath.Join(s.dir, name)}, nil
}

func (s *Store) checkETag(ctx context.Context, name, want string) error {
	current, err := s.Stat(ctx, name)
	if errors.Is(err, docvault.ErrNotFound) {
		return fmt.Errorf("put %s: precondition failed, document does not exist: %w", name, docvault.ErrConflict)
	}
	if err != nil {
		return err
	}
	if current.ETag != want {
		return fmt.Errorf("put %s: etag %s does not match %s: %w", name, current.ETag, want, docvault.ErrConflict)
	}
	return nil
}

// Delete removes a document. Returns docvault.ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.locks.lock(name)
	defer unlock()

	if err := s.root.Remove(name); err != nil {
		return mapErr("delete", err)
	}
	s.etags.forget(name)
	return nil
}

// Exists reports whether a regular file is stored under name.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fi, err := s.root.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, mapErr("exists", err)
	}

	return fi.Mode().IsRegular(), nil
}

// List returns every document in the directory with its metadata, sorted by name.
// Hidden files (temp files and the template) and subdirectories are skipped.
func (s *Store) List(ctx context.Context) ([]docvault.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(s.root.FS(), ".")
	if err != nil {
		return nil, mapErr("list", err)
	}

	items := make([]docvault.Info, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !entry.Type().IsRegular() || docvault.IsReservedName(entry.Name()) {
			continue
		}

		info, err := s.Stat(ctx, entry.Name())
		if errors.Is(err, docvault.ErrNotFound) {
			// removed between ReadDir and Stat
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}

		items = append(items, info)
	}

	return items, nil
}

func (s *Store) checkWritable() error {
	name := fmt.Sprintf(".w%s", uuid.New().String())
	f, err := s.root.Create(name)
	if err != nil {
		return err
	}
	_, writeErr := f.Write([]byte("docvault"))
	closeErr := f.Close()
	rmErr := s.root.Remove(name)
	return errors.Join(writeErr, closeErr, rmErr)
}

func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", op, docvault.ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w: %w", op, docvault.ErrAccessDenied, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
