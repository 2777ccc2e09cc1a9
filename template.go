package docvault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// SetTemplate stores content as the document template. New documents created
// through a Workspace start from it.
func (s *Service) SetTemplate(ctx context.Context, content io.Reader) (Info, error) {
	ctx, span := s.startSpan(ctx, "SetTemplate", TemplateName)
	loc, err := s.put(ctx, TemplateName, content, PutOptions{ContentType: DocxContentType})
	endSpan(span, err)
	if err != nil {
		return Info{}, fmt.Errorf("set template: %w", err)
	}

	slog.Info("template stored", "size", loc.Size, "backend", s.backend.Kind())
	return loc.Info, nil
}

// Template opens the stored template. Returns ErrNotFound when none is set.
func (s *Service) Template(ctx context.Context) (io.ReadCloser, Info, error) {
	var (
		rc   io.ReadCloser
		info Info
	)
	err := s.run(ctx, s.cfg.Retry.attempts(), func(_ context.Context, _ int) error {
		var getErr error
		rc, info, getErr = s.backend.Get(ctx, TemplateName)
		return getErr
	})
	if err != nil {
		return nil, Info{}, fmt.Errorf("template: %w", err)
	}

	return rc, info, nil
}

// TemplateInfo reports whether a template is stored and its size.
func (s *Service) TemplateInfo(ctx context.Context) (TemplateInfo, error) {
	var info Info
	err := s.run(ctx, s.cfg.Retry.attempts(), func(ctx context.Context, _ int) error {
		var statErr error
		info, statErr = s.backend.Stat(ctx, TemplateName)
		return statErr
	})
	if errors.Is(err, ErrNotFound) {
		return TemplateInfo{}, nil
	}
	if err != nil {
		return TemplateInfo{}, fmt.Errorf("template info: %w", err)
	}

	return TemplateInfo{Exists: true, Size: info.Size, LastModified: info.LastModified}, nil
}

// ClearTemplate removes the stored template. Returns ErrNotFound when none is set.
func (s *Service) ClearTemplate(ctx context.Context) error {
	err := s.run(ctx, s.cfg.Retry.attempts(), func(ctx context.Context, attempt int) error {
		delErr := s.backend.Delete(ctx, TemplateName)
		if attempt > 1 && errors.Is(delErr, ErrNotFound) {
			return nil
		}
		return delErr
	})
	if err != nil {
		return fmt.Errorf("clear template: %w", err)
	}
	return nil
}
