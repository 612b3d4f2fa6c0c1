package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"time"
)

// jsonHandler writes one JSON object per record. Job, run and stage ids
// carried by the record's context are added unless the logger or the record
// already sets them. Empty id fields are dropped.
type jsonHandler struct {
	inner   slog.Handler
	bound   map[string]bool
	grouped bool
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			case FieldJobID, FieldRunID, FieldStage, FieldFormat, FieldMediaClass:
				if len(groups) == 0 && attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
					return slog.Attr{}
				}
			}
			return attr
		},
	}

	return &jsonHandler{inner: slog.NewJSONHandler(w, &opts), bound: map[string]bool{}}, nil
}

func (h *jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.grouped {
		return h.inner.Handle(ctx, record)
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return h.inner.Handle(ctx, record)
	}
	present := make(map[string]bool, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		present[attr.Key] = true
		return true
	})
	record = record.Clone()
	for _, field := range fields {
		if !h.bound[field.Key] && !present[field.Key] {
			record.AddAttrs(field)
		}
	}
	return h.inner.Handle(ctx, record)
}

func (h *jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := maps.Clone(h.bound)
	if !h.grouped {
		for _, attr := range attrs {
			bound[attr.Key] = true
		}
	}
	return &jsonHandler{inner: h.inner.WithAttrs(attrs), bound: bound, grouped: h.grouped}
}

func (h *jsonHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &jsonHandler{inner: h.inner.WithGroup(name), bound: h.bound, grouped: true}
}
