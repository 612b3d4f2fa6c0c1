package services_test

import (
	"errors"
	"strings"
	"testing"

	"convertify/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "engine", "exec", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"engine", "exec", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

type classified struct{ kind string }

func (c classified) Error() string     { return "classified" }
func (c classified) ErrorKind() string { return c.kind }

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", services.Wrap(services.ErrValidation, "queue", "set format", "bad", nil), "validation"},
		{"external", services.Wrap(services.ErrExternalTool, "engine", "exec", "", nil), "external_tool"},
		{"timeout", services.Wrap(services.ErrTimeout, "engine", "load", "", nil), "timeout"},
		{"plain", errors.New("io"), "transient"},
		{"classifier", classified{kind: "exec_failed"}, "exec_failed"},
		{"wrapped classifier", services.Wrap(services.ErrValidation, "", "", "", classified{kind: "write_failed"}), "write_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Kind(tc.err); got != tc.want {
				t.Fatalf("Kind() = %q, want %q", got, tc.want)
			}
		})
	}
}
