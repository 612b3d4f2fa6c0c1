package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"convertify/internal/config"
	"convertify/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobSucceeded, notifications.Payload{"file": "a.png"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "job succeeded",
			event:         notifications.EventJobSucceeded,
			payload:       notifications.Payload{"file": "holiday.mov", "format": "mp4"},
			expectTitle:   "Convertify - Converted",
			expectMessage: "✅ Converted holiday.mov to MP4",
			expectTags:    "convertify,job,succeeded",
		},
		{
			name:          "job skipped",
			event:         notifications.EventJobSkipped,
			payload:       notifications.Payload{"file": "song.wav", "reason": "no target format selected"},
			expectTitle:   "Convertify - Target Format Missing",
			expectMessage: "⏭️ Skipped song.wav: no target format selected",
			expectTags:    "convertify,job,skipped",
		},
		{
			name:           "job failed",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{"file": "clip.avi", "error": errors.New("engine exited 1")},
			expectTitle:    "Convertify - Conversion Error",
			expectMessage:  "❌ Error converting clip.avi: engine exited 1",
			expectTags:     "convertify,job,failed",
			expectPriority: "high",
		},
		{
			name:          "file rejected",
			event:         notifications.EventFileRejected,
			payload:       notifications.Payload{"file": "notes.txt"},
			expectTitle:   "Convertify - Invalid File Format",
			expectMessage: `The file "notes.txt" is not accepted.`,
			expectTags:    "convertify,intake,rejected",
		},
		{
			name:  "run completed with errors",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"succeeded": 3,
				"failed":    1,
				"skipped":   2,
				"duration":  90*time.Second + 400*time.Millisecond,
			},
			expectTitle:   "Convertify - Conversion Completed (with errors)",
			expectMessage: "3 converted, 1 failed, 2 skipped in 1m30s",
			expectTags:    "convertify,run,completed",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Convertify - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "convertify,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Succeeded = false
	cfg.Notifications.Skipped = false
	cfg.Notifications.Summary = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventJobSucceeded,
		notifications.EventJobSkipped,
		notifications.EventRunCompleted,
		notifications.Event("unknown"),
	}

	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"file": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic disabled", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}
