package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"convertify/internal/config"
	"convertify/internal/formats"
	"convertify/internal/metrics"
)

const userAgent = "Convertify-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventJobSucceeded Event = "job_succeeded"
	EventJobSkipped   Event = "job_skipped"
	EventJobFailed    Event = "job_failed"
	EventFileRejected Event = "file_rejected"
	EventRunCompleted Event = "run_completed"
	EventTest         Event = "test"
)

// Payload carries event-specific values.
type Payload map[string]any

// Service publishes events to the user.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyRequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobSucceeded: cfg.Notifications.Succeeded,
			EventJobSkipped:   cfg.Notifications.Skipped,
			EventJobFailed:    cfg.Notifications.Failed,
			EventFileRejected: cfg.Notifications.Rejected,
			EventRunCompleted: cfg.Notifications.Summary,
			EventTest:         true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.enabled[event] {
		return nil
	}
	message, ok := n.format(event, data)
	if !ok {
		return nil
	}
	err := n.send(ctx, message)
	metrics.RecordNotification(string(event), err)
	return err
}

func (n *ntfyService) format(event Event, data Payload) (payload, bool) {
	file := stringValue(data, "file")
	switch event {
	case EventJobSucceeded:
		return payload{
			title:   "Convertify - Converted",
			message: fmt.Sprintf("✅ Converted %s to %s", file, formats.Label(formats.Format(stringValue(data, "format")))),
			tags:    []string{"convertify", "job", "succeeded"},
		}, true
	case EventJobSkipped:
		return payload{
			title:   "Convertify - Target Format Missing",
			message: fmt.Sprintf("⏭️ Skipped %s: %s", file, stringValue(data, "reason")),
			tags:    []string{"convertify", "job", "skipped"},
		}, true
	case EventJobFailed:
		return payload{
			title:    "Convertify - Conversion Error",
			message:  fmt.Sprintf("❌ Error converting %s: %s", file, stringValue(data, "error")),
			tags:     []string{"convertify", "job", "failed"},
			priority: "high",
		}, true
	case EventFileRejected:
		return payload{
			title:   "Convertify - Invalid File Format",
			message: fmt.Sprintf("The file %q is not accepted.", file),
			tags:    []string{"convertify", "intake", "rejected"},
		}, true
	case EventRunCompleted:
		succeeded := intValue(data, "succeeded")
		failed := intValue(data, "failed")
		skipped := intValue(data, "skipped")
		duration := durationValue(data, "duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		title := "Convertify - Conversion Completed"
		if failed > 0 {
			title = "Convertify - Conversion Completed (with errors)"
		}
		return payload{
			title:   title,
			message: fmt.Sprintf("%d converted, %d failed, %d skipped in %s", succeeded, failed, skipped, duration),
			tags:    []string{"convertify", "run", "completed"},
		}, true
	case EventTest:
		return payload{
			title:    "Convertify - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"convertify", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(data Payload, key string) string {
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func intValue(data Payload, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func durationValue(data Payload, key string) time.Duration {
	if v, ok := data[key].(time.Duration); ok {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
