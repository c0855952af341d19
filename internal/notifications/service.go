package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liepavoice/internal/config"
)

const userAgent = "liepavoice"

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Kind     string
	Status   string
	Records  int
	Duration time.Duration
	Detail   string
}

// Notifier is told about finished runs.
type Notifier interface {
	RunFinished(ctx context.Context, summary Summary) error
	Test(ctx context.Context) error
}

// NewNotifier builds an ntfy notifier when a topic is configured.
func NewNotifier(cfg *config.Config) Notifier {
	topic := strings.TrimSpace(cfg.Notify.NtfyTopic)
	if topic == "" {
		return noopNotifier{}
	}
	timeout := time.Duration(cfg.Notify.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyNotifier{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyNotifier) RunFinished(ctx context.Context, summary Summary) error {
	return n.send(ctx, summaryPayload(summary))
}

func (n *ntfyNotifier) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "liepavoice - Test",
		message:  "Notification system test",
		tags:     []string{"liepavoice", "test"},
		priority: "low",
	})
}

func summaryPayload(s Summary) payload {
	kind := strings.TrimSpace(s.Kind)
	if kind == "" {
		kind = "run"
	}
	duration := s.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d records in %s", kind, s.Status, s.Records, duration)
	if detail := strings.TrimSpace(s.Detail); detail != "" {
		b.WriteString("\n")
		b.WriteString(detail)
	}
	if s.RunID != "" {
		b.WriteString("\nRun ")
		b.WriteString(s.RunID)
	}

	data := payload{
		title:   fmt.Sprintf("liepavoice - %s %s", titleCase(kind), s.Status),
		message: b.String(),
		tags:    []string{"liepavoice", kind, s.Status},
	}
	switch s.Status {
	case "failed":
		data.priority = "high"
		data.tags = append(data.tags, "alert")
	case "interrupted":
		data.priority = "low"
	}
	return data
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (n *ntfyNotifier) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

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
	if data.priority != "" {
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

type noopNotifier struct{}

func (noopNotifier) RunFinished(context.Context, Summary) error { return nil }
func (noopNotifier) Test(context.Context) error                 { return nil }
