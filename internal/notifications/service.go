package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tcgprice/internal/config"
)

const userAgent = "tcgprice/0.1.0"

// Event identifies an operator alert.
type Event string

const (
	EventRunFailed    Event = "run_failed"
	EventRunCompleted Event = "run_completed"
	EventPriceMovers  Event = "price_movers"
	EventTest         Event = "test"
)

// Payload carries event fields by name.
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case time.Duration:
		return v.Round(time.Second).String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Service publishes operator alerts.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventRunFailed:    cfg.Notifications.RunFailures,
			EventRunCompleted: cfg.Notifications.RunSummaries,
			EventPriceMovers:  cfg.Notifications.PriceMovers,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	job := payload.text("job")
	if job == "" {
		job = "job"
	}
	switch event {
	case EventRunFailed:
		errText := payload.text("error")
		if errText == "" {
			errText = "unknown"
		}
		return message{
			title:    "tcgprice - Job Failed",
			body:     fmt.Sprintf("❌ %s failed: %s", job, errText),
			tags:     []string{"tcgprice", job, "failed"},
			priority: "high",
		}, true
	case EventRunCompleted:
		body := fmt.Sprintf("✅ %s finished", job)
		if d := payload.text("duration"); d != "" {
			body += " in " + d
		}
		if summary := payload.text("summary"); summary != "" {
			body += "\n" + summary
		}
		return message{
			title: "tcgprice - Job Complete",
			body:  body,
			tags:  []string{"tcgprice", job, "completed"},
		}, true
	case EventPriceMovers:
		body := fmt.Sprintf("📊 %s price changes detected", payload.text("count"))
		if summary := payload.text("summary"); summary != "" {
			body += "\n" + summary
		}
		return message{
			title: "tcgprice - Price Movers",
			body:  body,
			tags:  []string{"tcgprice", "price", "changes"},
		}, true
	case EventTest:
		return message{
			title:    "tcgprice - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"tcgprice", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
