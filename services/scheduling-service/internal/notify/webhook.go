package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/vetclinic/services/scheduling-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WebhookNotifier POSTs each notification as JSON to a dispatcher endpoint.
type WebhookNotifier struct {
	url   string
	token string
	http  *http.Client
	now   func() time.Time
}

func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, msg model.Notification) error {
	if n.url == "" {
		return errors.New("notification webhook url not configured")
	}
	id, raw, err := encode(msg, n.now())
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", id)
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}
	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}
