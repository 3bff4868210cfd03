package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

var (
	ErrUnconfiguredNetwork = errors.New("no webhook configured for network")
	ErrDelivery            = errors.New("webhook delivery failed")
)

// Payload is what the automation pipeline receives for one post.
type Payload struct {
	ID      string `json:"post_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Network string `json:"network"`
}

type Dispatcher interface {
	Send(ctx context.Context, p Payload) error
}

type webhookDispatcher struct {
	endpoints map[string]string
	client    *http.Client
}

// NewWebhookDispatcher maps each network to its outbound webhook URL.
// Networks absent from the map are undeliverable.
func NewWebhookDispatcher(endpoints map[string]string) Dispatcher {
	return &webhookDispatcher{
		endpoints: endpoints,
		client:    http.DefaultClient,
	}
}

func (d *webhookDispatcher) Send(ctx context.Context, p Payload) error {
	url, ok := d.endpoints[p.Network]
	if !ok || url == "" {
		return fmt.Errorf("%w: %s", ErrUnconfiguredNetwork, p.Network)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		slog.Error("webhook request failed", "network", p.Network, "post_id", p.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("webhook rejected post", "network", p.Network, "post_id", p.ID, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrDelivery, resp.StatusCode)
	}

	return nil
}
