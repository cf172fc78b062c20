package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// logNotifier writes messages to the log. Used when no delivery endpoint is configured.
type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("component", "log-notifier").Logger()}
}

func (n *logNotifier) Send(_ context.Context, msg Message) error {
	event := n.logger.Info().
		Str("kind", string(msg.Kind)).
		Str("to", msg.To)
	for k, v := range msg.Vars {
		event = event.Str("var_"+k, v)
	}
	event.Msg("notification")
	return nil
}

// webhookNotifier posts messages as JSON to the mail service.
type webhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier creates a notifier that POSTs each message to url.
// A nil client uses http.DefaultClient.
func NewWebhookNotifier(url string, client *http.Client, logger zerolog.Logger) Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &webhookNotifier{
		url:    url,
		client: client,
		logger: logger.With().Str("component", "webhook-notifier").Logger(),
	}
}

func (n *webhookNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	n.logger.Debug().Str("kind", string(msg.Kind)).Int("status", resp.StatusCode).Msg("notification delivered")
	return nil
}
