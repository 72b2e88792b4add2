package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
)

// webhookDeliverer backs Slack, Discord, Telegram, and generic Webhook
// triggers: each is one HTTP request to a URL. Builds the request, sends,
// drains the body, and classifies the status as transient or permanent.
type webhookDeliverer struct {
	client *http.Client
	url    string
	method string
	header map[string]string
	// bodyFn builds the body and content type: Slack, Discord and Telegram
	// wrap rendered in a JSON object; generic webhooks send the rendered
	// text as-is.
	bodyFn func(rendered string) ([]byte, string)
}

func newSlackDeliverer(client *http.Client, t config.Trigger) *webhookDeliverer {
	return &webhookDeliverer{
		client: client,
		url:    t.URL,
		method: http.MethodPost,
		header: t.Headers,
		bodyFn: func(rendered string) ([]byte, string) {
			b, _ := json.Marshal(map[string]string{"text": rendered})
			return b, "application/json"
		},
	}
}

func newDiscordDeliverer(client *http.Client, t config.Trigger) *webhookDeliverer {
	return &webhookDeliverer{
		client: client,
		url:    t.URL,
		method: http.MethodPost,
		header: t.Headers,
		bodyFn: func(rendered string) ([]byte, string) {
			b, _ := json.Marshal(map[string]string{"content": rendered})
			return b, "application/json"
		},
	}
}

func newGenericWebhookDeliverer(client *http.Client, t config.Trigger) *webhookDeliverer {
	method := t.Method
	if method == "" {
		method = http.MethodPost
	}
	return &webhookDeliverer{
		client: client,
		url:    t.URL,
		method: method,
		header: t.Headers,
		bodyFn: func(rendered string) ([]byte, string) {
			return []byte(rendered), "text/plain; charset=utf-8"
		},
	}
}

// newTelegramDeliverer posts to the bot API's sendMessage endpoint, which
// is itself a bare JSON POST; no dedicated
// client library is warranted for a single endpoint.
func newTelegramDeliverer(client *http.Client, t config.Trigger) *webhookDeliverer {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	chatID := t.ChatID
	return &webhookDeliverer{
		client: client,
		url:    url,
		method: http.MethodPost,
		bodyFn: func(rendered string) ([]byte, string) {
			b, _ := json.Marshal(map[string]string{"chat_id": chatID, "text": rendered})
			return b, "application/json"
		},
	}
}

func (d *webhookDeliverer) deliver(ctx context.Context, rendered string, match filter.Match) error {
	body, contentType := d.bodyFn(rendered)

	req, err := http.NewRequestWithContext(ctx, d.method, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrPermanent, err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range d.header {
		req.Header.Set(k, v)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook request: %w", err) // network error: transient
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == 429 || res.StatusCode >= 500:
		return fmt.Errorf("webhook %s: status %d: %s", d.url, res.StatusCode, respBody) // transient
	default:
		return fmt.Errorf("%w: webhook %s: status %d: %s", ErrPermanent, d.url, res.StatusCode, respBody)
	}
}
