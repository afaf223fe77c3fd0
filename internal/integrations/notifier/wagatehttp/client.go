package wagatehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/tapango/cargotrack/internal/integrations/notifier"
)

// Client шлёт текстовые сообщения через HTTP-шлюз WhatsApp.
// Таймаут обязателен: недоступный шлюз не должен подвешивать consumer.
type Client struct {
	baseURL string
	apiKey  string
	sender  string
	httpc   *http.Client
}

func New(baseURL, apiKey, sender string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendReq struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendResp struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) Send(ctx context.Context, msg notifier.Message) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = "/v1/messages"

	body, err := json.Marshal(sendReq{From: c.sender, To: msg.To, Body: msg.Text})
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("whatsapp gateway http %d", resp.StatusCode)
	}

	var r sendResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return errors.Wrap(err, "decode")
	}
	if r.Status != "ok" && r.Status != "queued" {
		return fmt.Errorf("whatsapp gateway status=%s error=%s", r.Status, r.Error)
	}
	return nil
}
