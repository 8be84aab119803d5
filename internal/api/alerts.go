package api

import (
	"context"
	"fmt"
	"time"

	"skyrating/internal/config"
	"skyrating/internal/constants"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert is posted as JSON. Content is the field chat webhooks render.
type Alert struct {
	Content string     `json:"content"`
	Level   AlertLevel `json:"level"`
	Source  string     `json:"source"`
	Time    time.Time  `json:"time"`
}

// AlertClient posts operational alerts to a webhook. Without a URL it drops them.
type AlertClient struct {
	url    string
	client *fasthttp.Client
}

func NewAlertClient(cfg *config.Config) *AlertClient {
	return NewAlertClientWithHTTP(cfg.AlertWebhookURL, &fasthttp.Client{
		MaxConnsPerHost:     4,
		ReadTimeout:         constants.AlertTimeout,
		WriteTimeout:        constants.AlertTimeout,
		MaxIdleConnDuration: 1 * time.Minute,
	})
}

func NewAlertClientWithHTTP(url string, client *fasthttp.Client) *AlertClient {
	return &AlertClient{url: url, client: client}
}

func (c *AlertClient) Enabled() bool {
	return c.url != ""
}

func (c *AlertClient) Send(ctx context.Context, level AlertLevel, format string, args ...any) error {
	if !c.Enabled() {
		return nil
	}
	return doPost(ctx, c, Alert{
		Content: fmt.Sprintf(format, args...),
		Level:   level,
		Source:  "skyrating",
		Time:    time.Now().UTC(),
	})
}

func doPost[T any](ctx context.Context, client *AlertClient, body T) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req.SetRequestURI(client.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.AlertTimeout)
	}
	if err := client.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("alert webhook error: %d", code)
	}
	return nil
}
