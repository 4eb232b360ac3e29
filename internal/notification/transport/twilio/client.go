// Package twilio sends WhatsApp messages through the Twilio Messages API.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bloodlink/internal/notification"
	"bloodlink/pkg/platform/circuit"
)

const (
	whatsAppPrefix  = "whatsapp:"
	maxResponseBody = 64 << 10
)

// ErrCircuitOpen is returned without calling Twilio while the breaker is open.
var ErrCircuitOpen = errors.New("twilio circuit open")

// Config holds the account credentials and sender address.
type Config struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// Client implements notification.Transport.
type Client struct {
	endpoint   string
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithBreaker short-circuits sends after repeated transport failures.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/2010-04-01/Accounts/" + url.PathEscape(cfg.AccountSID) + "/Messages.json",
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       whatsAppAddress(cfg.From),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// whatsAppAddress prefixes a phone number with the WhatsApp channel unless
// it already carries it.
func whatsAppAddress(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, whatsAppPrefix) {
		return phone
	}
	return whatsAppPrefix + phone
}

type messageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts one message. Any 2xx with a decodable body is accepted; other
// statuses are a rejection. Network failures, timeouts and undecodable 2xx
// bodies are returned as errors.
func (c *Client) Send(ctx context.Context, msg notification.OutboundMessage) (notification.Receipt, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return notification.Receipt{}, ErrCircuitOpen
	}

	form := url.Values{
		"From": {c.from},
		"To":   {whatsAppAddress(msg.To)},
		"Body": {msg.Body},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return notification.Receipt{}, fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return notification.Receipt{}, fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.recordFailure(ctx)
		return notification.Receipt{}, fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			c.recordFailure(ctx)
		} else {
			c.recordSuccess(ctx)
		}
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		c.logger.DebugContext(ctx, "twilio rejected message",
			"status_code", resp.StatusCode,
			"twilio_code", apiErr.Code,
			"twilio_message", apiErr.Message,
		)
		return notification.Receipt{StatusCode: resp.StatusCode}, nil
	}

	var out messageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		c.recordFailure(ctx)
		return notification.Receipt{StatusCode: resp.StatusCode}, fmt.Errorf("decode twilio response: %w", err)
	}
	c.recordSuccess(ctx)
	return notification.Receipt{Accepted: true, StatusCode: resp.StatusCode, MessageID: out.SID}, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "twilio circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "twilio circuit closed", "breaker", c.breaker.Name())
	}
}
