package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultAPIURL = "https://api.postmarkapp.com/email"

var ErrNotConfigured = errors.New("email client not configured: missing server token")

type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      DefaultAPIURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendVerificationCode mails the code that confirms a new account.
func (c *Client) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	return c.sendCode(ctx, toEmail, code, "Verify your SmartGrocery account", "verify your email")
}

// SendPasswordReset mails the code that authorizes a new password.
func (c *Client) SendPasswordReset(ctx context.Context, toEmail, code string) error {
	return c.sendCode(ctx, toEmail, code, "Reset your SmartGrocery password", "reset your password")
}

func (c *Client) sendCode(ctx context.Context, toEmail, code, subject, action string) error {
	textBody := fmt.Sprintf("Enter this code to %s:\n\n%s\n\nThis code expires in 15 minutes.", action, code)
	htmlBody := fmt.Sprintf(
		`<p>Enter this code to %s:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>This code expires in 15 minutes.</p>`,
		action, code,
	)
	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		// Postmark answers errors with {"ErrorCode": n, "Message": "..."}.
		json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)
		return apiErr
	}
	return nil
}

// APIError is a rejected Postmark request.
type APIError struct {
	Status    int    `json:"-"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("postmark API error: status %d", e.Status)
	}
	return fmt.Sprintf("postmark API error: status %d, code %d: %s", e.Status, e.ErrorCode, e.Message)
}
