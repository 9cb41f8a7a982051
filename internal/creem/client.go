// Package creem talks to the Creem payment processor: checkout session
// creation and webhook signature verification. Subscription lifecycle events
// are acknowledged but not acted on yet.
package creem

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pixelmint/pixelmint/internal/config"
)

// ErrNotConfigured is returned when the API key is missing.
var ErrNotConfigured = errors.New("creem API key is not configured")

// SignatureHeader is the HTTP header Creem signs webhook deliveries with.
const SignatureHeader = "creem-signature"

type Client struct {
	apiKey        string
	baseURL       string
	webhookSecret string
	httpClient    *http.Client
	log           *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	return &Client{
		apiKey:        cfg.CreemAPIKey,
		baseURL:       strings.TrimRight(cfg.CreemBaseURL, "/"),
		webhookSecret: cfg.CreemWebhookSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type CheckoutRequest struct {
	ProductID     string
	CustomerEmail string
	Metadata      map[string]any
	SuccessURL    string
}

type CheckoutSession struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckout opens a checkout session for one product.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(map[string]any{
		"product_id": req.ProductID,
		"customer": map[string]any{
			"email": req.CustomerEmail,
		},
		"metadata":    req.Metadata,
		"success_url": req.SuccessURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post checkout: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read checkout response: %w", err)
	}

	if resp.StatusCode >= 300 {
		c.log.Error("creem checkout failed", "status", resp.StatusCode, "body", strings.TrimSpace(string(rawBody)))
		return nil, fmt.Errorf("creem error: status=%d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.Unmarshal(rawBody, &session); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if session.CheckoutURL == "" {
		return nil, fmt.Errorf("no checkout_url in creem response")
	}
	return &session, nil
}

// VerifySignature checks the HMAC-SHA256 hex signature Creem computes over
// the raw webhook body.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	if c.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Event is one webhook delivery.
type Event struct {
	EventType string          `json:"eventType"`
	Object    json.RawMessage `json:"object"`
}

// EventObject is the subset of the event payload this system consumes.
type EventObject struct {
	ID    string `json:"id"`
	Order struct {
		ID string `json:"id"`
	} `json:"order"`
	Customer struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"customer"`
	Metadata map[string]any `json:"metadata"`
}

func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("webhook event has no eventType")
	}
	return &event, nil
}

func (e *Event) DecodeObject() (*EventObject, error) {
	var obj EventObject
	if err := json.Unmarshal(e.Object, &obj); err != nil {
		return nil, fmt.Errorf("decode event object: %w", err)
	}
	return &obj, nil
}
