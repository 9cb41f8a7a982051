package creem

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pixelmint/pixelmint/internal/config"
)

func testClient(cfg config.Config) *Client {
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	client := testClient(config.Config{CreemWebhookSecret: "whsec_test"})
	payload := []byte(`{"eventType":"checkout.completed"}`)

	if !client.VerifySignature(payload, sign("whsec_test", payload)) {
		t.Error("valid signature rejected")
	}
	if client.VerifySignature(payload, sign("whsec_other", payload)) {
		t.Error("signature from wrong secret accepted")
	}
	if client.VerifySignature(payload, "") {
		t.Error("empty signature accepted")
	}
	if client.VerifySignature([]byte(`{"eventType":"tampered"}`), sign("whsec_test", payload)) {
		t.Error("signature over different payload accepted")
	}
}

func TestVerifySignatureWithoutSecret(t *testing.T) {
	client := testClient(config.Config{})
	payload := []byte(`{}`)
	if client.VerifySignature(payload, sign("", payload)) {
		t.Error("verification succeeded with no secret configured")
	}
}

func TestCreateCheckout(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{
			"id":           "chk_123",
			"checkout_url": "https://pay.creem.io/chk_123",
		})
	}))
	defer server.Close()

	client := testClient(config.Config{CreemAPIKey: "ck_test", CreemBaseURL: server.URL})

	session, err := client.CreateCheckout(context.Background(), CheckoutRequest{
		ProductID:     "prod_abc",
		CustomerEmail: "u@example.com",
		Metadata:      map[string]any{"user_id": "user-1"},
		SuccessURL:    "https://app.example.com/success",
	})
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	if session.ID != "chk_123" || session.CheckoutURL != "https://pay.creem.io/chk_123" {
		t.Errorf("session = %+v", session)
	}
	if gotPath != "/v1/checkouts" {
		t.Errorf("path = %q, want /v1/checkouts", gotPath)
	}
	if gotAPIKey != "ck_test" {
		t.Errorf("x-api-key = %q", gotAPIKey)
	}
	if gotBody["product_id"] != "prod_abc" {
		t.Errorf("product_id = %v", gotBody["product_id"])
	}
	customer, _ := gotBody["customer"].(map[string]any)
	if customer["email"] != "u@example.com" {
		t.Errorf("customer = %v", gotBody["customer"])
	}
}

func TestCreateCheckoutErrors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		client := testClient(config.Config{})
		if _, err := client.CreateCheckout(context.Background(), CheckoutRequest{}); err != ErrNotConfigured {
			t.Errorf("err = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("upstream error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid product"}`, http.StatusBadRequest)
		}))
		defer server.Close()

		client := testClient(config.Config{CreemAPIKey: "ck_test", CreemBaseURL: server.URL})
		if _, err := client.CreateCheckout(context.Background(), CheckoutRequest{ProductID: "prod_bad"}); err == nil {
			t.Error("expected error for 400 response")
		}
	})

	t.Run("missing checkout url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"id": "chk_123"})
		}))
		defer server.Close()

		client := testClient(config.Config{CreemAPIKey: "ck_test", CreemBaseURL: server.URL})
		if _, err := client.CreateCheckout(context.Background(), CheckoutRequest{ProductID: "prod_abc"}); err == nil {
			t.Error("expected error for response without checkout_url")
		}
	})
}

func TestParseEvent(t *testing.T) {
	event, err := ParseEvent([]byte(`{"eventType":"checkout.completed","object":{"id":"chk_1","customer":{"email":"u@example.com"},"metadata":{"user_id":"user-1"}}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.EventType != "checkout.completed" {
		t.Errorf("eventType = %q", event.EventType)
	}

	obj, err := event.DecodeObject()
	if err != nil {
		t.Fatalf("DecodeObject: %v", err)
	}
	if obj.ID != "chk_1" {
		t.Errorf("object id = %q", obj.ID)
	}
	if obj.Customer.Email != "u@example.com" {
		t.Errorf("customer email = %q", obj.Customer.Email)
	}
	if obj.Metadata["user_id"] != "user-1" {
		t.Errorf("metadata = %v", obj.Metadata)
	}
}

func TestParseEventRejectsBadPayloads(t *testing.T) {
	for _, payload := range []string{"", "not json", `{"object":{}}`} {
		if _, err := ParseEvent([]byte(payload)); err == nil {
			t.Errorf("payload %q: expected error", payload)
		}
	}
}
