package mollie

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{APIKey: " test_key ", APIBaseURL: server.URL + "/"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test_key"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	cfg := client.Config()
	if cfg.APIBaseURL != defaultAPIBaseURL || cfg.Currency != "EUR" || cfg.Locale != "pt_PT" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := NewClient(Config{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestCreatePayment(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/payments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test_key" {
			t.Errorf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"resource":"payment","id":"tr_abc123","status":"open","_links":{"checkout":{"href":"https://pay.example/tr_abc123"}}}`))
	})

	result, err := client.CreatePayment(context.Background(), CreateInput{
		Amount:      "19.9",
		Description: "Bolo x1",
		RedirectURL: "https://shop.example/checkout/success",
		WebhookURL:  "https://shop.example/api/payments/mollie/webhook",
		Metadata:    map[string]string{"userId": "u1"},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if result.ID != "tr_abc123" || result.CheckoutURL != "https://pay.example/tr_abc123" {
		t.Fatalf("unexpected result: %+v", result)
	}
	amount, _ := got["amount"].(map[string]interface{})
	if amount["value"] != "19.90" || amount["currency"] != "EUR" {
		t.Fatalf("unexpected amount: %v", got["amount"])
	}
	if got["locale"] != "pt_PT" {
		t.Fatalf("unexpected locale: %v", got["locale"])
	}
	if _, ok := got["method"]; ok {
		t.Fatalf("method should not be sent")
	}
}

func TestCreatePaymentWithoutCheckoutLink(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"tr_nolink","status":"open","_links":{}}`))
	})
	result, err := client.CreatePayment(context.Background(), CreateInput{Amount: "5", RedirectURL: "https://shop.example/x"})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if result.CheckoutURL != "" {
		t.Fatalf("checkout url should be empty, got %s", result.CheckoutURL)
	}
}

func TestCreatePaymentErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":422,"title":"Unprocessable Entity","detail":"The amount is lower than minimum"}`))
	})
	_, err := client.CreatePayment(context.Background(), CreateInput{Amount: "0.01", RedirectURL: "https://shop.example/x"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestCreatePaymentRejectsZeroAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("provider should not be called")
	})
	if _, err := client.CreatePayment(context.Background(), CreateInput{Amount: "0", RedirectURL: "https://shop.example/x"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestGetPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/payments/tr_abc123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"id":"tr_abc123",
			"status":"paid",
			"amount":{"value":"19.90","currency":"eur"},
			"paidAt":"2026-10-01T10:00:00+00:00",
			"metadata":{"userId":"u1","total":"19.90"}
		}`))
	})

	payment, err := client.GetPayment(context.Background(), "tr_abc123")
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if !payment.IsPaid() || payment.Amount != "19.90" || payment.Currency != "EUR" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if payment.PaidAt == nil {
		t.Fatalf("paid_at should be parsed")
	}
	var meta map[string]string
	if err := json.Unmarshal(payment.Metadata, &meta); err != nil || meta["userId"] != "u1" {
		t.Fatalf("unexpected metadata: %s", string(payment.Metadata))
	}
}

func TestGetPaymentNetworkFailure(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k", APIBaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if _, err := client.GetPayment(context.Background(), "tr_x"); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}
