package mollie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("mollie config invalid")
	ErrRequestFailed   = errors.New("mollie request failed")
	ErrResponseInvalid = errors.New("mollie response invalid")
)

const (
	defaultAPIBaseURL = "https://api.mollie.com"
	defaultCurrency   = "EUR"
	defaultLocale     = "pt_PT"
	defaultTimeout    = 12 * time.Second
)

// Mollie 支付状态
const (
	StatusOpen       = "open"
	StatusPending    = "pending"
	StatusAuthorized = "authorized"
	StatusPaid       = "paid"
	StatusCanceled   = "canceled"
	StatusExpired    = "expired"
	StatusFailed     = "failed"
)

// Config Mollie 渠道配置。
type Config struct {
	APIKey         string `json:"api_key"`
	APIBaseURL     string `json:"api_base_url"`
	Currency       string `json:"currency"`
	Locale         string `json:"locale"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CreateInput 创建支付输入。
type CreateInput struct {
	Amount      string
	Currency    string
	Description string
	RedirectURL string
	WebhookURL  string
	Locale      string
	Metadata    interface{}
}

// CreateResult 创建支付返回。
type CreateResult struct {
	ID          string
	Status      string
	CheckoutURL string
}

// Payment 支付单详情。
type Payment struct {
	ID          string
	Status      string
	Amount      string
	Currency    string
	Description string
	Metadata    json.RawMessage
	CheckoutURL string
	PaidAt      *time.Time
}

// IsPaid 是否已支付
func (p *Payment) IsPaid() bool {
	return p != nil && p.Status == StatusPaid
}

// Client Mollie REST 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

type amountBody struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type linkBody struct {
	Href string `json:"href"`
}

type paymentBody struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Amount      amountBody      `json:"amount"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	PaidAt      *time.Time      `json:"paidAt"`
	Links       struct {
		Checkout *linkBody `json:"checkout"`
	} `json:"_links"`
}

type errorBody struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// NewClient 创建客户端，配置非法时返回 ErrConfigInvalid
func NewClient(cfg Config) (*Client, error) {
	cfg.normalize()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}, nil
}

// Config 返回规范化后的配置
func (c *Client) Config() Config {
	return c.cfg
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return fmt.Errorf("%w: api_base_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.APIBaseURL)); err != nil {
		return fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// CreatePayment 创建托管收银台支付，对应 POST /v2/payments。
func (c *Client) CreatePayment(ctx context.Context, input CreateInput) (*CreateResult, error) {
	amount, err := formatAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = c.cfg.Currency
	}
	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = c.cfg.Locale
	}
	redirectURL := strings.TrimSpace(input.RedirectURL)
	if redirectURL == "" {
		return nil, fmt.Errorf("%w: redirect_url is required", ErrConfigInvalid)
	}

	payload := map[string]interface{}{
		"amount":      amountBody{Currency: currency, Value: amount},
		"description": strings.TrimSpace(input.Description),
		"redirectUrl": redirectURL,
		"locale":      locale,
	}
	if webhookURL := strings.TrimSpace(input.WebhookURL); webhookURL != "" {
		payload["webhookUrl"] = webhookURL
	}
	if input.Metadata != nil {
		payload["metadata"] = input.Metadata
	}

	respBody, statusCode, err := c.doJSONRequest(ctx, http.MethodPost, "/v2/payments", payload)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, responseError("create payment", statusCode, respBody)
	}
	var body paymentBody
	if err := json.Unmarshal(respBody, &body); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(body.ID) == "" {
		return nil, fmt.Errorf("%w: missing payment id", ErrResponseInvalid)
	}
	result := &CreateResult{
		ID:     strings.TrimSpace(body.ID),
		Status: strings.TrimSpace(body.Status),
	}
	// 缺少收银台链接由调用方判定
	if body.Links.Checkout != nil {
		result.CheckoutURL = strings.TrimSpace(body.Links.Checkout.Href)
	}
	return result, nil
}

// GetPayment 查询支付单，对应 GET /v2/payments/{id}。
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrConfigInvalid)
	}
	path := "/v2/payments/" + url.PathEscape(paymentID)
	respBody, statusCode, err := c.doJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, responseError("get payment", statusCode, respBody)
	}
	var body paymentBody
	if err := json.Unmarshal(respBody, &body); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	if strings.TrimSpace(body.ID) == "" {
		return nil, fmt.Errorf("%w: missing payment id", ErrResponseInvalid)
	}
	payment := &Payment{
		ID:          strings.TrimSpace(body.ID),
		Status:      strings.ToLower(strings.TrimSpace(body.Status)),
		Amount:      strings.TrimSpace(body.Amount.Value),
		Currency:    strings.ToUpper(strings.TrimSpace(body.Amount.Currency)),
		Description: body.Description,
		Metadata:    body.Metadata,
		PaidAt:      body.PaidAt,
	}
	if body.Links.Checkout != nil {
		payment.CheckoutURL = strings.TrimSpace(body.Links.Checkout.Href)
	}
	return payment, nil
}

func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	c.Locale = strings.TrimSpace(c.Locale)
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultTimeout / time.Second)
	}
}

// formatAmount 金额固定 2 位小数，如 "19.90"
func formatAmount(amount string) (string, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", fmt.Errorf("%w: amount is invalid", ErrConfigInvalid)
	}
	if parsed.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	return parsed.Round(2).StringFixed(2), nil
}

func responseError(action string, statusCode int, body []byte) error {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Detail) != "" {
		return fmt.Errorf("%w: %s status %d: %s", ErrResponseInvalid, action, statusCode, strings.TrimSpace(parsed.Detail))
	}
	return fmt.Errorf("%w: %s status %d", ErrResponseInvalid, action, statusCode)
}

func (c *Client) doJSONRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
		}
		reader = bytes.NewReader(data)
	}
	endpoint := c.cfg.APIBaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	return body, resp.StatusCode, nil
}
