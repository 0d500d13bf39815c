package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/payment/mollie"
)

const (
	checkoutSuccessPath = "/checkout/success"
	mollieWebhookPath   = "/api/payments/mollie/webhook"
	defaultBrandName    = "RedVelvet"
)

// PaymentGateway 支付渠道
type PaymentGateway interface {
	CreatePayment(ctx context.Context, input mollie.CreateInput) (*mollie.CreateResult, error)
	GetPayment(ctx context.Context, paymentID string) (*mollie.Payment, error)
}

// PaymentMetadata 随支付单下发、在回调中取回的结账快照
type PaymentMetadata struct {
	UserID       string            `json:"userId,omitempty"`
	Items        []models.LineItem `json:"items"`
	Subtotal     models.Money      `json:"subtotal"`
	ShippingCost models.Money      `json:"shippingCost"`
	Total        models.Money      `json:"total"`
}

// Validate 校验商品行，小计须等于商品行合计，总额须等于小计加运费。
// 运费按下单时的阶梯记录，与当前阶梯不一致时只记日志。
func (m *PaymentMetadata) Validate() error {
	if m == nil || len(m.Items) == 0 {
		return fmt.Errorf("%w: items is empty", ErrInvalidMetadata)
	}
	for i, item := range m.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidMetadata, i, err)
		}
	}
	if m.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: negative shipping", ErrInvalidMetadata)
	}
	totals := ComputeTotals(m.Items)
	if !totals.Subtotal.Equal(m.Subtotal.Decimal) {
		return fmt.Errorf("%w: subtotal mismatch", ErrInvalidMetadata)
	}
	if !m.Subtotal.Add(m.ShippingCost).Equal(m.Total.Decimal) {
		return fmt.Errorf("%w: total mismatch", ErrInvalidMetadata)
	}
	if !totals.ShippingCost.Equal(m.ShippingCost.Decimal) {
		logger.Warnw("payment_metadata_shipping_drift",
			"shipping", m.ShippingCost.String(),
			"expected", totals.ShippingCost.String(),
		)
	}
	return nil
}

// ParsePaymentMetadata 解析并校验元数据
func ParsePaymentMetadata(raw json.RawMessage) (*PaymentMetadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: metadata is empty", ErrInvalidMetadata)
	}
	var meta PaymentMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	meta.UserID = strings.TrimSpace(meta.UserID)
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

// CheckoutInput 结账输入
type CheckoutInput struct {
	UserID string
	Items  []models.LineItem
}

// CheckoutResult 结账结果
type CheckoutResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutOptions 结账配置
type CheckoutOptions struct {
	SiteURL   string
	BrandName string
	Locale    string
	Currency  string
}

// CheckoutService 创建支付会话，不写任何持久化数据
type CheckoutService struct {
	gateway PaymentGateway
	opts    CheckoutOptions
}

// NewCheckoutService 创建结账服务
func NewCheckoutService(gateway PaymentGateway, opts CheckoutOptions) *CheckoutService {
	opts.SiteURL = strings.TrimRight(strings.TrimSpace(opts.SiteURL), "/")
	opts.BrandName = strings.TrimSpace(opts.BrandName)
	if opts.BrandName == "" {
		opts.BrandName = defaultBrandName
	}
	return &CheckoutService{gateway: gateway, opts: opts}
}

// CreateSession 计算金额并创建托管收银台支付
func (s *CheckoutService) CreateSession(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoItems
	}
	items := make([]models.LineItem, 0, len(input.Items))
	for _, item := range input.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		item.Size = models.NormalizeSize(item.Size)
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCheckoutItem, err)
		}
		items = append(items, item)
	}

	totals := ComputeTotals(items)
	metadata := PaymentMetadata{
		UserID:       strings.TrimSpace(input.UserID),
		Items:        items,
		Subtotal:     totals.Subtotal,
		ShippingCost: totals.ShippingCost,
		Total:        totals.Total,
	}
	log := logger.SW("user_id", metadata.UserID, "lines", len(items), "total", totals.Total.String())

	result, err := s.gateway.CreatePayment(ctx, mollie.CreateInput{
		Amount:      totals.Total.String(),
		Currency:    s.opts.Currency,
		Description: s.describe(items),
		RedirectURL: s.opts.SiteURL + checkoutSuccessPath,
		WebhookURL:  s.opts.SiteURL + mollieWebhookPath,
		Locale:      s.opts.Locale,
		Metadata:    metadata,
	})
	if err != nil {
		log.Errorw("checkout_create_payment_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	if strings.TrimSpace(result.CheckoutURL) == "" {
		log.Errorw("checkout_missing_checkout_url", "payment_id", result.ID)
		return nil, ErrMissingCheckoutURL
	}
	log.Infow("checkout_session_created", "payment_id", result.ID)
	return &CheckoutResult{ID: result.ID, URL: result.CheckoutURL}, nil
}

// describe 单件商品为 "<名称> x<数量>"，多件为 "<品牌> - N itens"
func (s *CheckoutService) describe(items []models.LineItem) string {
	if len(items) == 1 {
		name := strings.TrimSpace(items[0].Name)
		if name == "" {
			name = items[0].ProductID
		}
		return fmt.Sprintf("%s x%d", name, items[0].Quantity)
	}
	return fmt.Sprintf("%s - %d itens", s.opts.BrandName, len(items))
}

// IsValidationError 是否为结账参数错误
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoItems) || errors.Is(err, ErrInvalidCheckoutItem)
}
