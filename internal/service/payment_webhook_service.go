package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redvelvet-shop/internal/constants"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/payment/mollie"
	"github.com/redvelvet-shop/internal/queue"
	"github.com/redvelvet-shop/internal/repository"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const defaultReconcileDelay = 2 * time.Minute

// TaskEnqueuer 补偿任务投递
type TaskEnqueuer interface {
	EnqueuePaymentReconcile(payload queue.PaymentReconcilePayload, delay time.Duration) error
	EnqueueCartClear(payload queue.CartClearPayload, opts ...asynq.Option) error
}

// WebhookResult 回调处理结果
type WebhookResult struct {
	PaymentID    string
	Status       string
	OrderCreated bool
	Duplicate    bool
	CartCleared  bool
}

// PaymentWebhookService 支付回调处理
// 以支付单号作为订单号幂等写入，重复或乱序回调收敛为同一订单
type PaymentWebhookService struct {
	gateway        PaymentGateway
	orderRepo      repository.OrderRepository
	customerSvc    *CustomerService
	cartSvc        *CartService
	tasks          TaskEnqueuer
	reconcileDelay time.Duration
}

// NewPaymentWebhookService 创建回调处理服务
func NewPaymentWebhookService(gateway PaymentGateway, orderRepo repository.OrderRepository, customerSvc *CustomerService, cartSvc *CartService, tasks TaskEnqueuer, reconcileDelay time.Duration) *PaymentWebhookService {
	if reconcileDelay <= 0 {
		reconcileDelay = defaultReconcileDelay
	}
	return &PaymentWebhookService{
		gateway:        gateway,
		orderRepo:      orderRepo,
		customerSvc:    customerSvc,
		cartSvc:        cartSvc,
		tasks:          tasks,
		reconcileDelay: reconcileDelay,
	}
}

// HandleWebhook 处理 Mollie 回调
// 只信任向 Mollie 回查得到的支付单，不信任回调内容本身
func (s *PaymentWebhookService) HandleWebhook(ctx context.Context, paymentID string) (*WebhookResult, error) {
	return s.process(ctx, paymentID, true)
}

// Reconcile 补偿任务入口，失败由队列重试，不再额外投递补偿任务
func (s *PaymentWebhookService) Reconcile(ctx context.Context, paymentID string) (*WebhookResult, error) {
	return s.process(ctx, paymentID, false)
}

func (s *PaymentWebhookService) process(ctx context.Context, paymentID string, scheduleReconcile bool) (*WebhookResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, ErrMissingPaymentID
	}
	log := logger.SW("payment_id", paymentID)

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		log.Errorw("payment_webhook_fetch_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	result := &WebhookResult{PaymentID: payment.ID, Status: payment.Status}
	if !payment.IsPaid() {
		log.Infow("payment_webhook_not_paid", "status", payment.Status)
		return result, nil
	}

	order, customerID := s.buildOrder(ctx, log, payment)
	created, err := s.orderRepo.Insert(order)
	if err != nil {
		log.Errorw("payment_webhook_order_insert_failed", "error", err)
		if scheduleReconcile {
			s.scheduleReconcile(log, payment.ID)
		}
		return nil, fmt.Errorf("%w: %v", ErrOrderPersist, err)
	}
	if !created {
		log.Infow("payment_webhook_order_duplicate")
		result.Duplicate = true
	} else {
		result.OrderCreated = true
		log.Infow("payment_webhook_order_created",
			"customer_id", customerID,
			"total", order.Total.String(),
			"metadata_valid", order.MetadataValid,
		)
	}

	// 仅首次建单时清空购物车
	if created && customerID != "" {
		result.CartCleared = s.clearCart(ctx, log, customerID, payment.ID)
	}
	return result, nil
}

// buildOrder 元数据无效时仅按支付单记录金额，顾客与商品行留空
func (s *PaymentWebhookService) buildOrder(ctx context.Context, log *zap.SugaredLogger, payment *mollie.Payment) (*models.Order, string) {
	total, err := models.NewMoneyFromString(payment.Amount)
	if err != nil {
		log.Warnw("payment_webhook_amount_invalid", "amount", payment.Amount, "error", err)
	}
	paidAt := time.Now()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}
	currency := strings.ToUpper(strings.TrimSpace(payment.Currency))
	if currency == "" {
		currency = "EUR"
	}
	order := &models.Order{
		OrderNumber:   payment.ID,
		LineItems:     models.LineItems{},
		Subtotal:      total,
		Total:         total,
		Currency:      currency,
		Status:        constants.OrderStatusPaid,
		PaymentMethod: constants.PaymentMethodMollie,
		PaidAt:        &paidAt,
	}

	meta, err := ParsePaymentMetadata(payment.Metadata)
	if err != nil {
		log.Warnw("payment_webhook_metadata_invalid", "error", err)
		order.MetadataValid = false
		return order, ""
	}
	if !meta.Total.Equal(total.Decimal) {
		log.Warnw("payment_webhook_amount_mismatch", "metadata_total", meta.Total.String(), "amount", total.String())
		order.MetadataValid = false
		return order, ""
	}

	order.MetadataValid = true
	order.LineItems = models.LineItems(meta.Items)
	order.Subtotal = meta.Subtotal
	order.ShippingCost = meta.ShippingCost

	customerID := ""
	if meta.UserID != "" {
		customer, err := s.customerSvc.ResolveByUserID(ctx, meta.UserID)
		switch {
		case err != nil:
			log.Warnw("payment_webhook_customer_lookup_failed", "user_id", meta.UserID, "error", err)
		case customer == nil:
			log.Infow("payment_webhook_customer_not_found", "user_id", meta.UserID)
		default:
			customerID = customer.ID
			order.CustomerID = &customerID
		}
	}
	return order, customerID
}

func (s *PaymentWebhookService) clearCart(ctx context.Context, log *zap.SugaredLogger, customerID, paymentID string) bool {
	cleared, err := s.cartSvc.ClearCustomerCart(ctx, customerID)
	if err == nil {
		return cleared
	}
	log.Warnw("payment_webhook_cart_clear_failed", "customer_id", customerID, "error", err)
	if s.tasks != nil {
		if err := s.tasks.EnqueueCartClear(queue.CartClearPayload{CustomerID: customerID, PaymentID: paymentID}); err != nil {
			log.Errorw("payment_webhook_cart_clear_enqueue_failed", "customer_id", customerID, "error", err)
		}
	}
	return false
}

func (s *PaymentWebhookService) scheduleReconcile(log *zap.SugaredLogger, paymentID string) {
	if s.tasks == nil {
		return
	}
	if err := s.tasks.EnqueuePaymentReconcile(queue.PaymentReconcilePayload{PaymentID: paymentID}, s.reconcileDelay); err != nil {
		log.Errorw("payment_webhook_reconcile_enqueue_failed", "error", err)
	}
}
