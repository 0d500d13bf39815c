package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/provider"
	"github.com/redvelvet-shop/internal/queue"
	"github.com/redvelvet-shop/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentReconcile, c.handlePaymentReconcile)
	mux.HandleFunc(queue.TaskCartClear, c.handleCartClear)
}

// handlePaymentReconcile 重放支付回调处理，写入失败返回错误交给队列重试
func (c *Consumer) handlePaymentReconcile(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_payment_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePaymentReconcilePayload(task)
	if err != nil {
		logger.Warnw("worker_payment_reconcile_invalid_payload", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if c.PaymentWebhookService == nil {
		logger.Warnw("worker_payment_reconcile_skip_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	result, err := c.PaymentWebhookService.Reconcile(ctx, payload.PaymentID)
	if err != nil {
		if errors.Is(err, service.ErrMissingPaymentID) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Warnw("worker_payment_reconcile_failed", "payment_id", payload.PaymentID, "error", err)
		return err
	}
	logger.Infow("worker_payment_reconciled",
		"payment_id", payload.PaymentID,
		"status", result.Status,
		"order_created", result.OrderCreated,
		"duplicate", result.Duplicate,
	)
	return nil
}

// handleCartClear 重试支付后的购物车清空
func (c *Consumer) handleCartClear(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_cart_clear_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCartClearPayload(task)
	if err != nil {
		logger.Warnw("worker_cart_clear_invalid_payload", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if c.CartService == nil {
		logger.Warnw("worker_cart_clear_skip_service_nil", "customer_id", payload.CustomerID)
		return nil
	}
	cleared, err := c.CartService.ClearCustomerCart(ctx, payload.CustomerID)
	if err != nil {
		logger.Warnw("worker_cart_clear_failed", "customer_id", payload.CustomerID, "payment_id", payload.PaymentID, "error", err)
		return err
	}
	logger.Infow("worker_cart_cleared", "customer_id", payload.CustomerID, "payment_id", payload.PaymentID, "cleared", cleared)
	return nil
}
