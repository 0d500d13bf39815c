package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redvelvet-shop/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentReconcile 支付补偿任务，订单写入失败后重放回调处理
	TaskPaymentReconcile = constants.TaskPaymentReconcile
	// TaskCartClear 支付后清空购物车的重试任务
	TaskCartClear = constants.TaskCartClear
)

// PaymentReconcilePayload 支付补偿任务载荷
type PaymentReconcilePayload struct {
	PaymentID string `json:"payment_id"`
}

// CartClearPayload 清空购物车任务载荷
type CartClearPayload struct {
	CustomerID string `json:"customer_id"`
	PaymentID  string `json:"payment_id,omitempty"`
}

// NewPaymentReconcileTask 创建支付补偿任务
func NewPaymentReconcileTask(payload PaymentReconcilePayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.PaymentID) == "" {
		return nil, fmt.Errorf("payment_id is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReconcile, body), nil
}

// NewCartClearTask 创建清空购物车任务
func NewCartClearTask(payload CartClearPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.CustomerID) == "" {
		return nil, fmt.Errorf("customer_id is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartClear, body), nil
}

// ParsePaymentReconcilePayload 解析支付补偿任务载荷
func ParsePaymentReconcilePayload(task *asynq.Task) (PaymentReconcilePayload, error) {
	var payload PaymentReconcilePayload
	if task == nil {
		return payload, fmt.Errorf("task is nil")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	payload.PaymentID = strings.TrimSpace(payload.PaymentID)
	if payload.PaymentID == "" {
		return payload, fmt.Errorf("payment_id is required")
	}
	return payload, nil
}

// ParseCartClearPayload 解析清空购物车任务载荷
func ParseCartClearPayload(task *asynq.Task) (CartClearPayload, error) {
	var payload CartClearPayload
	if task == nil {
		return payload, fmt.Errorf("task is nil")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	payload.CustomerID = strings.TrimSpace(payload.CustomerID)
	if payload.CustomerID == "" {
		return payload, fmt.Errorf("customer_id is required")
	}
	return payload, nil
}
