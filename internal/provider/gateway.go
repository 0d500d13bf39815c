package provider

import (
	"context"
	"fmt"

	"github.com/redvelvet-shop/internal/payment/mollie"
)

// unconfiguredGateway 渠道配置缺失时的占位实现
type unconfiguredGateway struct{}

func (unconfiguredGateway) CreatePayment(context.Context, mollie.CreateInput) (*mollie.CreateResult, error) {
	return nil, fmt.Errorf("%w: mollie api key is not configured", mollie.ErrConfigInvalid)
}

func (unconfiguredGateway) GetPayment(context.Context, string) (*mollie.Payment, error) {
	return nil, fmt.Errorf("%w: mollie api key is not configured", mollie.ErrConfigInvalid)
}
