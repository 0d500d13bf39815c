package service

import (
	"github.com/redvelvet-shop/internal/models"
)

var (
	freeShippingThreshold    = models.MustMoney("50")
	reducedShippingThreshold = models.MustMoney("25")
	reducedShippingCost      = models.MustMoney("3.50")
	standardShippingCost     = models.MustMoney("5.90")
)

// CartTotals 购物车汇总，始终由商品行推导
type CartTotals struct {
	Subtotal     models.Money `json:"subtotal"`
	ShippingCost models.Money `json:"custo_envio"`
	Total        models.Money `json:"total"`
	ItemCount    int          `json:"quantidade_itens"`
}

// ShippingFor 运费阶梯：满 50 免运费，满 25 为 3.50，其余 5.90
func ShippingFor(subtotal models.Money) models.Money {
	switch {
	case subtotal.GreaterThanOrEqual(freeShippingThreshold.Decimal):
		return models.Money{}
	case subtotal.GreaterThanOrEqual(reducedShippingThreshold.Decimal):
		return reducedShippingCost
	default:
		return standardShippingCost
	}
}

// ComputeTotals 计算商品行汇总，空购物车各项为 0
func ComputeTotals(items []models.LineItem) CartTotals {
	if len(items) == 0 {
		return CartTotals{}
	}
	subtotal := models.Money{}
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
		count += item.Quantity
	}
	shipping := ShippingFor(subtotal)
	return CartTotals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Total:        subtotal.Add(shipping),
		ItemCount:    count,
	}
}
