package models

import (
	"time"
)

// Order 订单表，仅由支付回调写入
type Order struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                       // 主键
	CustomerID    *string    `gorm:"type:varchar(36);index" json:"cliente_id"`                   // 顾客ID（无法解析时为空）
	OrderNumber   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"numero_pedido"` // 订单号，即支付单号（幂等键）
	LineItems     LineItems  `gorm:"type:json" json:"lista_produtos"`                            // 商品快照
	Subtotal      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`      // 商品小计
	ShippingCost  Money      `gorm:"type:decimal(20,2);not null;default:0" json:"custo_envio"`   // 运费
	Total         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total"`         // 实付金额
	Currency      string     `gorm:"type:varchar(8);not null;default:'EUR'" json:"moeda"`        // 币种
	Status        string     `gorm:"type:varchar(20);index;not null" json:"status"`              // 订单状态
	PaymentMethod string     `gorm:"type:varchar(32);not null" json:"metodo_pagamento"`          // 支付方式
	PaidAt        *time.Time `gorm:"index" json:"data_pagamento"`                                // 支付时间
	MetadataValid bool       `gorm:"not null" json:"-"`                                          // 支付元数据是否通过校验
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                 // 更新时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
