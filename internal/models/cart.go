package models

import (
	"strconv"
	"strings"
	"time"
)

// Cart 会员购物车，每位顾客至多一个
type Cart struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                    // 主键
	CustomerID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"cliente_id"` // 顾客ID
	CreatedAt  time.Time `json:"created_at"`                                              // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                              // 更新时间

	Items []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
}

// TableName 指定表名
func (Cart) TableName() string {
	return "carts"
}

// NormalizeSize 尺码规范化：去除首尾空白
func NormalizeSize(size string) string {
	return strings.TrimSpace(size)
}

// CartIdentityKey 购物车项去重键，商品 ID 带长度前缀，任意 (商品, 尺码) 组合互不冲突
func CartIdentityKey(productID, size string) string {
	productID = strings.TrimSpace(productID)
	return strconv.Itoa(len(productID)) + ":" + productID + ":" + NormalizeSize(size)
}
