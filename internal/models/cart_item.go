package models

import (
	"time"
)

// CartItem 购物车项，(cart_id, product_id, size) 唯一
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                                   // 主键
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_item_identity" json:"cart_id"`                             // 购物车ID
	ProductID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_item_identity" json:"produto_id"`         // 商品ID
	Size      string    `gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_cart_item_identity" json:"tamanho"` // 规范化尺码，空串表示无尺码
	Name      string    `gorm:"type:varchar(255)" json:"nome"`                                                          // 商品名称快照
	UnitPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"preco"`                                     // 单价快照
	Quantity  int       `gorm:"not null" json:"quantidade"`                                                             // 数量
	ImageURL  string    `gorm:"type:varchar(500)" json:"imagem_url"`                                                    // 图片快照
	CreatedAt time.Time `json:"created_at"`                                                                             // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                                             // 更新时间
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
