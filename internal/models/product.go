package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product 商品表（只读目录）
type Product struct {
	ID          string      `gorm:"primarykey;type:varchar(36)" json:"id"`              // 主键（UUID）
	Code        string      `gorm:"type:varchar(64);index" json:"codigo"`               // 商品编码
	Reference   string      `gorm:"type:varchar(64)" json:"referencia"`                 // 参考号
	Name        string      `gorm:"type:varchar(255);not null" json:"nome"`             // 名称
	Description string      `gorm:"type:text" json:"descricao"`                         // 描述
	Category    string      `gorm:"type:varchar(100);index" json:"categoria"`           // 分类
	Price       Money       `gorm:"type:decimal(20,2);not null;default:0" json:"preco"` // 单价
	Stock       int         `gorm:"not null;default:0" json:"stock"`                    // 库存
	Sizes       StringArray `gorm:"type:json" json:"tamanhos"`                          // 可选尺码
	ImageURL    string      `gorm:"type:varchar(500)" json:"imagem_url"`                // 图片
	VAT         Money       `gorm:"type:decimal(5,2);not null;default:23" json:"iva"`   // 增值税率（%）
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time   `json:"updated_at"`                                         // 更新时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// BeforeCreate 生成 UUID 主键
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
