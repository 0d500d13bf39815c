package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer 顾客资料表，由认证服务的用户 ID 关联
type Customer struct {
	ID        string    `gorm:"primarykey;type:varchar(36)" json:"id"`                // 主键（UUID）
	UserID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"` // 认证用户 ID
	Name      string    `gorm:"type:varchar(200)" json:"nome"`                        // 姓名
	Email     string    `gorm:"type:varchar(255);index" json:"email"`                 // 邮箱
	Phone     string    `gorm:"type:varchar(50)" json:"telefone"`                     // 电话
	Address   string    `gorm:"type:text" json:"morada"`                              // 地址
	CreatedAt time.Time `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                           // 更新时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate 生成 UUID 主键
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
