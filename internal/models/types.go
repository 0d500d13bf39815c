package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray 字符串数组类型，用于存储尺码等
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner 接口
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}
	return json.Unmarshal(columnBytes(value), s)
}

// LineItem 商品行快照，结账元数据与订单共用
type LineItem struct {
	ProductID string `json:"produto_id"`
	Name      string `json:"nome"`
	UnitPrice Money  `json:"preco"`
	Quantity  int    `json:"quantidade"`
	Size      string `json:"tamanho,omitempty"`
}

// Total 行小计
func (l LineItem) Total() Money {
	return l.UnitPrice.MulInt(l.Quantity)
}

// Validate 校验商品行
func (l LineItem) Validate() error {
	if strings.TrimSpace(l.ProductID) == "" {
		return fmt.Errorf("produto_id is required")
	}
	if l.Quantity < 1 {
		return fmt.Errorf("quantidade must be >= 1")
	}
	if l.UnitPrice.IsNegative() {
		return fmt.Errorf("preco must be >= 0")
	}
	return nil
}

// LineItems 订单商品行列表（JSON 列）
type LineItems []LineItem

// Value 实现 driver.Valuer 接口
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner 接口
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}
	return json.Unmarshal(columnBytes(value), l)
}

func columnBytes(value interface{}) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return []byte("null")
	}
}
