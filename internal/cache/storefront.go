package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redvelvet-shop/internal/models"
)

const (
	customerKeyPrefix     = "customer:user"
	productListVersionKey = "products:version"
)

// CustomerSnapshot 顾客缓存快照
type CustomerSnapshot struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// BuildCustomerSnapshot 从顾客模型构建快照
func BuildCustomerSnapshot(customer *models.Customer) *CustomerSnapshot {
	if customer == nil {
		return nil
	}
	return &CustomerSnapshot{
		ID:      customer.ID,
		UserID:  customer.UserID,
		Name:    customer.Name,
		Email:   customer.Email,
		Phone:   customer.Phone,
		Address: customer.Address,
	}
}

// ToModel 还原为顾客模型
func (s *CustomerSnapshot) ToModel() *models.Customer {
	if s == nil {
		return nil
	}
	return &models.Customer{
		ID:      s.ID,
		UserID:  s.UserID,
		Name:    s.Name,
		Email:   s.Email,
		Phone:   s.Phone,
		Address: s.Address,
	}
}

func customerKey(userID string) string {
	return fmt.Sprintf("%s:%s", customerKeyPrefix, strings.TrimSpace(userID))
}

// GetCustomer 读取顾客缓存
func GetCustomer(ctx context.Context, userID string) (*CustomerSnapshot, bool, error) {
	var snapshot CustomerSnapshot
	hit, err := GetJSON(ctx, customerKey(userID), &snapshot)
	if err != nil || !hit {
		return nil, false, err
	}
	return &snapshot, true, nil
}

// SetCustomer 写入顾客缓存
func SetCustomer(ctx context.Context, customer *models.Customer, ttl time.Duration) error {
	snapshot := BuildCustomerSnapshot(customer)
	if snapshot == nil || snapshot.UserID == "" {
		return nil
	}
	return SetJSON(ctx, customerKey(snapshot.UserID), snapshot, ttl)
}

// DelCustomer 删除顾客缓存
func DelCustomer(ctx context.Context, userID string) error {
	return Del(ctx, customerKey(userID))
}

// ProductListKey 商品列表缓存键，带版本号以便整体失效
func ProductListKey(ctx context.Context, category, search string, page, pageSize int) (string, error) {
	version, err := GetInt64(ctx, productListVersionKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:v%d:%s:%s:%d:%d",
		version,
		strings.ToLower(strings.TrimSpace(category)),
		strings.ToLower(strings.TrimSpace(search)),
		page, pageSize,
	), nil
}

// BumpProductListVersion 商品变更后使列表缓存失效
func BumpProductListVersion(ctx context.Context) error {
	_, err := Incr(ctx, productListVersionKey)
	return err
}
