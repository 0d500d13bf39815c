package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/redvelvet-shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository 会员购物车数据访问接口
type CartRepository interface {
	GetByCustomer(customerID string) (*models.Cart, error)
	GetOrCreateByCustomer(customerID string) (*models.Cart, error)
	ListItems(cartID uint) ([]models.CartItem, error)
	AddItem(item *models.CartItem) (*models.CartItem, error)
	UpdateItemQuantity(cartID, itemID uint, quantity int) error
	DeleteItem(cartID, itemID uint) error
	ClearItems(cartID uint) (int64, error)
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// GetByCustomer 获取顾客购物车，不存在返回 nil
func (r *GormCartRepository) GetByCustomer(customerID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.Where("customer_id = ?", strings.TrimSpace(customerID)).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// GetOrCreateByCustomer 获取或创建顾客购物车
func (r *GormCartRepository) GetOrCreateByCustomer(customerID string) (*models.Cart, error) {
	customerID = strings.TrimSpace(customerID)
	cart := models.Cart{CustomerID: customerID}
	// 并发创建由唯一索引兜底
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return nil, err
	}
	return r.GetByCustomer(customerID)
}

// ListItems 获取购物车项
func (r *GormCartRepository) ListItems(cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Where("cart_id = ?", cartID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem 按 (cart_id, product_id, size) 原子累加数量，不存在则插入
func (r *GormCartRepository) AddItem(item *models.CartItem) (*models.CartItem, error) {
	if item == nil || item.CartID == 0 || item.Quantity <= 0 {
		return nil, ErrInvalidCartItem
	}
	item.ProductID = strings.TrimSpace(item.ProductID)
	item.Size = models.NormalizeSize(item.Size)
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "size"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}

	var stored models.CartItem
	if err := r.db.Where("cart_id = ? AND product_id = ? AND size = ?", item.CartID, item.ProductID, item.Size).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateItemQuantity 设置数量，数量小于等于 0 时删除
func (r *GormCartRepository) UpdateItemQuantity(cartID, itemID uint, quantity int) error {
	if quantity <= 0 {
		return r.DeleteItem(cartID, itemID)
	}
	return r.db.Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		}).Error
}

// DeleteItem 删除购物车项，不存在时不报错
func (r *GormCartRepository) DeleteItem(cartID, itemID uint) error {
	return r.db.Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{}).Error
}

// ClearItems 清空购物车
func (r *GormCartRepository) ClearItems(cartID uint) (int64, error) {
	result := r.db.Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}
