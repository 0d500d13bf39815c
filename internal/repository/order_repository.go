package repository

import (
	"errors"
	"strings"

	"github.com/redvelvet-shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Insert(order *models.Order) (bool, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	ListByCustomer(filter OrderListFilter) ([]models.Order, int64, error)
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Insert 以订单号为幂等键写入订单
// 返回 false 表示订单号已存在，本次写入被忽略
func (r *GormOrderRepository) Insert(order *models.Order) (bool, error) {
	if order == nil || strings.TrimSpace(order.OrderNumber) == "" {
		return false, ErrInvalidOrder
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_number"}},
		DoNothing: true,
	}).Create(order)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByOrderNumber 按订单号查询
func (r *GormOrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("order_number = ?", strings.TrimSpace(orderNumber)).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByCustomer 顾客订单列表，按创建时间倒序
func (r *GormOrderRepository) ListByCustomer(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Where("customer_id = ?", strings.TrimSpace(filter.CustomerID))
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	var orders []models.Order
	if err := query.Order("created_at desc").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
