package repository

import (
	"errors"
	"strings"

	"github.com/redvelvet-shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository 顾客数据访问接口
type CustomerRepository interface {
	GetByUserID(userID string) (*models.Customer, error)
	GetOrCreate(customer *models.Customer) (*models.Customer, error)
	Update(customer *models.Customer) error
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建顾客仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// GetByUserID 按认证用户 ID 查询，不存在返回 nil
func (r *GormCustomerRepository) GetByUserID(userID string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.Where("user_id = ?", strings.TrimSpace(userID)).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetOrCreate 不存在时创建，已存在时原样返回
func (r *GormCustomerRepository) GetOrCreate(customer *models.Customer) (*models.Customer, error) {
	if customer == nil || strings.TrimSpace(customer.UserID) == "" {
		return nil, errors.New("customer user_id is required")
	}
	customer.UserID = strings.TrimSpace(customer.UserID)
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(customer).Error; err != nil {
		return nil, err
	}
	return r.GetByUserID(customer.UserID)
}

// Update 更新顾客资料
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	if customer == nil || customer.ID == "" {
		return errors.New("customer id is required")
	}
	return r.db.Model(&models.Customer{}).Where("id = ?", customer.ID).Updates(map[string]interface{}{
		"name":    customer.Name,
		"email":   customer.Email,
		"phone":   customer.Phone,
		"address": customer.Address,
	}).Error
}
