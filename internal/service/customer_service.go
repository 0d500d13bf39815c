package service

import (
	"context"
	"strings"
	"time"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/repository"

	"golang.org/x/sync/singleflight"
)

const defaultCustomerCacheTTL = 10 * time.Minute

// ProfileInput 顾客资料更新输入
type ProfileInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// CustomerService 顾客服务
type CustomerService struct {
	repo     repository.CustomerRepository
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewCustomerService 创建顾客服务
func NewCustomerService(repo repository.CustomerRepository, cacheTTL time.Duration) *CustomerService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCustomerCacheTTL
	}
	return &CustomerService{repo: repo, cacheTTL: cacheTTL}
}

// ResolveByUserID 按认证用户 ID 查找顾客，不存在返回 nil
// 先读缓存，未命中时同一用户的并发查询合并为一次数据库读取
func (s *CustomerService) ResolveByUserID(ctx context.Context, userID string) (*models.Customer, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	if snapshot, hit, err := cache.GetCustomer(ctx, userID); err != nil {
		logger.Warnw("customer_cache_get_failed", "user_id", userID, "error", err)
	} else if hit {
		return snapshot.ToModel(), nil
	}

	value, err, _ := s.group.Do(userID, func() (interface{}, error) {
		customer, err := s.repo.GetByUserID(userID)
		if err != nil || customer == nil {
			return customer, err
		}
		if err := cache.SetCustomer(ctx, customer, s.cacheTTL); err != nil {
			logger.Warnw("customer_cache_set_failed", "user_id", userID, "error", err)
		}
		return customer, nil
	})
	if err != nil {
		return nil, err
	}
	customer, _ := value.(*models.Customer)
	if customer == nil {
		return nil, nil
	}
	copied := *customer
	return &copied, nil
}

// EnsureCustomer 获取顾客，不存在时创建
func (s *CustomerService) EnsureCustomer(ctx context.Context, userID, email string) (*models.Customer, error) {
	customer, err := s.ResolveByUserID(ctx, userID)
	if err != nil || customer != nil {
		return customer, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrCustomerRequired
	}
	created, err := s.repo.GetOrCreate(&models.Customer{
		UserID: userID,
		Email:  strings.TrimSpace(email),
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("customer_created", "user_id", userID, "customer_id", created.ID)
	if err := cache.SetCustomer(ctx, created, s.cacheTTL); err != nil {
		logger.Warnw("customer_cache_set_failed", "user_id", userID, "error", err)
	}
	return created, nil
}

// UpdateProfile 更新资料，顾客不存在时先创建
func (s *CustomerService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*models.Customer, error) {
	email := strings.TrimSpace(input.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, ErrProfileInvalid
	}
	customer, err := s.EnsureCustomer(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	customer.Name = strings.TrimSpace(input.Name)
	if email != "" {
		customer.Email = email
	}
	customer.Phone = strings.TrimSpace(input.Phone)
	customer.Address = strings.TrimSpace(input.Address)
	if err := s.repo.Update(customer); err != nil {
		return nil, err
	}
	if err := cache.DelCustomer(ctx, customer.UserID); err != nil {
		logger.Warnw("customer_cache_del_failed", "user_id", customer.UserID, "error", err)
	}
	return customer, nil
}
