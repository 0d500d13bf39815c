package service

import (
	"strings"

	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/repository"
)

// OrderPage 订单分页结果
type OrderPage struct {
	Items    []models.Order `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// OrderService 订单查询服务
type OrderService struct {
	repo repository.OrderRepository
}

// NewOrderService 创建订单服务
func NewOrderService(repo repository.OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// ListByCustomer 顾客订单，最新在前
func (s *OrderService) ListByCustomer(customerID string, page, pageSize int) (*OrderPage, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, ErrCustomerRequired
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	orders, total, err := s.repo.ListByCustomer(repository.OrderListFilter{
		CustomerID: customerID,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, err
	}
	return &OrderPage{Items: orders, Total: total, Page: page, PageSize: pageSize}, nil
}
