package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/repository"

	"golang.org/x/sync/singleflight"
)

const defaultProductCacheTTL = 60 * time.Second

// ProductPage 商品分页结果
type ProductPage struct {
	Items    []models.Product `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// ProductService 商品服务（只读目录）
type ProductService struct {
	repo     repository.ProductRepository
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, cacheTTL time.Duration) *ProductService {
	if cacheTTL <= 0 {
		cacheTTL = defaultProductCacheTTL
	}
	return &ProductService{repo: repo, cacheTTL: cacheTTL}
}

// List 商品列表，按创建时间倒序，结果走缓存
func (s *ProductService) List(ctx context.Context, filter repository.ProductListFilter) (*ProductPage, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	key, err := cache.ProductListKey(ctx, filter.Category, filter.Search, filter.Page, filter.PageSize)
	if err != nil {
		logger.Warnw("product_cache_key_failed", "error", err)
		key = ""
	}
	if key != "" {
		var cached ProductPage
		if hit, err := cache.GetJSON(ctx, key, &cached); err != nil {
			logger.Warnw("product_cache_get_failed", "key", key, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	flightKey := key
	if flightKey == "" {
		flightKey = fmt.Sprintf("%s|%s|%d|%d", filter.Category, filter.Search, filter.Page, filter.PageSize)
	}
	value, err, _ := s.group.Do(flightKey, func() (interface{}, error) {
		items, total, err := s.repo.List(filter)
		if err != nil {
			return nil, err
		}
		page := &ProductPage{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}
		if key != "" {
			if err := cache.SetJSON(ctx, key, page, s.cacheTTL); err != nil {
				logger.Warnw("product_cache_set_failed", "key", key, "error", err)
			}
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*ProductPage), nil
}

// GetByID 按 ID 查询商品
func (s *ProductService) GetByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// Create 创建商品并使列表缓存失效
func (s *ProductService) Create(ctx context.Context, product *models.Product) error {
	if err := s.repo.Create(product); err != nil {
		return err
	}
	if err := cache.BumpProductListVersion(ctx); err != nil {
		logger.Warnw("product_cache_bump_failed", "error", err)
	}
	return nil
}
