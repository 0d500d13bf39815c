package service

import (
	"context"
	"strings"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/repository"
)

// CartService 购物车服务，按请求身份构建 CartStore
type CartService struct {
	cartRepo  repository.CartRepository
	guestRepo repository.GuestCartRepository
	notifier  cache.CartNotifier
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, guestRepo repository.GuestCartRepository, notifier cache.CartNotifier) *CartService {
	return &CartService{
		cartRepo:  cartRepo,
		guestRepo: guestRepo,
		notifier:  notifier,
	}
}

// GuestStore 游客购物车
func (s *CartService) GuestStore(sessionID string) (*CartStore, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrCartSessionRequired
	}
	return NewCartStore(NewLocalCartRepository(s.guestRepo, sessionID, s.notifier)), nil
}

// CustomerStore 会员购物车
func (s *CartService) CustomerStore(customerID string) (*CartStore, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrCustomerRequired
	}
	return NewCartStore(NewRemoteCartRepository(s.cartRepo, customerID, s.notifier)), nil
}

// Merge 将游客购物车逐项累加到会员购物车，然后清空游客购物车
// 任一项写入失败时保留游客购物车，便于客户端重试
func (s *CartService) Merge(ctx context.Context, sessionID, customerID string) (*CartStore, int, error) {
	guest, err := s.GuestStore(sessionID)
	if err != nil {
		return nil, 0, err
	}
	member, err := s.CustomerStore(customerID)
	if err != nil {
		return nil, 0, err
	}
	if err := guest.Load(ctx); err != nil {
		return nil, 0, err
	}
	if err := member.Load(ctx); err != nil {
		return nil, 0, err
	}

	remote := NewRemoteCartRepository(s.cartRepo, customerID, s.notifier)
	merged := 0
	for _, line := range guest.Items() {
		if _, err := remote.Add(ctx, line); err != nil {
			logger.Warnw("cart_merge_item_failed",
				"customer_id", customerID,
				"produto_id", line.ProductID,
				"error", err,
			)
			return nil, merged, err
		}
		merged++
	}
	if merged > 0 {
		if err := s.guestRepo.Clear(ctx, sessionID); err != nil {
			logger.Warnw("cart_merge_guest_clear_failed", "session_id", sessionID, "error", err)
		}
		publishCartChange(ctx, s.notifier, guest.Owner())
	}
	if err := member.Load(ctx); err != nil {
		return nil, merged, err
	}
	logger.Infow("cart_merged", "customer_id", customerID, "lines", merged)
	return member, merged, nil
}

// ClearCustomerCart 清空会员购物车，购物车不存在时返回 false
func (s *CartService) ClearCustomerCart(ctx context.Context, customerID string) (bool, error) {
	if strings.TrimSpace(customerID) == "" {
		return false, nil
	}
	return NewRemoteCartRepository(s.cartRepo, customerID, s.notifier).clear(ctx)
}

// Notifier 购物车变更通知器
func (s *CartService) Notifier() cache.CartNotifier {
	return s.notifier
}
