package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/constants"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/repository"
)

// LocalCartRepository 游客购物车，以会话 ID 为键
type LocalCartRepository struct {
	repo      repository.GuestCartRepository
	sessionID string
	notifier  cache.CartNotifier
}

// NewLocalCartRepository 创建游客购物车仓库
func NewLocalCartRepository(repo repository.GuestCartRepository, sessionID string, notifier cache.CartNotifier) *LocalCartRepository {
	return &LocalCartRepository{repo: repo, sessionID: strings.TrimSpace(sessionID), notifier: notifier}
}

// Owner 归属标识
func (r *LocalCartRepository) Owner() string {
	return cache.CartOwnerKey(constants.CartOwnerGuest, r.sessionID)
}

// Load 读取购物车项
func (r *LocalCartRepository) Load(ctx context.Context) ([]CartLine, error) {
	lines, err := r.repo.List(ctx, r.sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, cartLineFromGuest(line))
	}
	return out, nil
}

// Add 原子累加
func (r *LocalCartRepository) Add(ctx context.Context, line CartLine) (CartLine, error) {
	stored, err := r.repo.Add(ctx, r.sessionID, repository.GuestCartLine{
		ProductID: line.ProductID,
		Name:      line.Name,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
		Size:      line.Size,
		ImageURL:  line.ImageURL,
	})
	if err != nil {
		return CartLine{}, err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return cartLineFromGuest(stored), nil
}

// SetQuantity 设置数量
func (r *LocalCartRepository) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	if err := r.repo.SetQuantity(ctx, r.sessionID, itemID, quantity); err != nil {
		return err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return nil
}

// Remove 删除购物车项
func (r *LocalCartRepository) Remove(ctx context.Context, itemID string) error {
	if err := r.repo.Remove(ctx, r.sessionID, itemID); err != nil {
		return err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return nil
}

// Clear 清空
func (r *LocalCartRepository) Clear(ctx context.Context) error {
	if err := r.repo.Clear(ctx, r.sessionID); err != nil {
		return err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return nil
}

// Subscribe 订阅变更
func (r *LocalCartRepository) Subscribe(ctx context.Context, onChange func()) (func(), error) {
	return subscribeCartChanges(ctx, r.notifier, r.Owner(), onChange)
}

// RemoteCartRepository 会员购物车，基于 carts/cart_items 表
type RemoteCartRepository struct {
	repo       repository.CartRepository
	customerID string
	notifier   cache.CartNotifier
}

// NewRemoteCartRepository 创建会员购物车仓库
func NewRemoteCartRepository(repo repository.CartRepository, customerID string, notifier cache.CartNotifier) *RemoteCartRepository {
	return &RemoteCartRepository{repo: repo, customerID: strings.TrimSpace(customerID), notifier: notifier}
}

// Owner 归属标识
func (r *RemoteCartRepository) Owner() string {
	return cache.CartOwnerKey(constants.CartOwnerCustomer, r.customerID)
}

// Load 读取购物车项，购物车不存在时为空
func (r *RemoteCartRepository) Load(ctx context.Context) ([]CartLine, error) {
	cart, err := r.repo.GetByCustomer(r.customerID)
	if err != nil || cart == nil {
		return nil, err
	}
	items, err := r.repo.ListItems(cart.ID)
	if err != nil {
		return nil, err
	}
	out := make([]CartLine, 0, len(items))
	for _, item := range items {
		out = append(out, cartLineFromItem(item))
	}
	return out, nil
}

// Add 首次添加时创建购物车，随后单条 upsert 累加
func (r *RemoteCartRepository) Add(ctx context.Context, line CartLine) (CartLine, error) {
	cart, err := r.repo.GetOrCreateByCustomer(r.customerID)
	if err != nil {
		return CartLine{}, err
	}
	stored, err := r.repo.AddItem(&models.CartItem{
		CartID:    cart.ID,
		ProductID: line.ProductID,
		Size:      line.Size,
		Name:      line.Name,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
		ImageURL:  line.ImageURL,
	})
	if err != nil {
		return CartLine{}, err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return cartLineFromItem(*stored), nil
}

// SetQuantity 设置数量
func (r *RemoteCartRepository) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	cartID, id, ok, err := r.resolveItem(itemID)
	if err != nil || !ok {
		return err
	}
	if err := r.repo.UpdateItemQuantity(cartID, id, quantity); err != nil {
		return err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return nil
}

// Remove 删除购物车项
func (r *RemoteCartRepository) Remove(ctx context.Context, itemID string) error {
	cartID, id, ok, err := r.resolveItem(itemID)
	if err != nil || !ok {
		return err
	}
	if err := r.repo.DeleteItem(cartID, id); err != nil {
		return err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return nil
}

// Clear 清空
func (r *RemoteCartRepository) Clear(ctx context.Context) error {
	_, err := r.clear(ctx)
	return err
}

func (r *RemoteCartRepository) clear(ctx context.Context) (bool, error) {
	cart, err := r.repo.GetByCustomer(r.customerID)
	if err != nil || cart == nil {
		return false, err
	}
	if _, err := r.repo.ClearItems(cart.ID); err != nil {
		return false, err
	}
	publishCartChange(ctx, r.notifier, r.Owner())
	return true, nil
}

// Subscribe 订阅变更
func (r *RemoteCartRepository) Subscribe(ctx context.Context, onChange func()) (func(), error) {
	return subscribeCartChanges(ctx, r.notifier, r.Owner(), onChange)
}

// resolveItem 非数字 ID 或购物车不存在时视为无此项
func (r *RemoteCartRepository) resolveItem(itemID string) (uint, uint, bool, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(itemID), 10, 64)
	if err != nil || id == 0 {
		return 0, 0, false, nil
	}
	cart, err := r.repo.GetByCustomer(r.customerID)
	if err != nil || cart == nil {
		return 0, 0, false, err
	}
	return cart.ID, uint(id), true, nil
}

func cartLineFromGuest(line repository.GuestCartLine) CartLine {
	return CartLine{
		ID:        line.ID,
		ProductID: line.ProductID,
		Name:      line.Name,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
		Size:      line.Size,
		ImageURL:  line.ImageURL,
	}
}

func cartLineFromItem(item models.CartItem) CartLine {
	return CartLine{
		ID:        strconv.FormatUint(uint64(item.ID), 10),
		ProductID: item.ProductID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Quantity:  item.Quantity,
		Size:      item.Size,
		ImageURL:  item.ImageURL,
	}
}

func publishCartChange(ctx context.Context, notifier cache.CartNotifier, owner string) {
	if notifier == nil {
		return
	}
	if err := notifier.Publish(ctx, owner); err != nil {
		logger.Warnw("cart_change_publish_failed", "owner", owner, "error", err)
	}
}

func subscribeCartChanges(ctx context.Context, notifier cache.CartNotifier, owner string, onChange func()) (func(), error) {
	if notifier == nil {
		return func() {}, nil
	}
	events, stop, err := notifier.Subscribe(ctx, owner)
	if err != nil {
		return nil, err
	}
	go func() {
		for range events {
			if onChange != nil {
				onChange()
			}
		}
	}()
	return stop, nil
}
