package service

import (
	"context"
	"strings"
	"sync"

	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
)

// CartLine 购物车项（对外结构）
type CartLine struct {
	ID        string       `json:"id"`
	ProductID string       `json:"produto_id"`
	Name      string       `json:"nome"`
	UnitPrice models.Money `json:"preco"`
	Quantity  int          `json:"quantidade"`
	Size      string       `json:"tamanho,omitempty"`
	ImageURL  string       `json:"imagem_url,omitempty"`
}

// Key 去重键 (product_id, 规范化尺码)
func (l CartLine) Key() string {
	return models.CartIdentityKey(l.ProductID, l.Size)
}

// LineItem 转为订单商品行快照
func (l CartLine) LineItem() models.LineItem {
	return models.LineItem{
		ProductID: l.ProductID,
		Name:      l.Name,
		UnitPrice: l.UnitPrice,
		Quantity:  l.Quantity,
		Size:      l.Size,
	}
}

// Validate 校验购物车项
func (l CartLine) Validate() error {
	if strings.TrimSpace(l.ProductID) == "" || l.Quantity < 1 || l.UnitPrice.IsNegative() {
		return ErrInvalidCartItem
	}
	return nil
}

// CartSnapshot 购物车快照
type CartSnapshot struct {
	Items  []CartLine `json:"items"`
	Totals CartTotals `json:"totals"`
}

// CartRepository 购物车持久化接口，游客与会员各有一个实现
type CartRepository interface {
	Load(ctx context.Context) ([]CartLine, error)
	Add(ctx context.Context, line CartLine) (CartLine, error)
	SetQuantity(ctx context.Context, itemID string, quantity int) error
	Remove(ctx context.Context, itemID string) error
	Clear(ctx context.Context) error
	Subscribe(ctx context.Context, onChange func()) (func(), error)
	Owner() string
}

// CartStore 单个购买者的购物车
// 本地状态先行更新，持久化失败只记录日志，下次 Load 时与存储对齐
type CartStore struct {
	mu    sync.Mutex
	repo  CartRepository
	items []CartLine
}

// NewCartStore 创建购物车
func NewCartStore(repo CartRepository) *CartStore {
	return &CartStore{repo: repo}
}

// Owner 购物车归属标识
func (s *CartStore) Owner() string {
	return s.repo.Owner()
}

// Load 从存储读取并按去重键合并重复项；失败时保留原有本地状态
func (s *CartStore) Load(ctx context.Context) error {
	lines, err := s.repo.Load(ctx)
	if err != nil {
		logger.Warnw("cart_store_load_failed", "owner", s.repo.Owner(), "error", err)
		return err
	}
	consolidated := consolidateLines(lines)
	s.mu.Lock()
	s.items = consolidated
	s.mu.Unlock()
	return nil
}

// AddItem 同一去重键累加数量，否则新增
func (s *CartStore) AddItem(ctx context.Context, line CartLine) error {
	line.ProductID = strings.TrimSpace(line.ProductID)
	line.Size = models.NormalizeSize(line.Size)
	if err := line.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if idx := s.indexByKey(line.Key()); idx >= 0 {
		s.items[idx].Quantity += line.Quantity
	} else {
		s.items = append(s.items, line)
	}
	s.mu.Unlock()

	stored, err := s.repo.Add(ctx, line)
	if err != nil {
		logger.Warnw("cart_store_add_failed",
			"owner", s.repo.Owner(),
			"produto_id", line.ProductID,
			"tamanho", line.Size,
			"error", err,
		)
		return nil
	}

	// 存储返回的数量与 ID 为准
	s.mu.Lock()
	if idx := s.indexByKey(stored.Key()); idx >= 0 {
		s.items[idx].ID = stored.ID
		s.items[idx].Quantity = stored.Quantity
	}
	s.mu.Unlock()
	return nil
}

// UpdateQuantity 设置数量，数量小于等于 0 等同删除
func (s *CartStore) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}
	itemID = strings.TrimSpace(itemID)

	s.mu.Lock()
	if idx := s.indexByID(itemID); idx >= 0 {
		s.items[idx].Quantity = quantity
	}
	s.mu.Unlock()

	if err := s.repo.SetQuantity(ctx, itemID, quantity); err != nil {
		logger.Warnw("cart_store_update_failed", "owner", s.repo.Owner(), "item_id", itemID, "error", err)
	}
	return nil
}

// RemoveItem 删除购物车项，不存在时不做任何事
func (s *CartStore) RemoveItem(ctx context.Context, itemID string) error {
	itemID = strings.TrimSpace(itemID)

	s.mu.Lock()
	if idx := s.indexByID(itemID); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	s.mu.Unlock()

	if err := s.repo.Remove(ctx, itemID); err != nil {
		logger.Warnw("cart_store_remove_failed", "owner", s.repo.Owner(), "item_id", itemID, "error", err)
	}
	return nil
}

// Clear 清空购物车
func (s *CartStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		logger.Warnw("cart_store_clear_failed", "owner", s.repo.Owner(), "error", err)
	}
	return nil
}

// Items 当前购物车项副本
func (s *CartStore) Items() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CartLine, len(s.items))
	copy(out, s.items)
	return out
}

// Totals 由当前购物车项计算汇总
func (s *CartStore) Totals() CartTotals {
	return totalsOf(s.Items())
}

// Snapshot 购物车项与汇总
func (s *CartStore) Snapshot() CartSnapshot {
	items := s.Items()
	return CartSnapshot{Items: items, Totals: totalsOf(items)}
}

// Subscribe 订阅存储变更，每次变更后重新 Load 并回调最新快照
func (s *CartStore) Subscribe(ctx context.Context, onReload func(CartSnapshot)) (func(), error) {
	return s.repo.Subscribe(ctx, func() {
		if err := s.Load(ctx); err != nil {
			return
		}
		if onReload != nil {
			onReload(s.Snapshot())
		}
	})
}

func (s *CartStore) indexByKey(key string) int {
	for i := range s.items {
		if s.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s *CartStore) indexByID(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func totalsOf(items []CartLine) CartTotals {
	lineItems := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, item.LineItem())
	}
	return ComputeTotals(lineItems)
}

// consolidateLines 按去重键合并，数量相加，保留首次出现的 ID
func consolidateLines(lines []CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		line.Size = models.NormalizeSize(line.Size)
		if line.Quantity <= 0 {
			continue
		}
		key := line.Key()
		if idx, ok := index[key]; ok {
			out[idx].Quantity += line.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, line)
	}
	return out
}
