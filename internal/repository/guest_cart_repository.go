package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redvelvet-shop/internal/models"

	"github.com/redis/go-redis/v9"
)

// GuestCartLine 游客购物车项
type GuestCartLine struct {
	ID        string       `json:"id"`
	ProductID string       `json:"produto_id"`
	Name      string       `json:"nome"`
	UnitPrice models.Money `json:"preco"`
	Quantity  int          `json:"quantidade"`
	Size      string       `json:"tamanho,omitempty"`
	ImageURL  string       `json:"imagem_url,omitempty"`
	AddedAt   int64        `json:"added_at"`
}

// GuestLineID 游客购物车项 ID，由去重键做 URL 安全编码，可直接用作路径参数
func GuestLineID(productID, size string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(models.CartIdentityKey(productID, size)))
}

// GuestCartRepository 游客购物车数据访问接口
type GuestCartRepository interface {
	List(ctx context.Context, sessionID string) ([]GuestCartLine, error)
	Add(ctx context.Context, sessionID string, line GuestCartLine) (GuestCartLine, error)
	SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) error
	Remove(ctx context.Context, sessionID, itemID string) error
	Clear(ctx context.Context, sessionID string) error
}

// 商品快照与数量分开存放，数量用 HINCRBY 原子累加
var guestCartAddScript = redis.NewScript(`
redis.call("HSETNX", KEYS[1], ARGV[1], ARGV[2])
local qty = redis.call("HINCRBY", KEYS[2], ARGV[1], ARGV[3])
redis.call("EXPIRE", KEYS[1], ARGV[4])
redis.call("EXPIRE", KEYS[2], ARGV[4])
return qty
`)

var guestCartSetQuantityScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[2], ARGV[1], ARGV[2])
redis.call("EXPIRE", KEYS[1], ARGV[3])
redis.call("EXPIRE", KEYS[2], ARGV[3])
return 1
`)

// RedisGuestCartRepository Redis 实现
type RedisGuestCartRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewGuestCartRepository 创建 Redis 游客购物车仓库
func NewGuestCartRepository(client *redis.Client, prefix string, ttl time.Duration) *RedisGuestCartRepository {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rv"
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisGuestCartRepository{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisGuestCartRepository) keys(sessionID string) (string, string) {
	base := fmt.Sprintf("%s:cart:guest:%s", r.prefix, strings.TrimSpace(sessionID))
	return base + ":items", base + ":qty"
}

func (r *RedisGuestCartRepository) ttlSeconds() int {
	return int(r.ttl / time.Second)
}

// List 获取游客购物车项，按加入时间排序
func (r *RedisGuestCartRepository) List(ctx context.Context, sessionID string) ([]GuestCartLine, error) {
	itemsKey, qtyKey := r.keys(sessionID)
	snapshots, err := r.client.HGetAll(ctx, itemsKey).Result()
	if err != nil {
		return nil, err
	}
	quantities, err := r.client.HGetAll(ctx, qtyKey).Result()
	if err != nil {
		return nil, err
	}

	lines := make([]GuestCartLine, 0, len(snapshots))
	for id, raw := range snapshots {
		qty, err := strconv.Atoi(quantities[id])
		if err != nil || qty <= 0 {
			continue
		}
		var line GuestCartLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			continue
		}
		line.ID = id
		line.Quantity = qty
		lines = append(lines, line)
	}
	sortGuestLines(lines)
	return lines, nil
}

// Add 按去重键原子累加数量
func (r *RedisGuestCartRepository) Add(ctx context.Context, sessionID string, line GuestCartLine) (GuestCartLine, error) {
	line, err := prepareGuestLine(line)
	if err != nil {
		return GuestCartLine{}, err
	}
	snapshot, err := json.Marshal(line)
	if err != nil {
		return GuestCartLine{}, err
	}
	itemsKey, qtyKey := r.keys(sessionID)
	qty, err := guestCartAddScript.Run(ctx, r.client, []string{itemsKey, qtyKey},
		line.ID, string(snapshot), line.Quantity, r.ttlSeconds()).Int()
	if err != nil {
		return GuestCartLine{}, err
	}
	line.Quantity = qty
	return line, nil
}

// SetQuantity 设置数量，数量小于等于 0 时删除；不存在的项忽略
func (r *RedisGuestCartRepository) SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, sessionID, itemID)
	}
	itemsKey, qtyKey := r.keys(sessionID)
	return guestCartSetQuantityScript.Run(ctx, r.client, []string{itemsKey, qtyKey},
		strings.TrimSpace(itemID), quantity, r.ttlSeconds()).Err()
}

// Remove 删除购物车项
func (r *RedisGuestCartRepository) Remove(ctx context.Context, sessionID, itemID string) error {
	itemsKey, qtyKey := r.keys(sessionID)
	itemID = strings.TrimSpace(itemID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, itemsKey, itemID)
		pipe.HDel(ctx, qtyKey, itemID)
		return nil
	})
	return err
}

// Clear 清空游客购物车
func (r *RedisGuestCartRepository) Clear(ctx context.Context, sessionID string) error {
	itemsKey, qtyKey := r.keys(sessionID)
	return r.client.Del(ctx, itemsKey, qtyKey).Err()
}

// MemoryGuestCartRepository 进程内实现，Redis 未启用时使用
type MemoryGuestCartRepository struct {
	mu    sync.Mutex
	carts map[string]map[string]GuestCartLine
}

// NewMemoryGuestCartRepository 创建进程内游客购物车仓库
func NewMemoryGuestCartRepository() *MemoryGuestCartRepository {
	return &MemoryGuestCartRepository{carts: make(map[string]map[string]GuestCartLine)}
}

// List 获取游客购物车项
func (r *MemoryGuestCartRepository) List(_ context.Context, sessionID string) ([]GuestCartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]GuestCartLine, 0, len(r.carts[sessionID]))
	for _, line := range r.carts[sessionID] {
		lines = append(lines, line)
	}
	sortGuestLines(lines)
	return lines, nil
}

// Add 按去重键累加数量
func (r *MemoryGuestCartRepository) Add(_ context.Context, sessionID string, line GuestCartLine) (GuestCartLine, error) {
	line, err := prepareGuestLine(line)
	if err != nil {
		return GuestCartLine{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[sessionID]
	if !ok {
		cart = make(map[string]GuestCartLine)
		r.carts[sessionID] = cart
	}
	if existing, ok := cart[line.ID]; ok {
		existing.Quantity += line.Quantity
		cart[line.ID] = existing
		return existing, nil
	}
	cart[line.ID] = line
	return line, nil
}

// SetQuantity 设置数量
func (r *MemoryGuestCartRepository) SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) error {
	if quantity <= 0 {
		return r.Remove(ctx, sessionID, itemID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if line, ok := r.carts[sessionID][itemID]; ok {
		line.Quantity = quantity
		r.carts[sessionID][itemID] = line
	}
	return nil
}

// Remove 删除购物车项
func (r *MemoryGuestCartRepository) Remove(_ context.Context, sessionID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts[sessionID], itemID)
	return nil
}

// Clear 清空游客购物车
func (r *MemoryGuestCartRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, sessionID)
	return nil
}

func prepareGuestLine(line GuestCartLine) (GuestCartLine, error) {
	line.ProductID = strings.TrimSpace(line.ProductID)
	line.Size = models.NormalizeSize(line.Size)
	if line.ProductID == "" || line.Quantity <= 0 || line.UnitPrice.IsNegative() {
		return GuestCartLine{}, ErrInvalidCartItem
	}
	line.ID = GuestLineID(line.ProductID, line.Size)
	if line.AddedAt == 0 {
		line.AddedAt = time.Now().UnixNano()
	}
	return line, nil
}

func sortGuestLines(lines []GuestCartLine) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].AddedAt == lines[j].AddedAt {
			return lines[i].ID < lines[j].ID
		}
		return lines[i].AddedAt < lines[j].AddedAt
	})
}
