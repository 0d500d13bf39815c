package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CartNotifier 购物车变更通知
// owner 形如 customer:<id> 或 guest:<session>
type CartNotifier interface {
	Publish(ctx context.Context, owner string) error
	Subscribe(ctx context.Context, owner string) (<-chan struct{}, func(), error)
}

// CartOwnerKey 通知频道的所有者标识
func CartOwnerKey(kind, id string) string {
	return strings.TrimSpace(kind) + ":" + strings.TrimSpace(id)
}

// NewCartNotifier Redis 可用时走 Pub/Sub，否则退化为进程内通知
func NewCartNotifier() CartNotifier {
	if Enabled() {
		return NewRedisCartNotifier(Client(), Prefix())
	}
	return NewMemoryCartNotifier()
}

// RedisCartNotifier 基于 Redis Pub/Sub，多实例之间共享
type RedisCartNotifier struct {
	client *redis.Client
	prefix string
}

// NewRedisCartNotifier 创建 Redis 通知器
func NewRedisCartNotifier(client *redis.Client, prefix string) *RedisCartNotifier {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisCartNotifier{client: client, prefix: prefix}
}

func (n *RedisCartNotifier) channel(owner string) string {
	return fmt.Sprintf("%s:cart:events:%s", n.prefix, strings.TrimSpace(owner))
}

// Publish 发布变更
func (n *RedisCartNotifier) Publish(ctx context.Context, owner string) error {
	return n.client.Publish(ctx, n.channel(owner), strconv.FormatInt(time.Now().UnixNano(), 10)).Err()
}

// Subscribe 订阅变更，返回的通道在取消或 ctx 结束后关闭
func (n *RedisCartNotifier) Subscribe(ctx context.Context, owner string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel(owner))
	// 等待订阅确认，避免丢失紧随其后的发布
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan struct{}, 1)
	messages := pubsub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
		})
	}
	return out, stop, nil
}

// MemoryCartNotifier 进程内通知，仅单实例有效
type MemoryCartNotifier struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan struct{}
}

// NewMemoryCartNotifier 创建进程内通知器
func NewMemoryCartNotifier() *MemoryCartNotifier {
	return &MemoryCartNotifier{subs: make(map[string]map[uint64]chan struct{})}
}

// Publish 发布变更，订阅方未消费时合并通知
func (n *MemoryCartNotifier) Publish(_ context.Context, owner string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[strings.TrimSpace(owner)] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe 订阅变更
func (n *MemoryCartNotifier) Subscribe(ctx context.Context, owner string) (<-chan struct{}, func(), error) {
	owner = strings.TrimSpace(owner)
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	if n.subs[owner] == nil {
		n.subs[owner] = make(map[uint64]chan struct{})
	}
	n.subs[owner][id] = ch
	n.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[owner], id)
			if len(n.subs[owner]) == 0 {
				delete(n.subs, owner)
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	release := context.AfterFunc(ctx, stop)
	return ch, func() {
		release()
		stop()
	}, nil
}

// subscriberCount 当前订阅数
func (n *MemoryCartNotifier) subscriberCount(owner string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[strings.TrimSpace(owner)])
}
