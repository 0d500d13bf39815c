package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redvelvet-shop/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	UseClient(client, "rvtest")
	t.Cleanup(func() {
		Reset()
		_ = client.Close()
	})
	return mr
}

func TestJSONCacheDisabledIsNoop(t *testing.T) {
	Reset()
	ctx := context.Background()
	if err := SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("set should be a no-op: %v", err)
	}
	var dest map[string]int
	hit, err := GetJSON(ctx, "k", &dest)
	if err != nil || hit {
		t.Fatalf("disabled cache should miss, hit=%v err=%v", hit, err)
	}
}

func TestCustomerCacheRoundTrip(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	customer := &models.Customer{ID: "c-1", UserID: "u1", Name: "Ana", Email: "ana@example.com"}
	if err := SetCustomer(ctx, customer, time.Minute); err != nil {
		t.Fatalf("set customer failed: %v", err)
	}
	if !mr.Exists("rvtest:customer:user:u1") {
		t.Fatalf("customer key should be prefixed")
	}
	snapshot, hit, err := GetCustomer(ctx, "u1")
	if err != nil || !hit {
		t.Fatalf("expected cache hit, err=%v", err)
	}
	if snapshot.ToModel().ID != "c-1" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	if err := DelCustomer(ctx, "u1"); err != nil {
		t.Fatalf("del customer failed: %v", err)
	}
	if _, hit, _ := GetCustomer(ctx, "u1"); hit {
		t.Fatalf("customer should be evicted")
	}
}

func TestProductListKeyChangesAfterBump(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	before, err := ProductListKey(ctx, "Bolos", " velvet ", 1, 20)
	if err != nil {
		t.Fatalf("build key failed: %v", err)
	}
	if before != "products:list:v0:bolos:velvet:1:20" {
		t.Fatalf("unexpected key: %s", before)
	}
	if err := BumpProductListVersion(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	after, _ := ProductListKey(ctx, "Bolos", " velvet ", 1, 20)
	if after == before {
		t.Fatalf("key should change after bump")
	}
}

func TestRedisCartNotifierDeliversToSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	notifier := NewRedisCartNotifier(client, "rvtest")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, stop, err := notifier.Subscribe(ctx, CartOwnerKey("customer", "c-1"))
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer stop()

	if err := notifier.Publish(ctx, CartOwnerKey("customer", "c-1")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatalf("notification not delivered")
	}

	stop()
	select {
	case _, ok := <-events:
		if ok {
			// 可能残留一条通知，第二次读取必须关闭
			if _, ok := <-events; ok {
				t.Fatalf("channel should be closed after stop")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel should be closed after stop")
	}
}

func TestMemoryCartNotifier(t *testing.T) {
	notifier := NewMemoryCartNotifier()
	ctx, cancel := context.WithCancel(context.Background())

	events, _, err := notifier.Subscribe(ctx, "guest:s1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	other, stopOther, _ := notifier.Subscribe(context.Background(), "guest:s2")
	defer stopOther()

	_ = notifier.Publish(ctx, "guest:s1")
	_ = notifier.Publish(ctx, "guest:s1")
	select {
	case <-events:
	default:
		t.Fatalf("expected a coalesced notification")
	}
	select {
	case <-other:
		t.Fatalf("other owner should not be notified")
	default:
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for notifier.subscriberCount("guest:s1") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription should be released after ctx cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := <-events; ok {
		t.Fatalf("channel should be closed")
	}
}
