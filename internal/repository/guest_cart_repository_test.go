package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redvelvet-shop/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func setupGuestCartRedis(t *testing.T) (*RedisGuestCartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewGuestCartRepository(client, "rvtest", time.Hour), mr
}

func TestGuestCartRepositoryAddIncrementsSameKey(t *testing.T) {
	repo, mr := setupGuestCartRedis(t)
	ctx := context.Background()

	first, err := repo.Add(ctx, "sess-1", GuestCartLine{ProductID: "p1", Name: "Bolo", UnitPrice: models.MustMoney("10"), Quantity: 1, Size: " M "})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if first.ID != GuestLineID("p1", "M") {
		t.Fatalf("unexpected line id: %s", first.ID)
	}
	second, err := repo.Add(ctx, "sess-1", GuestCartLine{ProductID: "p1", Name: "Bolo", UnitPrice: models.MustMoney("10"), Quantity: 2, Size: "M"})
	if err != nil {
		t.Fatalf("add again failed: %v", err)
	}
	if second.Quantity != 3 {
		t.Fatalf("quantity want 3 got %d", second.Quantity)
	}

	lines, err := repo.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 3 || lines[0].UnitPrice.String() != "10.00" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
	if ttl := mr.TTL("rvtest:cart:guest:sess-1:qty"); ttl <= 0 {
		t.Fatalf("guest cart keys should expire, ttl=%v", ttl)
	}
}

func TestGuestCartRepositoryConcurrentAdd(t *testing.T) {
	repo, _ := setupGuestCartRedis(t)
	ctx := context.Background()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := repo.Add(gctx, "sess-race", GuestCartLine{ProductID: "p1", UnitPrice: models.MustMoney("1"), Quantity: 1})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent add failed: %v", err)
	}
	lines, _ := repo.List(ctx, "sess-race")
	if len(lines) != 1 || lines[0].Quantity != 10 {
		t.Fatalf("expected one line with quantity 10, got %+v", lines)
	}
}

func TestGuestCartRepositorySetQuantityRemoveClear(t *testing.T) {
	repo, _ := setupGuestCartRedis(t)
	ctx := context.Background()
	a, _ := repo.Add(ctx, "sess", GuestCartLine{ProductID: "a", UnitPrice: models.MustMoney("1"), Quantity: 1})
	b, _ := repo.Add(ctx, "sess", GuestCartLine{ProductID: "b", UnitPrice: models.MustMoney("2"), Quantity: 1})

	if err := repo.SetQuantity(ctx, "sess", a.ID, 4); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if err := repo.SetQuantity(ctx, "sess", GuestLineID("missing", ""), 4); err != nil {
		t.Fatalf("set quantity on missing line should be ignored, got %v", err)
	}
	if err := repo.SetQuantity(ctx, "sess", b.ID, 0); err != nil {
		t.Fatalf("zero quantity should remove, got %v", err)
	}

	lines, _ := repo.List(ctx, "sess")
	if len(lines) != 1 || lines[0].ID != a.ID || lines[0].Quantity != 4 {
		t.Fatalf("unexpected lines: %+v", lines)
	}

	if err := repo.Remove(ctx, "sess", GuestLineID("missing", "")); err != nil {
		t.Fatalf("remove of absent line should be a no-op, got %v", err)
	}
	if err := repo.Clear(ctx, "sess"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	lines, _ = repo.List(ctx, "sess")
	if len(lines) != 0 {
		t.Fatalf("cart should be empty, got %+v", lines)
	}
}

func TestMemoryGuestCartRepository(t *testing.T) {
	repo := NewMemoryGuestCartRepository()
	ctx := context.Background()
	if _, err := repo.Add(ctx, "s", GuestCartLine{ProductID: "p", UnitPrice: models.MustMoney("1"), Quantity: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	line, _ := repo.Add(ctx, "s", GuestCartLine{ProductID: "p", UnitPrice: models.MustMoney("1"), Quantity: 1})
	if line.Quantity != 2 {
		t.Fatalf("quantity want 2 got %d", line.Quantity)
	}
	if _, err := repo.Add(ctx, "s", GuestCartLine{ProductID: "p", Quantity: 0}); err != ErrInvalidCartItem {
		t.Fatalf("expected ErrInvalidCartItem, got %v", err)
	}
}

func TestGuestLineIDKeepsDistinctKeysApart(t *testing.T) {
	ctx := context.Background()
	redisRepo, _ := setupGuestCartRedis(t)
	repos := map[string]GuestCartRepository{
		"redis":  redisRepo,
		"memory": NewMemoryGuestCartRepository(),
	}
	lines := []GuestCartLine{
		{ProductID: "p1", Size: "", UnitPrice: models.MustMoney("1"), Quantity: 1},
		{ProductID: "p1", Size: "default", UnitPrice: models.MustMoney("1"), Quantity: 1},
		{ProductID: "a_b", Size: "", UnitPrice: models.MustMoney("1"), Quantity: 1},
		{ProductID: "a", Size: "b_default", UnitPrice: models.MustMoney("1"), Quantity: 1},
	}
	for name, repo := range repos {
		for _, line := range lines {
			if _, err := repo.Add(ctx, "sess-keys", line); err != nil {
				t.Fatalf("%s add failed: %v", name, err)
			}
		}
		stored, err := repo.List(ctx, "sess-keys")
		if err != nil {
			t.Fatalf("%s list failed: %v", name, err)
		}
		if len(stored) != len(lines) {
			t.Fatalf("%s: expected %d lines, got %+v", name, len(lines), stored)
		}
		for _, line := range stored {
			if line.Quantity != 1 {
				t.Fatalf("%s: distinct keys merged into %+v", name, line)
			}
		}
	}
}
