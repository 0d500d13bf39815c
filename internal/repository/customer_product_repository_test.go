package repository

import (
	"testing"
	"time"

	"github.com/redvelvet-shop/internal/models"
)

func TestCustomerRepositoryGetOrCreate(t *testing.T) {
	repo := NewCustomerRepository(setupRepositoryTestDB(t))

	created, err := repo.GetOrCreate(&models.Customer{UserID: " u1 ", Name: "Ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	if created.ID == "" || created.UserID != "u1" {
		t.Fatalf("unexpected customer: %+v", created)
	}

	again, err := repo.GetOrCreate(&models.Customer{UserID: "u1", Name: "Other"})
	if err != nil {
		t.Fatalf("get existing customer failed: %v", err)
	}
	if again.ID != created.ID || again.Name != "Ana" {
		t.Fatalf("existing customer should be returned unchanged, got %+v", again)
	}

	again.Phone = "912345678"
	if err := repo.Update(again); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	loaded, _ := repo.GetByUserID("u1")
	if loaded.Phone != "912345678" {
		t.Fatalf("phone should be updated, got %q", loaded.Phone)
	}
}

func TestProductRepositoryListFilters(t *testing.T) {
	repo := NewProductRepository(setupRepositoryTestDB(t))
	base := time.Now().Add(-time.Hour)
	products := []models.Product{
		{Code: "RV-001", Name: "Bolo Red Velvet", Category: "bolos", Price: models.MustMoney("25"), CreatedAt: base},
		{Code: "RV-002", Name: "Cupcake", Category: "bolos", Price: models.MustMoney("3.5"), CreatedAt: base.Add(time.Minute)},
		{Code: "TS-001", Name: "T-shirt", Category: "merch", Price: models.MustMoney("15"), Sizes: models.StringArray{"S", "M"}, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range products {
		if err := repo.Create(&products[i]); err != nil {
			t.Fatalf("create product failed: %v", err)
		}
	}

	all, total, err := repo.List(ProductListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || all[0].Code != "TS-001" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if len(all[0].Sizes) != 2 {
		t.Fatalf("sizes should round trip, got %v", all[0].Sizes)
	}

	bolos, total, _ := repo.List(ProductListFilter{Category: "bolos"})
	if total != 2 || len(bolos) != 2 {
		t.Fatalf("category filter want 2 got %d", total)
	}

	found, total, _ := repo.List(ProductListFilter{Search: "velvet"})
	if total != 1 || found[0].Code != "RV-001" {
		t.Fatalf("search should match by name, got %+v", found)
	}

	byID, err := repo.GetByID(products[1].ID)
	if err != nil || byID == nil || byID.Name != "Cupcake" {
		t.Fatalf("get by id failed: %v %+v", err, byID)
	}
}
