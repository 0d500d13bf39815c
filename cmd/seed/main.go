package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/config"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/repository"
	"github.com/redvelvet-shop/internal/service"

	"gorm.io/gorm"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 商品列表缓存需要随新增商品失效
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		stdLog.Printf("Redis unavailable, product list cache not bumped: %v", err)
	}

	products := []models.Product{
		{
			Code:        "RV-BOLO-001",
			Reference:   "BOLO-RV-INT",
			Name:        "Bolo Red Velvet Inteiro",
			Description: "Bolo red velvet com cobertura de queijo creme, 8 a 10 fatias.",
			Category:    "bolos",
			Price:       models.MustMoney("32.00"),
			Stock:       12,
			ImageURL:    "https://images.unsplash.com/photo-1586788680434-30d324b2d46f?w=800",
			VAT:         models.MustMoney("13"),
		},
		{
			Code:        "RV-BOLO-002",
			Reference:   "BOLO-RV-FAT",
			Name:        "Fatia Red Velvet",
			Description: "Fatia individual do nosso bolo clássico.",
			Category:    "bolos",
			Price:       models.MustMoney("4.50"),
			Stock:       40,
			ImageURL:    "https://images.unsplash.com/photo-1616541823729-00fe0aacd32c?w=800",
			VAT:         models.MustMoney("13"),
		},
		{
			Code:        "RV-CUP-001",
			Reference:   "CUP-RV-6",
			Name:        "Caixa de 6 Cupcakes",
			Description: "Seis cupcakes red velvet com frosting de baunilha.",
			Category:    "cupcakes",
			Price:       models.MustMoney("14.00"),
			Stock:       25,
			ImageURL:    "https://images.unsplash.com/photo-1614707267537-b85aaf00c4b7?w=800",
			VAT:         models.MustMoney("13"),
		},
		{
			Code:        "RV-MERCH-001",
			Reference:   "TSHIRT-RV",
			Name:        "T-shirt RedVelvet",
			Description: "T-shirt de algodão orgânico com o logótipo da pastelaria.",
			Category:    "merch",
			Price:       models.MustMoney("18.00"),
			Stock:       30,
			Sizes:       models.StringArray{"S", "M", "L", "XL"},
			ImageURL:    "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=800",
			VAT:         models.MustMoney("23"),
		},
		{
			Code:        "RV-MERCH-002",
			Reference:   "AVENTAL-RV",
			Name:        "Avental RedVelvet",
			Description: "Avental de cozinha bordado.",
			Category:    "merch",
			Price:       models.MustMoney("22.50"),
			Stock:       10,
			ImageURL:    "https://images.unsplash.com/photo-1556909114-f6e7ad7d3136?w=800",
			VAT:         models.MustMoney("23"),
		},
	}

	productService := service.NewProductService(repository.NewProductRepository(models.DB), time.Duration(cfg.Cache.ProductTTLSeconds)*time.Second)
	ctx := context.Background()
	created := 0
	for _, item := range products {
		product := item
		var existing models.Product
		err := models.DB.Where("code = ?", product.Code).First(&existing).Error
		if err == nil {
			stdLog.Printf("Product already exists: %s", product.Code)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			stdLog.Printf("Failed to check product %s: %v", product.Code, err)
			continue
		}
		if err := productService.Create(ctx, &product); err != nil {
			stdLog.Printf("Failed to create product %s: %v", product.Code, err)
			continue
		}
		created++
		stdLog.Printf("Created product: %s", product.Code)
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Printf("- %d/%d Products\n", created, len(products))
}
