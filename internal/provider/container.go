package provider

import (
	"time"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/config"
	"github.com/redvelvet-shop/internal/logger"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/payment/mollie"
	"github.com/redvelvet-shop/internal/queue"
	"github.com/redvelvet-shop/internal/repository"
	"github.com/redvelvet-shop/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	CustomerRepo  repository.CustomerRepository
	ProductRepo   repository.ProductRepository
	OrderRepo     repository.OrderRepository
	CartRepo      repository.CartRepository
	GuestCartRepo repository.GuestCartRepository

	// Infrastructure
	CartNotifier cache.CartNotifier
	MollieClient *mollie.Client

	// Services
	CustomerService       *service.CustomerService
	ProductService        *service.ProductService
	OrderService          *service.OrderService
	CartService           *service.CartService
	CheckoutService       *service.CheckoutService
	PaymentWebhookService *service.PaymentWebhookService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化支付渠道与通知
	c.initInfrastructure()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CartRepo = repository.NewCartRepository(db)

	// 未启用 Redis 时游客购物车退化为进程内存储
	if cache.Enabled() {
		ttl := time.Duration(c.Config.Cart.GuestTTLHours) * time.Hour
		c.GuestCartRepo = repository.NewGuestCartRepository(cache.Client(), cache.Prefix(), ttl)
	} else {
		logger.Warnw("provider_guest_cart_memory_fallback")
		c.GuestCartRepo = repository.NewMemoryGuestCartRepository()
	}
}

func (c *Container) initInfrastructure() {
	c.CartNotifier = cache.NewCartNotifier()

	mollieCfg := c.Config.Mollie
	client, err := mollie.NewClient(mollie.Config{
		APIKey:         mollieCfg.APIKey,
		APIBaseURL:     mollieCfg.APIBaseURL,
		Currency:       mollieCfg.Currency,
		Locale:         mollieCfg.Locale,
		TimeoutSeconds: mollieCfg.TimeoutSeconds,
	})
	if err != nil {
		// 结账与回调在渠道未配置时统一返回 SERVER_ERROR
		logger.Warnw("provider_init_mollie_failed", "error", err)
		return
	}
	c.MollieClient = client
}

func (c *Container) initServices() {
	cfg := c.Config
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, seconds(cfg.Cache.CustomerTTLSeconds))
	c.ProductService = service.NewProductService(c.ProductRepo, seconds(cfg.Cache.ProductTTLSeconds))
	c.OrderService = service.NewOrderService(c.OrderRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.GuestCartRepo, c.CartNotifier)

	var gateway service.PaymentGateway = unconfiguredGateway{}
	if c.MollieClient != nil {
		gateway = c.MollieClient
	}
	c.CheckoutService = service.NewCheckoutService(gateway, service.CheckoutOptions{
		SiteURL:   cfg.Checkout.SiteURL,
		BrandName: cfg.Checkout.BrandName,
		Locale:    cfg.Mollie.Locale,
		Currency:  cfg.Mollie.Currency,
	})

	var tasks service.TaskEnqueuer
	if c.QueueClient != nil {
		tasks = c.QueueClient
	}
	c.PaymentWebhookService = service.NewPaymentWebhookService(
		gateway,
		c.OrderRepo,
		c.CustomerService,
		c.CartService,
		tasks,
		seconds(cfg.Webhook.ReconcileDelaySeconds),
	)
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}
