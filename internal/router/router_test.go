package router

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redvelvet-shop/internal/cache"
	"github.com/redvelvet-shop/internal/config"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/payment/mollie"
	"github.com/redvelvet-shop/internal/provider"
	"github.com/redvelvet-shop/internal/repository"
	"github.com/redvelvet-shop/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type routerGateway struct {
	mu         sync.Mutex
	creates    int
	lastCreate mollie.CreateInput
	createURL  string
	payments   map[string]*mollie.Payment
}

func (g *routerGateway) CreatePayment(_ context.Context, input mollie.CreateInput) (*mollie.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	g.lastCreate = input
	return &mollie.CreateResult{ID: "tr_router", Status: mollie.StatusOpen, CheckoutURL: g.createURL}, nil
}

func (g *routerGateway) GetPayment(_ context.Context, id string) (*mollie.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	payment, ok := g.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: get payment status 404", mollie.ErrResponseInvalid)
	}
	return payment, nil
}

type routerFixture struct {
	engine    *gin.Engine
	container *provider.Container
	gateway   *routerGateway
	db        *gorm.DB
}

func newRouterFixture(t *testing.T, mutate func(cfg *config.Config)) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.MigrateDB(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "debug"},
		Auth:     config.AuthConfig{JWTSecret: testJWTSecret, Audience: "authenticated"},
		Cart:     config.CartConfig{SessionHeader: "X-Cart-Session"},
		Mollie:   config.MollieConfig{Currency: "EUR", Locale: "pt_PT"},
		Checkout: config.CheckoutConfig{SiteURL: "https://shop.example", BrandName: "RedVelvet"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	gateway := &routerGateway{createURL: "https://pay.example/tr_router", payments: map[string]*mollie.Payment{}}
	c := &provider.Container{
		Config:        cfg,
		CustomerRepo:  repository.NewCustomerRepository(db),
		ProductRepo:   repository.NewProductRepository(db),
		OrderRepo:     repository.NewOrderRepository(db),
		CartRepo:      repository.NewCartRepository(db),
		GuestCartRepo: repository.NewMemoryGuestCartRepository(),
		CartNotifier:  cache.NewMemoryCartNotifier(),
	}
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, time.Minute)
	c.ProductService = service.NewProductService(c.ProductRepo, time.Minute)
	c.OrderService = service.NewOrderService(c.OrderRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.GuestCartRepo, c.CartNotifier)
	c.CheckoutService = service.NewCheckoutService(gateway, service.CheckoutOptions{
		SiteURL:   cfg.Checkout.SiteURL,
		BrandName: cfg.Checkout.BrandName,
		Locale:    cfg.Mollie.Locale,
		Currency:  cfg.Mollie.Currency,
	})
	c.PaymentWebhookService = service.NewPaymentWebhookService(gateway, c.OrderRepo, c.CustomerService, c.CartService, nil, time.Minute)

	return &routerFixture{
		engine:    SetupRouter(cfg, c),
		container: c,
		gateway:   gateway,
		db:        db,
	}
}

func (f *routerFixture) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, subject string) map[string]string {
	t.Helper()
	return map[string]string{"Authorization": "Bearer " + signTestToken(t, testJWTSecret, subject, subject+"@example.pt", time.Hour)}
}

type cartEnvelope struct {
	StatusCode int                  `json:"status_code"`
	Data       service.CartSnapshot `json:"data"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) service.CartSnapshot {
	t.Helper()
	var resp cartEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal cart failed: %v body=%s", err, w.Body.String())
	}
	if resp.StatusCode != 0 {
		t.Fatalf("unexpected status_code %d body=%s", resp.StatusCode, w.Body.String())
	}
	return resp.Data
}

func TestCheckoutWithoutItems(t *testing.T) {
	f := newRouterFixture(t, nil)
	w := f.do(t, http.MethodPost, "/api/checkout", `{"items":[]}`, nil)

	if w.Code != http.StatusBadRequest || strings.TrimSpace(w.Body.String()) != `{"error":"SEM_ITENS"}` {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
	if f.gateway.creates != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestCheckoutInvalidItem(t *testing.T) {
	f := newRouterFixture(t, nil)
	w := f.do(t, http.MethodPost, "/api/checkout", `{"items":[{"produto_id":"p1","nome":"Bolo","preco":"5.00","quantidade":0}]}`, nil)

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "ITEM_INVALIDO") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestCheckoutUsesTokenSubject(t *testing.T) {
	f := newRouterFixture(t, nil)
	body := `{"userId":"spoofed","items":[{"produto_id":"p1","nome":"Bolo Red Velvet","preco":14,"quantidade":1}]}`
	w := f.do(t, http.MethodPost, "/api/checkout", body, bearer(t, "u9"))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
	var resp service.CheckoutResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.ID != "tr_router" || resp.URL != "https://pay.example/tr_router" {
		t.Fatalf("unexpected checkout result: %+v", resp)
	}
	meta, ok := f.gateway.lastCreate.Metadata.(service.PaymentMetadata)
	if !ok || meta.UserID != "u9" {
		t.Fatalf("metadata should carry the token subject, got %+v", f.gateway.lastCreate.Metadata)
	}
	if f.gateway.lastCreate.Amount != "19.90" || f.gateway.lastCreate.WebhookURL != "https://shop.example/api/payments/mollie/webhook" {
		t.Fatalf("unexpected create input: %+v", f.gateway.lastCreate)
	}
}

func TestCheckoutMissingCheckoutURL(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.gateway.createURL = ""
	w := f.do(t, http.MethodPost, "/api/checkout", `{"items":[{"produto_id":"p1","nome":"Bolo","preco":"5","quantidade":1}]}`, nil)

	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "SEM_URL_CHECKOUT") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func postWebhook(f *routerFixture, id string) *httptest.ResponseRecorder {
	form := url.Values{}
	if id != "" {
		form.Set("id", id)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/payments/mollie/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestMollieWebhookResponses(t *testing.T) {
	f := newRouterFixture(t, nil)
	items := []models.LineItem{{ProductID: "p1", Name: "Bolo", UnitPrice: models.MustMoney("14"), Quantity: 1}}
	totals := service.ComputeTotals(items)
	raw, _ := json.Marshal(service.PaymentMetadata{Items: items, Subtotal: totals.Subtotal, ShippingCost: totals.ShippingCost, Total: totals.Total})
	f.gateway.payments["tr_paid"] = &mollie.Payment{ID: "tr_paid", Status: mollie.StatusPaid, Amount: "19.90", Currency: "EUR", Metadata: raw}

	if w := postWebhook(f, "tr_paid"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("paid webhook: %d %s", w.Code, w.Body.String())
	}
	if w := postWebhook(f, "tr_paid"); w.Code != http.StatusOK {
		t.Fatalf("duplicate webhook should be ok, got %d", w.Code)
	}
	if w := postWebhook(f, ""); w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"ok":false`) {
		t.Fatalf("missing id: %d %s", w.Code, w.Body.String())
	}
	if w := postWebhook(f, "tr_unknown"); w.Code != http.StatusInternalServerError {
		t.Fatalf("provider failure should be 500, got %d", w.Code)
	}

	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one order, got %d", count)
	}
}

func TestGuestCartFlow(t *testing.T) {
	f := newRouterFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/cart", "", nil)
	session := w.Header().Get("X-Cart-Session")
	if session == "" {
		t.Fatalf("guest should receive a cart session")
	}
	if cart := decodeCart(t, w); len(cart.Items) != 0 || !cart.Totals.Total.IsZero() {
		t.Fatalf("new cart should be empty: %+v", cart)
	}

	headers := map[string]string{"X-Cart-Session": session}
	item := `{"produto_id":"p1","nome":"Bolo","preco":"10.00","quantidade":1,"tamanho":"M"}`
	f.do(t, http.MethodPost, "/api/cart/items", item, headers)
	w = f.do(t, http.MethodPost, "/api/cart/items", item, headers)
	cart := decodeCart(t, w)
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("same item should increment: %+v", cart.Items)
	}
	if cart.Totals.Subtotal.String() != "20.00" || cart.Totals.ShippingCost.String() != "5.90" || cart.Totals.ItemCount != 2 {
		t.Fatalf("unexpected totals: %+v", cart.Totals)
	}

	itemID := cart.Items[0].ID
	w = f.do(t, http.MethodPut, "/api/cart/items/"+itemID, `{"quantidade":3}`, headers)
	if cart := decodeCart(t, w); cart.Items[0].Quantity != 3 || cart.Totals.ShippingCost.String() != "3.50" {
		t.Fatalf("update should set quantity: %+v", cart)
	}
	w = f.do(t, http.MethodPut, "/api/cart/items/"+itemID, `{"quantidade":0}`, headers)
	if cart := decodeCart(t, w); len(cart.Items) != 0 {
		t.Fatalf("zero quantity should remove: %+v", cart.Items)
	}

	w = f.do(t, http.MethodDelete, "/api/cart/items/missing", "", headers)
	if cart := decodeCart(t, w); len(cart.Items) != 0 {
		t.Fatalf("removing an absent item should be a no-op")
	}

	w = f.do(t, http.MethodPost, "/api/cart/items", `{"produto_id":"p1","preco":"1","quantidade":-2}`, headers)
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.StatusCode != 400 {
		t.Fatalf("negative quantity should be rejected, got %s", w.Body.String())
	}
}

func TestCartMergeAfterSignIn(t *testing.T) {
	f := newRouterFixture(t, nil)
	headers := map[string]string{"X-Cart-Session": "guest-merge"}
	f.do(t, http.MethodPost, "/api/cart/items", `{"produto_id":"p1","nome":"Bolo","preco":"10","quantidade":2}`, headers)

	auth := bearer(t, "u5")
	f.do(t, http.MethodPost, "/api/cart/items", `{"produto_id":"p1","nome":"Bolo","preco":"10","quantidade":1}`, auth)

	mergeHeaders := bearer(t, "u5")
	mergeHeaders["X-Cart-Session"] = "guest-merge"
	w := f.do(t, http.MethodPost, "/api/cart/merge", "", mergeHeaders)
	cart := decodeCart(t, w)
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("merge should sum by identity key: %+v", cart.Items)
	}

	guest := decodeCart(t, f.do(t, http.MethodGet, "/api/cart", "", headers))
	if len(guest.Items) != 0 {
		t.Fatalf("guest cart should be cleared after merge: %+v", guest.Items)
	}
}

func TestAccountRoutesRequireAuth(t *testing.T) {
	f := newRouterFixture(t, nil)
	for _, target := range []string{"/api/account/profile", "/api/account/orders"} {
		w := f.do(t, http.MethodGet, target, "", nil)
		if code := decodeStatusCode(t, w.Body.Bytes()); code != 401 {
			t.Fatalf("%s status_code want 401 got %d", target, code)
		}
	}
}

func TestAccountProfileAndOrders(t *testing.T) {
	f := newRouterFixture(t, nil)
	auth := bearer(t, "u7")

	w := f.do(t, http.MethodPut, "/api/account/profile", `{"nome":"Rita","email":"rita@example.pt","telefone":"910000000","morada":"Porto"}`, auth)
	var profile struct {
		StatusCode int             `json:"status_code"`
		Data       models.Customer `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil || profile.StatusCode != 0 {
		t.Fatalf("update profile failed: %s", w.Body.String())
	}
	if profile.Data.Name != "Rita" || profile.Data.UserID != "u7" {
		t.Fatalf("unexpected profile: %+v", profile.Data)
	}

	customerID := profile.Data.ID
	for _, number := range []string{"tr_a", "tr_b"} {
		if _, err := f.container.OrderRepo.Insert(&models.Order{
			OrderNumber: number,
			CustomerID:  &customerID,
			Total:       models.MustMoney("12"),
			Currency:    "EUR",
			Status:      "paid",
		}); err != nil {
			t.Fatalf("insert order failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	w = f.do(t, http.MethodGet, "/api/account/orders?page=1&page_size=10", "", auth)
	var orders struct {
		StatusCode int            `json:"status_code"`
		Data       []models.Order `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &orders); err != nil {
		t.Fatalf("unmarshal orders failed: %v", err)
	}
	if orders.Pagination.Total != 2 || len(orders.Data) != 2 || orders.Data[0].OrderNumber != "tr_b" {
		t.Fatalf("orders should be newest first: %s", w.Body.String())
	}
}

func TestListProducts(t *testing.T) {
	f := newRouterFixture(t, nil)
	ctx := context.Background()
	for _, p := range []models.Product{
		{Name: "Bolo Red Velvet", Category: "bolos", Price: models.MustMoney("14")},
		{Name: "Cupcake", Category: "cupcakes", Price: models.MustMoney("3")},
	} {
		product := p
		if err := f.container.ProductService.Create(ctx, &product); err != nil {
			t.Fatalf("create product failed: %v", err)
		}
	}

	w := f.do(t, http.MethodGet, "/api/products?categoria=bolos", "", nil)
	var resp struct {
		Data []models.Product `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Name != "Bolo Red Velvet" {
		t.Fatalf("unexpected products: %s", w.Body.String())
	}
}

func TestGetProductNotFound(t *testing.T) {
	f := newRouterFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/products/nao-existe", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status_code":404`) {
		t.Fatalf("expected not found envelope, got %d %s", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t, nil)
	w := f.do(t, http.MethodGet, "/healthz", "", nil)
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected healthz body: %s", w.Body.String())
	}
}

func TestCartEventsStream(t *testing.T) {
	f := newRouterFixture(t, nil)
	server := httptest.NewServer(f.engine)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/cart/events", nil)
	req.Header.Set("X-Cart-Session", "sse-session")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream failed: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream failed: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && event != "":
				if event == "cart" {
					return data
				}
				event, data = "", ""
			}
		}
	}

	if first := readEvent(); !strings.Contains(first, `"items":[]`) {
		t.Fatalf("first event should be the empty cart, got %s", first)
	}

	addReq, _ := http.NewRequest(http.MethodPost, server.URL+"/api/cart/items", strings.NewReader(`{"produto_id":"p1","nome":"Bolo","preco":"10","quantidade":1}`))
	addReq.Header.Set("Content-Type", "application/json")
	addReq.Header.Set("X-Cart-Session", "sse-session")
	addResp, err := http.DefaultClient.Do(addReq)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	_ = addResp.Body.Close()

	if second := readEvent(); !strings.Contains(second, `"produto_id":"p1"`) {
		t.Fatalf("second event should carry the new item, got %s", second)
	}
}

func TestCheckoutProceedsWhenRateLimitStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	cache.UseClient(client, "rvtest")
	t.Cleanup(cache.Reset)

	f := newRouterFixture(t, func(cfg *config.Config) {
		cfg.Redis.Prefix = "rvtest"
		cfg.Checkout.RateLimit = config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 1}
	})
	mr.Close()

	body := `{"userId":"u1","items":[{"produto_id":"p1","nome":"Bolo","preco":"5","quantidade":1}]}`
	w := f.do(t, http.MethodPost, "/api/checkout", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("checkout should pass while redis is down, got %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" || resp.URL == "" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if f.gateway.creates != 1 {
		t.Fatalf("provider should be reached once, creates=%d", f.gateway.creates)
	}
}

func TestCheckoutRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache.UseClient(client, "rvtest")
	t.Cleanup(cache.Reset)

	f := newRouterFixture(t, func(cfg *config.Config) {
		cfg.Redis.Prefix = "rvtest"
		cfg.Checkout.RateLimit = config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 1}
	})
	body := `{"userId":"u1","items":[{"produto_id":"p1","nome":"Bolo","preco":"5","quantidade":1}]}`

	if w := f.do(t, http.MethodPost, "/api/checkout", body, nil); w.Code != http.StatusOK {
		t.Fatalf("first checkout should pass, got %d %s", w.Code, w.Body.String())
	}
	w := f.do(t, http.MethodPost, "/api/checkout", body, nil)
	if w.Code != http.StatusTooManyRequests || !strings.Contains(w.Body.String(), "RATE_LIMITED") {
		t.Fatalf("second checkout should be limited, got %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
	if f.gateway.creates != 1 {
		t.Fatalf("limited request must not reach the provider, creates=%d", f.gateway.creates)
	}
}
