package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/payment/mollie"
	"github.com/redvelvet-shop/internal/queue"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return db
}

// fakeGateway 记录调用的支付渠道替身
type fakeGateway struct {
	mu           sync.Mutex
	createCalls  int
	lastCreate   mollie.CreateInput
	createResult *mollie.CreateResult
	createErr    error
	payments     map[string]*mollie.Payment
	getErr       error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		createResult: &mollie.CreateResult{ID: "tr_new", Status: "open", CheckoutURL: "https://pay.example/tr_new"},
		payments:     make(map[string]*mollie.Payment),
	}
}

func (g *fakeGateway) CreatePayment(_ context.Context, input mollie.CreateInput) (*mollie.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	g.lastCreate = input
	if g.createErr != nil {
		return nil, g.createErr
	}
	result := *g.createResult
	return &result, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, paymentID string) (*mollie.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	payment, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: get payment status 404", mollie.ErrResponseInvalid)
	}
	copied := *payment
	return &copied, nil
}

func (g *fakeGateway) addPayment(t *testing.T, id, status, amount string, metadata interface{}) {
	t.Helper()
	raw, err := json.Marshal(metadata)
	if err != nil {
		t.Fatalf("marshal metadata failed: %v", err)
	}
	paidAt := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[id] = &mollie.Payment{
		ID:       id,
		Status:   status,
		Amount:   amount,
		Currency: "EUR",
		Metadata: raw,
		PaidAt:   &paidAt,
	}
}

// recordingTasks 记录投递的补偿任务
type recordingTasks struct {
	mu         sync.Mutex
	reconciles []queue.PaymentReconcilePayload
	cartClears []queue.CartClearPayload
}

func (r *recordingTasks) EnqueuePaymentReconcile(payload queue.PaymentReconcilePayload, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciles = append(r.reconciles, payload)
	return nil
}

func (r *recordingTasks) EnqueueCartClear(payload queue.CartClearPayload, _ ...asynq.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cartClears = append(r.cartClears, payload)
	return nil
}

var errStoreDown = errors.New("store unavailable")

// failingCartRepository 所有操作都失败的购物车仓库
type failingCartRepository struct{}

func (failingCartRepository) Load(context.Context) ([]CartLine, error) { return nil, errStoreDown }
func (failingCartRepository) Add(context.Context, CartLine) (CartLine, error) {
	return CartLine{}, errStoreDown
}
func (failingCartRepository) SetQuantity(context.Context, string, int) error { return errStoreDown }
func (failingCartRepository) Remove(context.Context, string) error           { return errStoreDown }
func (failingCartRepository) Clear(context.Context) error                    { return errStoreDown }
func (failingCartRepository) Subscribe(context.Context, func()) (func(), error) {
	return nil, errStoreDown
}
func (failingCartRepository) Owner() string { return "guest:failing" }

// staticCartRepository Load 返回固定内容
type staticCartRepository struct {
	failingCartRepository
	lines []CartLine
}

func (r staticCartRepository) Load(context.Context) ([]CartLine, error) { return r.lines, nil }
