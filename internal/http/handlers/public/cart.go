package public

import (
	"io"
	"time"

	handlershared "github.com/redvelvet-shop/internal/http/handlers/shared"
	"github.com/redvelvet-shop/internal/http/response"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/service"

	"github.com/gin-gonic/gin"
)

const cartEventsHeartbeat = 25 * time.Second

// CartItemRequest 购物车项请求
type CartItemRequest struct {
	ProductID string       `json:"produto_id" binding:"required"`
	Name      string       `json:"nome"`
	UnitPrice models.Money `json:"preco"`
	Quantity  int          `json:"quantidade"`
	Size      string       `json:"tamanho"`
	ImageURL  string       `json:"imagem_url"`
}

// CartQuantityRequest 数量更新请求
type CartQuantityRequest struct {
	Quantity *int `json:"quantidade" binding:"required"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	store, ok := h.resolveCartStore(c)
	if !ok {
		return
	}
	response.Success(c, store.Snapshot())
}

// AddCartItem 加入购物车，同一商品与尺码累加数量
func (h *Handler) AddCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "pedido inválido", nil)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	store, ok := h.resolveCartStore(c)
	if !ok {
		return
	}
	err := store.AddItem(c.Request.Context(), service.CartLine{
		ProductID: req.ProductID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
		Size:      req.Size,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// UpdateCartItem 设置数量，小于等于 0 时删除
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "pedido inválido", nil)
		return
	}
	store, ok := h.resolveCartStore(c)
	if !ok {
		return
	}
	if err := store.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// RemoveCartItem 删除购物车项
func (h *Handler) RemoveCartItem(c *gin.Context) {
	store, ok := h.resolveCartStore(c)
	if !ok {
		return
	}
	if err := store.RemoveItem(c.Request.Context(), c.Param("id")); err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	store, ok := h.resolveCartStore(c)
	if !ok {
		return
	}
	if err := store.Clear(c.Request.Context()); err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// MergeCart 登录后将游客购物车合并到会员购物车
func (h *Handler) MergeCart(c *gin.Context) {
	userID, ok := handlershared.RequireUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	customer, err := h.CustomerService.EnsureCustomer(ctx, userID, handlershared.UserEmail(c))
	if err != nil {
		respondError(c, response.CodeInternal, "erro ao carregar cliente", err)
		return
	}
	store, merged, err := h.CartService.Merge(ctx, h.cartSessionID(c), customer.ID)
	if err != nil {
		requestLog(c).Warnw("cart_merge_failed", "customer_id", customer.ID, "merged", merged, "error", err)
		respondMappedError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// CartEvents 以 SSE 推送购物车快照，连接建立后先推送一次当前状态
func (h *Handler) CartEvents(c *gin.Context) {
	store, ok := h.resolveCartStore(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	updates := make(chan service.CartSnapshot, 1)
	cancel, err := store.Subscribe(ctx, func(snapshot service.CartSnapshot) {
		// 只保留最新快照
		for {
			select {
			case updates <- snapshot:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		respondError(c, response.CodeInternal, "erro ao subscrever carrinho", err)
		return
	}
	defer cancel()

	log := requestLog(c).With("owner", store.Owner())
	log.Infow("cart_events_connected")
	defer log.Infow("cart_events_disconnected")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("cart", store.Snapshot())
	c.Writer.Flush()

	heartbeat := time.NewTicker(cartEventsHeartbeat)
	defer heartbeat.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snapshot := <-updates:
			c.SSEvent("cart", snapshot)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
