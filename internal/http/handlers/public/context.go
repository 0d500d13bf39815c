package public

import (
	"strings"

	handlershared "github.com/redvelvet-shop/internal/http/handlers/shared"
	"github.com/redvelvet-shop/internal/http/response"
	"github.com/redvelvet-shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCartSessionHeader = "X-Cart-Session"

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func (h *Handler) cartSessionHeader() string {
	if h.Config != nil {
		if header := strings.TrimSpace(h.Config.Cart.SessionHeader); header != "" {
			return header
		}
	}
	return defaultCartSessionHeader
}

// cartSessionID 读取游客会话 ID，缺失时生成新的并回写到响应头
func (h *Handler) cartSessionID(c *gin.Context) string {
	header := h.cartSessionHeader()
	sessionID := strings.TrimSpace(c.GetHeader(header))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.Header(header, sessionID)
	return sessionID
}

// resolveCartStore 已登录使用会员购物车，否则使用游客购物车，并完成首次加载
func (h *Handler) resolveCartStore(c *gin.Context) (*service.CartStore, bool) {
	ctx := c.Request.Context()
	var (
		store *service.CartStore
		err   error
	)
	if userID := handlershared.OptionalUserID(c); userID != "" {
		customer, ensureErr := h.CustomerService.EnsureCustomer(ctx, userID, handlershared.UserEmail(c))
		if ensureErr != nil {
			respondError(c, response.CodeInternal, "erro ao carregar cliente", ensureErr)
			return nil, false
		}
		store, err = h.CartService.CustomerStore(customer.ID)
	} else {
		store, err = h.CartService.GuestStore(h.cartSessionID(c))
	}
	if err != nil {
		respondMappedError(c, err)
		return nil, false
	}
	if err := store.Load(ctx); err != nil {
		respondError(c, response.CodeInternal, "erro ao carregar carrinho", err)
		return nil, false
	}
	return store, true
}
