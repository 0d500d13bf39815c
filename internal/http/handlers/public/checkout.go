package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/redvelvet-shop/internal/constants"
	handlershared "github.com/redvelvet-shop/internal/http/handlers/shared"
	"github.com/redvelvet-shop/internal/models"
	"github.com/redvelvet-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 结账请求，字段名与店铺前端一致
type CheckoutRequest struct {
	UserID string            `json:"userId"`
	Items  []models.LineItem `json:"items"`
}

// Checkout 创建 Mollie 支付并返回收银台地址
// 响应为裸 JSON：成功 {id,url}，失败 {error:<code>}
func (h *Handler) Checkout(c *gin.Context) {
	log := requestLog(c)
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnw("checkout_body_invalid", "error", err)
		respondCheckoutError(c, http.StatusBadRequest, constants.CheckoutErrorInvalidItem)
		return
	}

	// 已认证时以令牌主体为准
	userID := strings.TrimSpace(req.UserID)
	if tokenUserID := handlershared.OptionalUserID(c); tokenUserID != "" {
		userID = tokenUserID
	}

	result, err := h.CheckoutService.CreateSession(c.Request.Context(), service.CheckoutInput{
		UserID: userID,
		Items:  req.Items,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoItems):
			respondCheckoutError(c, http.StatusBadRequest, constants.CheckoutErrorNoItems)
		case errors.Is(err, service.ErrInvalidCheckoutItem):
			log.Warnw("checkout_item_invalid", "error", err)
			respondCheckoutError(c, http.StatusBadRequest, constants.CheckoutErrorInvalidItem)
		case errors.Is(err, service.ErrMissingCheckoutURL):
			respondCheckoutError(c, http.StatusInternalServerError, constants.CheckoutErrorMissingCheckout)
		default:
			log.Errorw("checkout_failed", "user_id", userID, "error", err)
			respondCheckoutError(c, http.StatusInternalServerError, constants.CheckoutErrorServer)
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func respondCheckoutError(c *gin.Context, status int, code string) {
	c.JSON(status, gin.H{"error": code})
}
