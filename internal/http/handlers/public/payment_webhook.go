package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/redvelvet-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// MollieWebhook Mollie 支付状态回调，表单字段 id 为支付单号
// 返回 5xx 时 Mollie 会重试
func (h *Handler) MollieWebhook(c *gin.Context) {
	log := requestLog(c)
	paymentID := strings.TrimSpace(c.PostForm("id"))
	log.Infow("mollie_webhook_received",
		"payment_id", paymentID,
		"client_ip", c.ClientIP(),
	)

	result, err := h.PaymentWebhookService.HandleWebhook(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, service.ErrMissingPaymentID) {
			log.Warnw("mollie_webhook_missing_id")
			c.JSON(http.StatusBadRequest, gin.H{"ok": false})
			return
		}
		log.Errorw("mollie_webhook_handle_failed", "payment_id", paymentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}
	log.Infow("mollie_webhook_handled",
		"payment_id", result.PaymentID,
		"status", result.Status,
		"order_created", result.OrderCreated,
		"duplicate", result.Duplicate,
		"cart_cleared", result.CartCleared,
	)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
