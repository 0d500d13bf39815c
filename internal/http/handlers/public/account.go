package public

import (
	handlershared "github.com/redvelvet-shop/internal/http/handlers/shared"
	"github.com/redvelvet-shop/internal/http/response"
	"github.com/redvelvet-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileRequest 顾客资料请求
type ProfileRequest struct {
	Name    string `json:"nome"`
	Email   string `json:"email"`
	Phone   string `json:"telefone"`
	Address string `json:"morada"`
}

// GetProfile 获取顾客资料，不存在时按令牌主体创建
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := handlershared.RequireUserID(c)
	if !ok {
		return
	}
	customer, err := h.CustomerService.EnsureCustomer(c.Request.Context(), userID, handlershared.UserEmail(c))
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, customer)
}

// UpdateProfile 更新顾客资料
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := handlershared.RequireUserID(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "pedido inválido", nil)
		return
	}
	customer, err := h.CustomerService.UpdateProfile(c.Request.Context(), userID, service.ProfileInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.Success(c, customer)
}

// ListOrders 顾客订单列表，最新在前
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := handlershared.RequireUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	customer, err := h.CustomerService.ResolveByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, response.CodeInternal, "erro ao carregar cliente", err)
		return
	}
	if customer == nil {
		response.SuccessWithPage(c, []interface{}{}, handlershared.BuildPagination(page, pageSize, 0))
		return
	}
	result, err := h.OrderService.ListByCustomer(customer.ID, page, pageSize)
	if err != nil {
		respondMappedError(c, err)
		return
	}
	response.SuccessWithPage(c, result.Items, handlershared.BuildPagination(result.Page, result.PageSize, result.Total))
}
