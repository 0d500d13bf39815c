package public

import (
	handlershared "github.com/redvelvet-shop/internal/http/handlers/shared"
	"github.com/redvelvet-shop/internal/http/response"
	"github.com/redvelvet-shop/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListProducts 商品列表，支持分类筛选与名称/编码搜索
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	result, err := h.ProductService.List(c.Request.Context(), repository.ProductListFilter{
		Category: c.Query("categoria"),
		Search:   c.Query("q"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "erro ao carregar produtos", err)
		return
	}
	response.SuccessWithPage(c, result.Items, handlershared.BuildPagination(result.Page, result.PageSize, result.Total))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.ProductService.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, response.CodeInternal, "erro ao carregar produto", err)
		return
	}
	if product == nil {
		response.NotFound(c, "produto não encontrado")
		return
	}
	response.Success(c, product)
}
