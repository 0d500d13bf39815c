package public

import "github.com/redvelvet-shop/internal/provider"

// Handler 店铺前台接口处理器入口
// 说明：购物车、结账、支付回调与顾客账户接口。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
