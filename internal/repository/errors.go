package repository

import "errors"

var (
	// ErrInvalidCartItem 购物车项参数非法
	ErrInvalidCartItem = errors.New("invalid cart item")
	// ErrInvalidOrder 订单参数非法
	ErrInvalidOrder = errors.New("invalid order")
)
