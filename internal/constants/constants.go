package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// 支付方式常量
const (
	PaymentMethodMollie = "mollie"
)

// 购物车归属类型
const (
	CartOwnerGuest    = "guest"
	CartOwnerCustomer = "customer"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskPaymentReconcile = "payment:reconcile"
	TaskCartClear        = "cart:clear"
)

// 结账接口错误码（与前端约定）
const (
	CheckoutErrorNoItems         = "SEM_ITENS"
	CheckoutErrorInvalidItem     = "ITEM_INVALIDO"
	CheckoutErrorMissingCheckout = "SEM_URL_CHECKOUT"
	CheckoutErrorServer          = "SERVER_ERROR"
)
