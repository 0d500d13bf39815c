package service

import "errors"

var (
	ErrNoItems             = errors.New("checkout has no items")
	ErrInvalidCheckoutItem = errors.New("invalid checkout item")
	ErrMissingCheckoutURL  = errors.New("payment has no checkout url")
	ErrPaymentProvider     = errors.New("payment provider error")
	ErrMissingPaymentID    = errors.New("payment id is required")
	ErrOrderPersist        = errors.New("order persist failed")
	ErrInvalidCartItem     = errors.New("invalid cart item")
	ErrCartSessionRequired = errors.New("cart session is required")
	ErrCustomerRequired    = errors.New("customer is required")
	ErrInvalidMetadata     = errors.New("payment metadata invalid")
	ErrProfileInvalid      = errors.New("profile invalid")
)
