package services

import "errors"

// 业务错误，controller 通过 errors.Is 映射为响应码
var (
	ErrBookNotFound       = errors.New("book not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("user with this name already exists")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("login failed")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)
