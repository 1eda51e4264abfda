package controllers

import (
	"errors"

	"bookstore_go/middleware"
	"bookstore_go/services"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError 把业务错误映射为统一响应，未知错误记日志并返回500
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrCartItemNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrUserNotFound):
		utils.NotFound(c, err.Error())

	case errors.Is(err, services.ErrEmptyCart):
		utils.ErrorWithData(c, utils.CodeConflict, "Your cart is empty", gin.H{"redirect": "/cart"})

	case errors.Is(err, services.ErrUsernameTaken):
		utils.ErrorWithData(c, utils.CodeConflict, err.Error(), gin.H{"errors": gin.H{"username": err.Error()}})
	case errors.Is(err, services.ErrEmailTaken):
		utils.ErrorWithData(c, utils.CodeConflict, err.Error(), gin.H{"errors": gin.H{"email": err.Error()}})
	case errors.Is(err, services.ErrAccountExists):
		utils.Error(c, utils.CodeConflict, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Unauthorized(c, "Login failed")
	case errors.Is(err, services.ErrTooManyAttempts):
		utils.Error(c, utils.CodeTooManyRequests, "")

	default:
		middleware.ErrorLogger("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("user_id", middleware.CurrentUserID(c)),
			zap.Error(err),
		)
		utils.InternalError(c, "")
	}
}

// BookForm 只携带 book_id 的表单
type BookForm struct {
	BookID string `form:"book_id" json:"book_id" binding:"required"`
}
