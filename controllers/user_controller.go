package controllers

import (
	"bookstore_go/middleware"
	"bookstore_go/services"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
)

// UserController 用户控制器
type UserController struct {
	authService *services.AuthService
}

// NewUserController 创建用户控制器实例
func NewUserController(authService *services.AuthService) *UserController {
	return &UserController{authService: authService}
}

// Profile 当前用户资料
// @Summary 当前用户资料
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Router /me [get]
func (uc *UserController) Profile(c *gin.Context) {
	user, err := uc.authService.Profile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, user)
}
