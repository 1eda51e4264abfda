package controllers

import (
	"net/http"
	"time"

	"bookstore_go/config"
	"bookstore_go/middleware"
	"bookstore_go/services"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	loginRateLimit  = 10
	loginRateWindow = 15 * time.Minute
)

// AuthController 认证控制器
type AuthController struct {
	authService *services.AuthService
	jwtService  *config.JWTService
	rdb         *redis.Client
}

// NewAuthController 创建认证控制器实例
func NewAuthController(authService *services.AuthService, jwtService *config.JWTService, rdb *redis.Client) *AuthController {
	return &AuthController{authService: authService, jwtService: jwtService, rdb: rdb}
}

// formField 表单字段描述
type formField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Rules    string `json:"rules,omitempty"`
}

var registerFields = []formField{
	{Name: "username", Type: "text", Required: true, Rules: "4-100 characters"},
	{Name: "user_phone", Type: "tel", Required: true, Rules: "international format, e.g. +15550001111"},
	{Name: "email", Type: "email", Required: true},
	{Name: "password", Type: "password", Required: true, Rules: "8-36 characters"},
	{Name: "confirm_password", Type: "password", Required: true, Rules: "must match password"},
}

var loginFields = []formField{
	{Name: "email", Type: "email", Required: true},
	{Name: "password", Type: "password", Required: true, Rules: "8-36 characters"},
}

// RegisterForm 注册表单描述
func (ac *AuthController) RegisterForm(c *gin.Context) {
	utils.Success(c, gin.H{"action": "/register", "fields": registerFields})
}

// Register 用户注册
// @Summary 用户注册
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Success 201 {object} utils.Response
// @Router /register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ValidationError(c, err)
		return
	}

	user, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Created(c, "Registration successful", gin.H{
		"user":     user,
		"redirect": "/login",
	})
}

// LoginForm 登录表单描述
func (ac *AuthController) LoginForm(c *gin.Context) {
	utils.Success(c, gin.H{"action": "/login", "fields": loginFields})
}

// Login 用户登录，成功后写入会话cookie
// @Summary 用户登录
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Success 200 {object} utils.Response
// @Router /login [post]
func (ac *AuthController) Login(c *gin.Context) {
	if !utils.RateLimit(c.Request.Context(), ac.rdb, "login:"+c.ClientIP(), loginRateLimit, loginRateWindow) {
		utils.Error(c, utils.CodeTooManyRequests, "")
		return
	}

	var req services.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		// 不提示具体字段，与密码错误一致
		utils.ErrorWithData(c, utils.CodeUnauthorized, "Login failed", gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}

	user, token, err := ac.authService.Login(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(ac.jwtService.Expiration().Seconds()), "/", "", false, true)

	utils.SuccessWithMessage(c, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout 注销当前会话并清除cookie
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.authService.Logout(c.Request.Context(), middleware.ExtractToken(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	utils.SuccessWithMessage(c, "Logged out", gin.H{"redirect": "/"})
}
