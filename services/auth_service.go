package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore_go/config"
	"bookstore_go/middleware"
	"bookstore_go/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	userEventsStream = "user_events"
	blacklistPrefix  = "token:blacklist:"
	loginFailPrefix  = "login:failures:"
)

// AuthConfig 认证配置
type AuthConfig struct {
	MaxLoginAttempts   int           // 最大连续登录失败次数
	LoginBlockDuration time.Duration // 超限后的锁定时长
}

// AuthService 注册、登录、注销
type AuthService struct {
	db         *gorm.DB
	rdb        *redis.Client
	jwtService *config.JWTService
	authConfig *AuthConfig
}

// RegisterRequest 注册表单
type RegisterRequest struct {
	Username        string `form:"username" json:"username" binding:"required,min=4,max=100"`
	Phone           string `form:"user_phone" json:"user_phone" binding:"required,phone"`
	Email           string `form:"email" json:"email" binding:"required,email"`
	Password        string `form:"password" json:"password" binding:"required,min=8,max=36"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" binding:"required,eqfield=Password"`
}

// LoginRequest 登录表单
type LoginRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required,min=8,max=36"`
}

// NewAuthService 创建认证服务，rdb 为 nil 时不支持注销黑名单与失败计数
func NewAuthService(db *gorm.DB, rdb *redis.Client, jwtService *config.JWTService) *AuthService {
	if jwtService == nil {
		jwtService = config.GetJWTService()
	}
	return &AuthService{
		db:         db,
		rdb:        rdb,
		jwtService: jwtService,
		authConfig: &AuthConfig{
			MaxLoginAttempts:   config.GetEnvInt("MAX_LOGIN_ATTEMPTS", 5),
			LoginBlockDuration: 15 * time.Minute,
		},
	}
}

// Register 用户注册
func (as *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	db := as.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
	}
	if err := db.Create(&user).Error; err != nil {
		// 并发注册撞上唯一索引
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	middleware.InfoLogger("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))

	go recordEvent(as.rdb, userEventsStream, map[string]interface{}{
		"event":    "register",
		"user_id":  user.ID,
		"username": user.Username,
	})

	return &user, nil
}

// Login 校验邮箱与密码并签发令牌，任何失败都返回 ErrInvalidCredentials
func (as *AuthService) Login(ctx context.Context, req *LoginRequest) (*models.User, string, error) {
	failKey := loginFailPrefix + req.Email

	if as.rdb != nil {
		attempts, _ := as.rdb.Get(ctx, failKey).Int()
		if attempts >= as.authConfig.MaxLoginAttempts {
			return nil, "", ErrTooManyAttempts
		}
	}

	var user models.User
	err := as.db.WithContext(ctx).Where("email = ?", req.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		as.recordLoginFailure(ctx, failKey)
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		as.recordLoginFailure(ctx, failKey)
		return nil, "", ErrInvalidCredentials
	}

	if as.rdb != nil {
		as.rdb.Del(ctx, failKey)
	}

	token, err := as.jwtService.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	go recordEvent(as.rdb, userEventsStream, map[string]interface{}{
		"event":   "login",
		"user_id": user.ID,
	})

	return &user, token, nil
}

// recordLoginFailure 失败计数，窗口与锁定时长一致
func (as *AuthService) recordLoginFailure(ctx context.Context, key string) {
	if as.rdb == nil {
		return
	}
	pipe := as.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, as.authConfig.LoginBlockDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.DebugLogger("login failure counter write failed", zap.Error(err))
	}
}

// Logout 把令牌加入黑名单直到其过期
func (as *AuthService) Logout(ctx context.Context, token string) error {
	if as.rdb == nil || token == "" {
		return nil
	}

	claims, err := as.jwtService.ValidateToken(token)
	if err != nil {
		// 已失效的令牌无需拉黑
		return nil
	}

	expiration := time.Until(claims.ExpiresAt.Time)
	if expiration <= 0 {
		return nil
	}
	if err := as.rdb.Set(ctx, blacklistPrefix+token, "1", expiration).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	go recordEvent(as.rdb, userEventsStream, map[string]interface{}{
		"event":   "logout",
		"user_id": claims.UserID,
	})
	return nil
}

// IsRevoked 令牌是否已注销
func (as *AuthService) IsRevoked(ctx context.Context, token string) bool {
	if as.rdb == nil {
		return false
	}
	exists, err := as.rdb.Exists(ctx, blacklistPrefix+token).Result()
	return err == nil && exists > 0
}

// Profile 当前用户资料
func (as *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := as.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
