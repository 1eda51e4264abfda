package middleware

import (
	"time"

	"bookstore_go/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig CORS配置
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// GetDefaultCORSConfig 获取默认CORS配置，来源可由 CORS_ORIGINS 覆盖
func GetDefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowOrigins: config.GetEnvList("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Request-ID"},
		AllowCredentials: true, // session cookie
		MaxAge:           12 * time.Hour,
	}
}

// CORS 返回CORS中间件
func CORS(cfgs ...*CORSConfig) gin.HandlerFunc {
	cfg := GetDefaultCORSConfig()
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	}

	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
