package middleware

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"bookstore_go/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	accessLogStream     = "access_logs"
	accessLogStreamSize = 100000
	accessLogWorkers    = 3
)

var (
	logger           = zap.NewNop()
	accessLogChannel chan *AccessLog
	accessLogWg      sync.WaitGroup
)

// AccessLog 访问日志结构
type AccessLog struct {
	Time       time.Time `json:"time"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query,omitempty"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent,omitempty"`
	StatusCode int       `json:"status_code"`
	Latency    int64     `json:"latency_ms"`
	UserID     string    `json:"user_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// InitLogger 初始化日志系统
func InitLogger(mode string) error {
	var zapConfig zap.Config

	if mode == gin.DebugMode || mode == "" {
		// 开发环境 - 控制台输出
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		// 生产环境 - JSON格式
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := zapConfig.Build()
	if err != nil {
		return err
	}
	logger = built

	// 启动日志处理worker池
	accessLogChannel = make(chan *AccessLog, 1000)
	for i := 0; i < accessLogWorkers; i++ {
		accessLogWg.Add(1)
		go func() {
			defer accessLogWg.Done()
			for accessLog := range accessLogChannel {
				accessLog.process()
			}
		}()
	}

	return nil
}

// process 写结构化日志，并在启用Redis时写入日志Stream
func (al *AccessLog) process() {
	logger.Info("access_log",
		zap.Time("time", al.Time),
		zap.String("method", al.Method),
		zap.String("path", al.Path),
		zap.String("query", al.Query),
		zap.String("ip", al.IP),
		zap.String("user_agent", al.UserAgent),
		zap.Int("status_code", al.StatusCode),
		zap.Int64("latency_ms", al.Latency),
		zap.String("user_id", al.UserID),
		zap.String("request_id", al.RequestID),
		zap.String("error", al.Error),
	)

	if config.RedisClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	logData, _ := json.Marshal(al)
	err := config.RedisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: accessLogStream,
		MaxLen: accessLogStreamSize,
		Approx: true,
		Values: map[string]interface{}{
			"timestamp":   al.Time.Unix(),
			"method":      al.Method,
			"path":        al.Path,
			"status_code": al.StatusCode,
			"latency_ms":  al.Latency,
			"ip":          al.IP,
			"user_id":     al.UserID,
			"full_data":   string(logData),
		},
	}).Err()
	if err != nil {
		logger.Debug("access log stream write failed", zap.Error(err))
	}
}

// Logger 返回访问日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		accessLog := &AccessLog{
			Time:       start,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Query:      c.Request.URL.RawQuery,
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			StatusCode: c.Writer.Status(),
			Latency:    time.Since(start).Milliseconds(),
			UserID:     c.GetString(ContextUserID),
			RequestID:  requestID,
		}
		if len(c.Errors) > 0 {
			accessLog.Error = c.Errors.String()
		}

		if accessLogChannel == nil {
			return
		}

		// 队列满时丢弃，保证请求不被阻塞
		select {
		case accessLogChannel <- accessLog:
		default:
			log.Printf("Log channel is full, dropping log: %s %s", accessLog.Method, accessLog.Path)
		}
	}
}

// Log 返回全局zap logger，未初始化时为Nop
func Log() *zap.Logger {
	return logger
}

// ErrorLogger 错误日志记录
func ErrorLogger(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

// InfoLogger 信息日志记录
func InfoLogger(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

// DebugLogger 调试日志记录
func DebugLogger(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

// FlushLogger 停止access log worker并刷新日志缓冲区
func FlushLogger() {
	if accessLogChannel != nil {
		close(accessLogChannel)
		accessLogWg.Wait()
		accessLogChannel = nil
	}
	_ = logger.Sync()
}
