package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookstore_go/middleware"
	"bookstore_go/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 通知事件类型
const (
	EventOrderPlaced = "order_placed"
	EventCartUpdated = "cart_updated"
)

// Notifier 向在线用户推送事件
type Notifier interface {
	Notify(userID, event string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, interface{}) {}

// bookColumns 与 models.Book 的列一致，用于显式 join 查询
var bookColumns = []string{
	"id", "title", "author", "price", "genre", "cover", "description",
	"rating", "rating_count", "year", "category", "subcategory",
}

// selectBookColumns 生成 books.<col> AS <prefix><col>
func selectBookColumns(prefix string) string {
	parts := make([]string, len(bookColumns))
	for i, col := range bookColumns {
		parts[i] = fmt.Sprintf("books.%s AS %s%s", col, prefix, col)
	}
	return strings.Join(parts, ", ")
}

// ensureBook 确认书籍存在
func ensureBook(tx *gorm.DB, bookID string) error {
	var book models.Book
	err := tx.Select("id").Where("id = ?", bookID).Take(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrBookNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load book: %w", err)
	}
	return nil
}

// lineCost 单行金额 = 单价 × 数量
func lineCost(price float64, count int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(count)))
}

// toAmount 四舍五入到分
func toAmount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// startOfDay 当天零点
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// recordEvent 写入Redis Stream，失败只记日志
func recordEvent(rdb *redis.Client, stream string, values map[string]interface{}) {
	if rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	values["timestamp"] = time.Now().Unix()
	if err := rdb.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		middleware.DebugLogger("event stream write failed", zap.String("stream", stream), zap.Error(err))
	}
}
