package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookstore_go/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	topSellersCacheKey = "hot:top_sellers"
	topSellersCacheTTL = 10 * time.Minute

	// 首页默认：近7天销量前3
	DefaultTopSellerDays  = 7
	DefaultTopSellerLimit = 3
)

// CatalogService 书目查询服务
type CatalogService struct {
	db  *gorm.DB
	rdb *redis.Client
}

// TopSeller 书籍及统计窗口内的销量
type TopSeller struct {
	models.Book `gorm:"embedded"`
	TotalSold   int64 `json:"total_sold"`
}

// NewCatalogService 创建书目服务，rdb 可为 nil
func NewCatalogService(db *gorm.DB, rdb *redis.Client) *CatalogService {
	return &CatalogService{db: db, rdb: rdb}
}

// ListBooks 按分类筛选；category 优先，其次 subcategory，都为空返回全部
func (cs *CatalogService) ListBooks(ctx context.Context, category, subcategory string) ([]models.Book, error) {
	query := cs.db.WithContext(ctx).Model(&models.Book{})

	switch {
	case category != "":
		query = query.Where("category = ?", category)
	case subcategory != "":
		query = query.Where("subcategory = ?", subcategory)
	}

	books := make([]models.Book, 0)
	if err := query.Order("title").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// GetBook 获取单本书
func (cs *CatalogService) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	var book models.Book
	err := cs.db.WithContext(ctx).Where("id = ?", bookID).Take(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// GetBooksByIDs 按ID列表查询，未知ID被忽略
func (cs *CatalogService) GetBooksByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	books := make([]models.Book, 0, len(ids))
	if len(ids) == 0 {
		return books, nil
	}
	if err := cs.db.WithContext(ctx).Where("id IN ?", ids).Order("title").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to get books: %w", err)
	}
	return books, nil
}

// TopSellers 最近 days 天内订单中销量最高的 limit 本书
func (cs *CatalogService) TopSellers(ctx context.Context, days, limit int) ([]TopSeller, error) {
	field := fmt.Sprintf("%d:%d", days, limit)

	if cs.rdb != nil {
		cached, err := cs.rdb.HGet(ctx, topSellersCacheKey, field).Result()
		if err == nil {
			var sellers []TopSeller
			if json.Unmarshal([]byte(cached), &sellers) == nil {
				return sellers, nil
			}
		}
	}

	since := startOfDay(time.Now()).AddDate(0, 0, -days)

	sellers := make([]TopSeller, 0, limit)
	err := cs.db.WithContext(ctx).
		Table("books").
		Select("books.*, SUM(order_items.book_count) AS total_sold").
		Joins("JOIN order_items ON order_items.book_id = books.id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.date >= ?", since).
		Group("books.id").
		Order("total_sold DESC").
		Order("books.title").
		Limit(limit).
		Scan(&sellers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top sellers: %w", err)
	}

	if cs.rdb != nil {
		if data, err := json.Marshal(sellers); err == nil {
			pipe := cs.rdb.TxPipeline()
			pipe.HSet(ctx, topSellersCacheKey, field, data)
			pipe.Expire(ctx, topSellersCacheKey, topSellersCacheTTL)
			_, _ = pipe.Exec(ctx)
		}
	}

	return sellers, nil
}

// InvalidateTopSellers 删除销量榜缓存
func (cs *CatalogService) InvalidateTopSellers(ctx context.Context) {
	if cs.rdb != nil {
		cs.rdb.Del(ctx, topSellersCacheKey)
	}
}
