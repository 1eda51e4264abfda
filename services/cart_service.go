package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore_go/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartService 购物车服务，所有操作限定于当前用户
type CartService struct {
	db       *gorm.DB
	notifier Notifier
}

// CartLine 购物车行及书籍详情
type CartLine struct {
	Count int         `json:"count"`
	Book  models.Book `gorm:"embedded;embeddedPrefix:book_" json:"book"`
}

// Cost 行金额
func (l CartLine) Cost() float64 {
	return toAmount(lineCost(l.Book.Price, l.Count))
}

// Cart 购物车视图
type Cart struct {
	Items      []CartLine `json:"items"`
	TotalCount int        `json:"total_count"`
	TotalPrice float64    `json:"total_price"`
}

// NewCartService 创建购物车服务，notifier 可为 nil
func NewCartService(db *gorm.DB, notifier Notifier) *CartService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CartService{db: db, notifier: notifier}
}

// loadCartLines 读取用户购物车并 join 书籍
func loadCartLines(tx *gorm.DB, userID string) ([]CartLine, error) {
	lines := make([]CartLine, 0)
	err := tx.Table("cart_items").
		Select("cart_items.count AS count, "+selectBookColumns("book_")).
		Joins("JOIN books ON books.id = cart_items.book_id").
		Where("cart_items.user_id = ?", userID).
		Order("books.title").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return lines, nil
}

// cartTotal 按当前单价计算总价
func cartTotal(lines []CartLine) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, line := range lines {
		total = total.Add(lineCost(line.Book.Price, line.Count))
		count += line.Count
	}
	return total, count
}

// List 当前用户的购物车
func (cs *CartService) List(ctx context.Context, userID string) (*Cart, error) {
	lines, err := loadCartLines(cs.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	total, count := cartTotal(lines)
	return &Cart{Items: lines, TotalCount: count, TotalPrice: toAmount(total)}, nil
}

// Add 加入一本书：无记录则创建 count=1，否则 count+1
func (cs *CartService) Add(ctx context.Context, userID, bookID string) (*models.CartItem, error) {
	var item models.CartItem

	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureBook(tx, bookID); err != nil {
			return err
		}

		// 单条 upsert，并发的首次加入不会撞上主键
		row := models.CartItem{UserID: userID, BookID: bookID, Count: 1}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("cart_items.count + ?", 1),
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}

		return tx.Where("user_id = ? AND book_id = ?", userID, bookID).Take(&item).Error
	})
	if err != nil {
		return nil, err
	}

	cs.notifier.Notify(userID, EventCartUpdated, map[string]interface{}{"book_id": bookID, "count": item.Count})
	return &item, nil
}

// Decrease 数量减一，减到0时删除该行；返回剩余行，已删除时为 nil
func (cs *CartService) Decrease(ctx context.Context, userID, bookID string) (*models.CartItem, error) {
	var remaining *models.CartItem

	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		err := tx.Where("user_id = ? AND book_id = ?", userID, bookID).Take(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load cart item: %w", err)
		}

		if item.Count > 1 {
			if err := tx.Model(&item).Where("count > 1").Update("count", gorm.Expr("count - ?", 1)).Error; err != nil {
				return fmt.Errorf("failed to decrease cart item: %w", err)
			}
			item.Count--
			remaining = &item
			return nil
		}

		if err := tx.Delete(&item).Error; err != nil {
			return fmt.Errorf("failed to delete cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	count := 0
	if remaining != nil {
		count = remaining.Count
	}
	cs.notifier.Notify(userID, EventCartUpdated, map[string]interface{}{"book_id": bookID, "count": count})
	return remaining, nil
}

// Remove 删除整行，行不存在时返回 ErrCartItemNotFound
func (cs *CartService) Remove(ctx context.Context, userID, bookID string) error {
	res := cs.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCartItemNotFound
	}

	cs.notifier.Notify(userID, EventCartUpdated, map[string]interface{}{"book_id": bookID, "count": 0})
	return nil
}
