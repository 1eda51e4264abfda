// Package seed 导入内置书目数据
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"bookstore_go/middleware"
	"bookstore_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed books.json
var bundledBooks []byte

// BookRecord 数据文件中的一条书目
type BookRecord struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Price       float64  `json:"price"`
	Genre       string   `json:"genre"`
	Cover       string   `json:"cover"`
	Description string   `json:"description"`
	Rating      *float64 `json:"rating"`
	RatingCount *int     `json:"rating_count"`
	Year        int      `json:"year"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
}

func (r *BookRecord) toModel() *models.Book {
	book := &models.Book{
		Title:       r.Title,
		Author:      r.Author,
		Price:       r.Price,
		Genre:       r.Genre,
		Cover:       r.Cover,
		Description: r.Description,
		Rating:      r.Rating,
		Year:        r.Year,
		Category:    r.Category,
		Subcategory: r.Subcategory,
	}

	switch {
	case r.RatingCount != nil:
		book.RatingCount = *r.RatingCount
	case r.Rating != nil:
		// 只有评分没有人数时按一次评分计
		book.RatingCount = 1
	}
	return book
}

// Books 导入 r 中的书目，(title, author) 已存在的跳过；返回新增数量
func Books(ctx context.Context, db *gorm.DB, r io.Reader) (int, error) {
	var records []BookRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("failed to decode seed data: %w", err)
	}

	inserted := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			rec := &records[i]
			if rec.Title == "" || rec.Author == "" {
				return fmt.Errorf("seed record %d: title and author are required", i)
			}

			var count int64
			if err := tx.Model(&models.Book{}).
				Where("title = ? AND author = ?", rec.Title, rec.Author).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check book %q: %w", rec.Title, err)
			}
			if count > 0 {
				continue
			}

			if err := tx.Create(rec.toModel()).Error; err != nil {
				return fmt.Errorf("failed to insert book %q: %w", rec.Title, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	middleware.InfoLogger("books seeded", zap.Int("inserted", inserted), zap.Int("records", len(records)))
	return inserted, nil
}

// Default 导入内置数据集
func Default(ctx context.Context, db *gorm.DB) (int, error) {
	return Books(ctx, db, bytes.NewReader(bundledBooks))
}
