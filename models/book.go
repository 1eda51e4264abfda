package models

import (
	"gorm.io/gorm"
)

// Book 目录中的书籍
type Book struct {
	ID          string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string   `gorm:"type:varchar(200);not null;index:idx_books_title_author" json:"title"`
	Author      string   `gorm:"type:varchar(100);not null;index:idx_books_title_author" json:"author"`
	Price       float64  `gorm:"type:decimal(10,2);not null" json:"price"`
	Genre       string   `gorm:"type:varchar(50);not null" json:"genre"`
	Cover       string   `gorm:"type:varchar(255);not null" json:"cover"`
	Description string   `gorm:"type:text;not null" json:"description"`
	Rating      *float64 `json:"rating"` // nil until the first review
	RatingCount int      `gorm:"not null;default:0" json:"rating_count"`
	Year        int      `gorm:"not null" json:"year"`
	Category    string   `gorm:"type:varchar(50);not null;index" json:"category"`
	Subcategory string   `gorm:"type:varchar(50);not null;index" json:"subcategory"`
}

// TableName 指定表名
func (Book) TableName() string {
	return "books"
}

// BeforeCreate 创建前钩子
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}
