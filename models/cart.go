package models

import "time"

// CartItem 购物车行，(user_id, book_id) 唯一
type CartItem struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	BookID    string    `gorm:"type:varchar(36);primaryKey" json:"book_id"`
	Count     int       `gorm:"not null" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
