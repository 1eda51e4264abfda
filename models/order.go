package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Order statuses. Only OrderStatusPlaced is produced by checkout.
const (
	OrderStatusPlaced = "placed"
)

// Order 订单模型
type Order struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Date           time.Time `gorm:"not null;index" json:"date"`
	Status         string    `gorm:"type:varchar(20);not null" json:"status"`
	TotalAmount    float64   `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	UserPhone      string    `gorm:"type:varchar(20)" json:"user_phone,omitempty"`
	Address        string    `gorm:"type:varchar(500);not null" json:"address"`
	BookList       string    `gorm:"type:text" json:"-"` // JSON array of book ids
	PaymentMethod  string    `gorm:"type:varchar(50);not null;default:card" json:"payment_method"`
	DeliveryMethod string    `gorm:"type:varchar(50);not null;default:courier" json:"delivery_method"`
	CustomerName   string    `gorm:"type:varchar(100);not null" json:"customer_name"`
	CashOnDelivery bool      `gorm:"default:false" json:"cash_on_delivery"`
	DeliveryDate   string    `gorm:"type:varchar(20);not null" json:"delivery_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrderItem 订单明细，cost 为下单时的价格快照
type OrderItem struct {
	ID        string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID   string  `gorm:"type:varchar(36);index;not null" json:"order_id"`
	BookID    string  `gorm:"type:varchar(36);index;not null" json:"book_id"`
	BookCount int     `gorm:"not null" json:"book_count"`
	Cost      float64 `gorm:"type:decimal(10,2);not null" json:"cost"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

func (OrderItem) TableName() string {
	return "order_items"
}

// BookIDs 解析 BookList
func (o *Order) BookIDs() []string {
	if o.BookList == "" {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(o.BookList), &ids); err != nil {
		return []string{}
	}
	return ids
}

// SetBookIDs 序列化书籍ID列表到 BookList
func (o *Order) SetBookIDs(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	o.BookList = string(data)
}

// BeforeCreate 创建前钩子
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = generateUUID()
	}
	return nil
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == "" {
		oi.ID = generateUUID()
	}
	return nil
}
