package models

import (
	"time"

	"gorm.io/gorm"
)

// Review 书评，只追加不修改
type Review struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Review         string    `gorm:"type:varchar(200)" json:"review"`
	Rating         int       `gorm:"not null" json:"rating"`
	ParentReviewID *string   `gorm:"type:varchar(36)" json:"parent_review_id,omitempty"`
	UserID         string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	BookID         string    `gorm:"type:varchar(36);index;not null" json:"book_id"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Review) TableName() string {
	return "reviews"
}

// BeforeCreate 创建前钩子
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
