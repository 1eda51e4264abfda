package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Book{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Review{},
	}
}

// AutoMigrate 同步表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}

// generateUUID 主键ID
func generateUUID() string {
	return uuid.New().String()
}
