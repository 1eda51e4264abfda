package services

import (
	"context"
	"fmt"
	"time"

	"bookstore_go/models"

	"gorm.io/gorm"
)

// SubmitReviewRequest 评论表单
type SubmitReviewRequest struct {
	BookID     string `form:"book_id" json:"book_id" binding:"required"`
	Rating     int    `form:"rating" json:"rating" binding:"required,gte=1,lte=5"`
	ReviewText string `form:"review_text" json:"review_text" binding:"max=200"`
}

// ReviewView 评论及评论者用户名
type ReviewView struct {
	ID        string    `json:"id"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	BookID    string    `json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewService 评论与评分聚合
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService 创建评论服务
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// ratingUpdateSQL 加权滑动平均，rating 在 rating_count 之前赋值
const ratingUpdateSQL = `UPDATE books SET
	rating = CASE WHEN rating IS NULL OR rating_count = 0 THEN ? ELSE (rating * rating_count + ?) / (rating_count + 1) END,
	rating_count = rating_count + 1
WHERE id = ?`

// SubmitReview 追加评论并更新书籍评分，返回更新后的书籍
func (rs *ReviewService) SubmitReview(ctx context.Context, userID string, req *SubmitReviewRequest) (*models.Book, error) {
	var book models.Book

	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureBook(tx, req.BookID); err != nil {
			return err
		}

		review := models.Review{
			Review: req.ReviewText,
			Rating: req.Rating,
			UserID: userID,
			BookID: req.BookID,
		}
		if err := tx.Create(&review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		r := float64(req.Rating)
		if err := tx.Exec(ratingUpdateSQL, r, r, req.BookID).Error; err != nil {
			return fmt.Errorf("failed to update rating: %w", err)
		}

		return tx.Where("id = ?", req.BookID).Take(&book).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListReviews 书籍评论，最新在前
func (rs *ReviewService) ListReviews(ctx context.Context, bookID string) ([]ReviewView, error) {
	db := rs.db.WithContext(ctx)
	if err := ensureBook(db, bookID); err != nil {
		return nil, err
	}

	reviews := make([]ReviewView, 0)
	err := db.Table("reviews").
		Select("reviews.id, reviews.review, reviews.rating, reviews.user_id, reviews.book_id, reviews.created_at, users.username").
		Joins("LEFT JOIN users ON users.id = reviews.user_id").
		Where("reviews.book_id = ?", bookID).
		Order("reviews.created_at DESC").
		Scan(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}
