package controllers

import (
	"bookstore_go/middleware"
	"bookstore_go/services"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
)

// ReviewController 书评
type ReviewController struct {
	reviewService *services.ReviewService
}

// NewReviewController 创建书评控制器实例
func NewReviewController(reviewService *services.ReviewService) *ReviewController {
	return &ReviewController{reviewService: reviewService}
}

// Submit 提交书评并返回更新后的评分
// @Summary 提交书评
// @Tags reviews
// @Accept x-www-form-urlencoded,json
// @Param book_id formData string true "书籍ID"
// @Param rating formData int true "1-5"
// @Param review_text formData string false "最多200字"
// @Router /submit_review [post]
func (rc *ReviewController) Submit(c *gin.Context) {
	var req services.SubmitReviewRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ValidationError(c, err)
		return
	}

	book, err := rc.reviewService.SubmitReview(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Created(c, "Review submitted", gin.H{
		"book_id":      book.ID,
		"rating":       book.Rating,
		"rating_count": book.RatingCount,
		"redirect":     "/books/" + book.ID,
	})
}
