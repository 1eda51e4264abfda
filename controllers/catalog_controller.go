package controllers

import (
	"strconv"

	"bookstore_go/services"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
)

const maxTopSellerLimit = 50

// CatalogController 书目浏览
type CatalogController struct {
	catalogService *services.CatalogService
	reviewService  *services.ReviewService
}

// NewCatalogController 创建书目控制器实例
func NewCatalogController(catalogService *services.CatalogService, reviewService *services.ReviewService) *CatalogController {
	return &CatalogController{catalogService: catalogService, reviewService: reviewService}
}

// queryInt 读取正整数查询参数，非法值回退默认值
func queryInt(c *gin.Context, key string, defaultValue, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	if v > max {
		return max
	}
	return v
}

// Home 首页：近期畅销书
// @Summary 畅销书
// @Tags catalog
// @Produce json
// @Param days query int false "统计天数" default(7)
// @Param limit query int false "数量" default(3)
// @Router / [get]
func (cc *CatalogController) Home(c *gin.Context) {
	days := queryInt(c, "days", services.DefaultTopSellerDays, 365)
	limit := queryInt(c, "limit", services.DefaultTopSellerLimit, maxTopSellerLimit)

	sellers, err := cc.catalogService.TopSellers(c.Request.Context(), days, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, gin.H{
		"top_sellers": sellers,
		"days":        days,
	})
}

// Catalog 书目列表，可按 category 或 subcategory 筛选
// @Summary 书目列表
// @Tags catalog
// @Produce json
// @Param category query string false "分类"
// @Param subcategory query string false "子分类"
// @Router /catalog [get]
func (cc *CatalogController) Catalog(c *gin.Context) {
	category := c.Query("category")
	subcategory := c.Query("subcategory")

	books, err := cc.catalogService.ListBooks(c.Request.Context(), category, subcategory)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Success(c, gin.H{
		"books":       books,
		"total":       len(books),
		"category":    category,
		"subcategory": subcategory,
	})
}

// Book 书籍详情
func (cc *CatalogController) Book(c *gin.Context) {
	book, err := cc.catalogService.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, book)
}

// Reviews 书籍评论
func (cc *CatalogController) Reviews(c *gin.Context) {
	reviews, err := cc.reviewService.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, gin.H{"reviews": reviews, "total": len(reviews)})
}
