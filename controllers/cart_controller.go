package controllers

import (
	"bookstore_go/middleware"
	"bookstore_go/services"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
)

// CartController 购物车
type CartController struct {
	cartService *services.CartService
}

// NewCartController 创建购物车控制器实例
func NewCartController(cartService *services.CartService) *CartController {
	return &CartController{cartService: cartService}
}

// Cart 当前用户购物车
// @Summary 购物车
// @Tags cart
// @Produce json
// @Router /cart [get]
func (cc *CartController) Cart(c *gin.Context) {
	cart, err := cc.cartService.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, cart)
}

// Add 加入购物车
// @Summary 加入购物车
// @Tags cart
// @Accept x-www-form-urlencoded,json
// @Param book_id formData string true "书籍ID"
// @Router /add_to_cart [post]
func (cc *CartController) Add(c *gin.Context) {
	var form BookForm
	if err := c.ShouldBind(&form); err != nil {
		utils.ValidationError(c, err)
		return
	}

	item, err := cc.cartService.Add(c.Request.Context(), middleware.CurrentUserID(c), form.BookID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Added to cart", item)
}

// Decrease 数量减一
func (cc *CartController) Decrease(c *gin.Context) {
	var form BookForm
	if err := c.ShouldBind(&form); err != nil {
		utils.ValidationError(c, err)
		return
	}

	item, err := cc.cartService.Decrease(c.Request.Context(), middleware.CurrentUserID(c), form.BookID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if item == nil {
		utils.SuccessWithMessage(c, "Removed from cart", gin.H{"book_id": form.BookID, "count": 0})
		return
	}
	utils.SuccessWithMessage(c, "Cart updated", item)
}

// Remove 移除整行
func (cc *CartController) Remove(c *gin.Context) {
	var form BookForm
	if err := c.ShouldBind(&form); err != nil {
		utils.ValidationError(c, err)
		return
	}

	if err := cc.cartService.Remove(c.Request.Context(), middleware.CurrentUserID(c), form.BookID); err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "Removed from cart", gin.H{"book_id": form.BookID, "count": 0})
}
