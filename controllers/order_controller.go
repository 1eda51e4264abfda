package controllers

import (
	"encoding/json"

	"bookstore_go/middleware"
	"bookstore_go/services"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
)

// OrderController 下单与订单查询
type OrderController struct {
	orderService   *services.OrderService
	catalogService *services.CatalogService
}

// NewOrderController 创建订单控制器实例
func NewOrderController(orderService *services.OrderService, catalogService *services.CatalogService) *OrderController {
	return &OrderController{orderService: orderService, catalogService: catalogService}
}

// OrderItemsForm book_list 为书籍ID的JSON数组
type OrderItemsForm struct {
	BookList string `form:"book_list" json:"book_list" binding:"required"`
}

// Checkout 下单预览：购物车、总价、送达日期和可选项
// @Summary 下单预览
// @Tags orders
// @Produce json
// @Router /making_an_order [get]
func (oc *OrderController) Checkout(c *gin.Context) {
	checkout, err := oc.orderService.Checkout(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, checkout)
}

// PlaceOrder 提交订单
// @Summary 提交订单
// @Tags orders
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Success 201 {object} utils.Response
// @Router /making_an_order [post]
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	// 购物车为空时先于表单校验拒绝
	hasItems, err := oc.orderService.HasCartItems(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !hasItems {
		handleServiceError(c, services.ErrEmptyCart)
		return
	}

	var req services.PlaceOrderRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.ValidationError(c, err)
		return
	}

	order, err := oc.orderService.PlaceOrder(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.Created(c, "Order placed", gin.H{
		"order":     order,
		"book_list": order.BookIDs(),
		"redirect":  "/orders",
	})
}

// ListOrders 当前用户的订单
func (oc *OrderController) ListOrders(c *gin.Context) {
	orders, err := oc.orderService.ListOrders(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, gin.H{"orders": orders, "total": len(orders)})
}

// GetOrder 订单详情
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.orderService.GetOrder(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, order)
}

// OrderItems 按订单中的书籍ID列表返回书籍
func (oc *OrderController) OrderItems(c *gin.Context) {
	var form OrderItemsForm
	if err := c.ShouldBind(&form); err != nil {
		utils.ValidationError(c, err)
		return
	}

	var ids []string
	if err := json.Unmarshal([]byte(form.BookList), &ids); err != nil {
		utils.ValidationError(c, utils.FieldError("book_list", "book_list must be a JSON array of book ids"))
		return
	}

	books, err := oc.catalogService.GetBooksByIDs(c.Request.Context(), ids)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	utils.Success(c, gin.H{"books": books})
}
