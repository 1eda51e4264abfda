package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore_go/middleware"
	"bookstore_go/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// PickupAddress 自提订单的地址标记
	PickupAddress = "Self-pickup"

	DeliveryPickup = "pickup"

	deliveryDays       = 3
	deliveryDateLayout = "02.01.2006"
	orderEventsStream  = "order_events"
)

// Option 表单选项
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// PaymentMethods 可选支付方式
var PaymentMethods = []Option{
	{Value: "card", Label: "Bank card"},
	{Value: "cash", Label: "Cash"},
	{Value: "ewallet", Label: "E-wallet"},
	{Value: "bank_transfer", Label: "Bank transfer"},
}

// DeliveryMethods 可选配送方式
var DeliveryMethods = []Option{
	{Value: "courier", Label: "Courier delivery"},
	{Value: DeliveryPickup, Label: "Self-pickup"},
	{Value: "post", Label: "Post"},
	{Value: "transport", Label: "Transport company"},
}

// PlaceOrderRequest 下单表单
type PlaceOrderRequest struct {
	PaymentMethod  string `form:"payment_method" json:"payment_method" binding:"required,oneof=card cash ewallet bank_transfer"`
	DeliveryMethod string `form:"delivery_method" json:"delivery_method" binding:"required,oneof=courier pickup post transport"`
	Address        string `form:"address" json:"address" binding:"max=500"`
	CashOnDelivery bool   `form:"cash_on_delivery" json:"cash_on_delivery"`
	FullName       string `form:"full_name" json:"full_name" binding:"required,min=2,max=100"`
}

// Checkout 下单预览
type Checkout struct {
	Items           []CartLine `json:"items"`
	TotalPrice      float64    `json:"total_price"`
	DeliveryDate    string     `json:"delivery_date"`
	PaymentMethods  []Option   `json:"payment_methods"`
	DeliveryMethods []Option   `json:"delivery_methods"`
}

// OrderSummary 订单列表项
type OrderSummary struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	DeliveryDate string    `json:"delivery_date"`
	Status       string    `json:"status"`
	TotalAmount  float64   `json:"total_amount"`
	BookList     []string  `json:"book_list"`
	TotalBooks   int       `json:"total_books"`
}

// OrderLine 订单明细及书籍信息
type OrderLine struct {
	models.OrderItem `gorm:"embedded"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	Cover            string `json:"cover"`
}

// OrderDetail 订单详情
type OrderDetail struct {
	models.Order
	BookList []string    `json:"book_list"`
	Items    []OrderLine `json:"items"`
}

// OrderService 下单与订单查询
type OrderService struct {
	db       *gorm.DB
	rdb      *redis.Client
	catalog  *CatalogService
	notifier Notifier
}

// NewOrderService 创建订单服务，rdb 与 notifier 可为 nil
func NewOrderService(db *gorm.DB, rdb *redis.Client, catalog *CatalogService, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &OrderService{db: db, rdb: rdb, catalog: catalog, notifier: notifier}
}

// deliveryDate 预计送达日期
func deliveryDate(now time.Time) string {
	return now.AddDate(0, 0, deliveryDays).Format(deliveryDateLayout)
}

// resolveAddress 自提订单忽略表单地址
func resolveAddress(req *PlaceOrderRequest) string {
	if req.DeliveryMethod == DeliveryPickup {
		return PickupAddress
	}
	return req.Address
}

// Checkout 返回购物车、实时总价和可选项；购物车为空时返回 ErrEmptyCart
func (ors *OrderService) Checkout(ctx context.Context, userID string) (*Checkout, error) {
	lines, err := loadCartLines(ors.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	total, _ := cartTotal(lines)
	return &Checkout{
		Items:           lines,
		TotalPrice:      toAmount(total),
		DeliveryDate:    deliveryDate(time.Now()),
		PaymentMethods:  PaymentMethods,
		DeliveryMethods: DeliveryMethods,
	}, nil
}

// PlaceOrder 在一个事务内：读取购物车、创建订单与明细、清空购物车
func (ors *OrderService) PlaceOrder(ctx context.Context, userID string, req *PlaceOrderRequest) (*models.Order, error) {
	var order models.Order
	var itemCount int

	err := ors.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := loadCartLines(tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		var user models.User
		err = tx.Select("id", "phone").Where("id = ?", userID).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		total, _ := cartTotal(lines)
		now := time.Now()

		bookIDs := make([]string, len(lines))
		for i, line := range lines {
			bookIDs[i] = line.Book.ID
		}

		order = models.Order{
			UserID:         userID,
			Date:           startOfDay(now),
			Status:         models.OrderStatusPlaced,
			TotalAmount:    toAmount(total),
			UserPhone:      user.Phone,
			Address:        resolveAddress(req),
			PaymentMethod:  req.PaymentMethod,
			DeliveryMethod: req.DeliveryMethod,
			CustomerName:   req.FullName,
			CashOnDelivery: req.CashOnDelivery,
			DeliveryDate:   deliveryDate(now),
		}
		order.SetBookIDs(bookIDs)

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		items := make([]models.OrderItem, len(lines))
		for i, line := range lines {
			items[i] = models.OrderItem{
				OrderID:   order.ID,
				BookID:    line.Book.ID,
				BookCount: line.Count,
				Cost:      line.Cost(),
			}
			itemCount += line.Count
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ors.afterPlaced(ctx, &order, itemCount)
	return &order, nil
}

// afterPlaced 提交后的副作用，不受请求取消影响
func (ors *OrderService) afterPlaced(ctx context.Context, order *models.Order, itemCount int) {
	ors.catalog.InvalidateTopSellers(context.WithoutCancel(ctx))

	middleware.InfoLogger("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Int("books", itemCount),
	)

	go recordEvent(ors.rdb, orderEventsStream, map[string]interface{}{
		"event":        EventOrderPlaced,
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
		"books":        itemCount,
	})
	ors.notifier.Notify(order.UserID, EventOrderPlaced, map[string]interface{}{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"status":       order.Status,
	})
}

// HasCartItems 购物车是否非空
func (ors *OrderService) HasCartItems(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := ors.db.WithContext(ctx).Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count > 0, nil
}

// ListOrders 用户订单，最新在前
func (ors *OrderService) ListOrders(ctx context.Context, userID string) ([]OrderSummary, error) {
	var orders []models.Order
	if err := ors.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	summaries := make([]OrderSummary, len(orders))
	for i := range orders {
		bookIDs := orders[i].BookIDs()
		summaries[i] = OrderSummary{
			ID:           orders[i].ID,
			Date:         orders[i].Date,
			DeliveryDate: orders[i].DeliveryDate,
			Status:       orders[i].Status,
			TotalAmount:  orders[i].TotalAmount,
			BookList:     bookIDs,
			TotalBooks:   len(bookIDs),
		}
	}
	return summaries, nil
}

// GetOrder 订单详情；不属于该用户的订单视为不存在
func (ors *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*OrderDetail, error) {
	db := ors.db.WithContext(ctx)

	var order models.Order
	err := db.Where("id = ? AND user_id = ?", orderID, userID).Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	lines := make([]OrderLine, 0)
	err = db.Table("order_items").
		Select("order_items.*, books.title AS title, books.author AS author, books.cover AS cover").
		Joins("JOIN books ON books.id = order_items.book_id").
		Where("order_items.order_id = ?", order.ID).
		Order("books.title").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}

	return &OrderDetail{Order: order, BookList: order.BookIDs(), Items: lines}, nil
}
