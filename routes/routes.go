package routes

import (
	"bookstore_go/config"
	"bookstore_go/controllers"
	"bookstore_go/middleware"
	"bookstore_go/services"
	"bookstore_go/utils"
	"bookstore_go/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services 路由依赖的服务集合
type Services struct {
	JWT     *config.JWTService
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Cart    *services.CartService
	Order   *services.OrderService
	Review  *services.ReviewService
	Hub     *websocket.Hub
	Redis   *redis.Client
}

// NewServices 组装服务，rdb 与 hub 可为 nil
func NewServices(db *gorm.DB, rdb *redis.Client, hub *websocket.Hub) *Services {
	var notifier services.Notifier
	if hub != nil {
		notifier = hub
	}

	jwtService := config.GetJWTService()
	catalog := services.NewCatalogService(db, rdb)

	return &Services{
		JWT:     jwtService,
		Auth:    services.NewAuthService(db, rdb, jwtService),
		Catalog: catalog,
		Cart:    services.NewCartService(db, notifier),
		Order:   services.NewOrderService(db, rdb, catalog, notifier),
		Review:  services.NewReviewService(db),
		Hub:     hub,
		Redis:   rdb,
	}
}

// SetupRoutes 设置路由
func SetupRoutes(r *gin.Engine, s *Services) {
	utils.RegisterValidations()

	// 应用全局中间件
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())

	authCtrl := controllers.NewAuthController(s.Auth, s.JWT, s.Redis)
	userCtrl := controllers.NewUserController(s.Auth)
	catalogCtrl := controllers.NewCatalogController(s.Catalog, s.Review)
	cartCtrl := controllers.NewCartController(s.Cart)
	orderCtrl := controllers.NewOrderController(s.Order, s.Catalog)
	reviewCtrl := controllers.NewReviewController(s.Review)

	// ====== 公开路由 ======
	r.GET("/", catalogCtrl.Home)
	r.GET("/catalog", catalogCtrl.Catalog)
	r.GET("/books/:id", catalogCtrl.Book)
	r.GET("/books/:id/reviews", catalogCtrl.Reviews)

	r.GET("/register", authCtrl.RegisterForm)
	r.POST("/register", authCtrl.Register)
	r.GET("/login", authCtrl.LoginForm)
	r.POST("/login", authCtrl.Login)
	r.GET("/logout", authCtrl.Logout)

	// ====== 需要登录 ======
	auth := r.Group("/", middleware.AuthMiddleware(s.JWT, s.Auth))
	{
		auth.GET("/me", userCtrl.Profile)

		auth.GET("/cart", cartCtrl.Cart)
		auth.POST("/cart", cartCtrl.Cart)
		auth.POST("/add_to_cart", cartCtrl.Add)
		auth.POST("/remove_from_cart", cartCtrl.Remove)
		auth.POST("/decrease_from_cart", cartCtrl.Decrease)

		auth.GET("/making_an_order", orderCtrl.Checkout)
		auth.POST("/making_an_order", orderCtrl.PlaceOrder)
		auth.GET("/orders", orderCtrl.ListOrders)
		auth.GET("/orders/:id", orderCtrl.GetOrder)
		auth.POST("/order_items", orderCtrl.OrderItems)

		auth.POST("/submit_review", reviewCtrl.Submit)

		// ====== WebSocket路由 ======
		if s.Hub != nil {
			auth.GET("/ws", s.Hub.HandleConnection)
		}
	}
}
