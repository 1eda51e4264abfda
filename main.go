package main

import (
	"context"
	"log"
	"os"

	"bookstore_go/config"
	"bookstore_go/middleware"
	"bookstore_go/models"
	"bookstore_go/routes"
	"bookstore_go/seed"
	"bookstore_go/websocket"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 设置环境
	env := os.Getenv("GIN_MODE")
	if env == "" {
		env = "debug"
		os.Setenv("GIN_MODE", env)
	}

	// 初始化日志系统
	if err := middleware.InitLogger(env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer middleware.FlushLogger()

	// 初始化数据库
	if err := config.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer config.CloseDatabase()

	ctx := context.Background()
	db := config.DB

	// 首次启动：迁移前 books 表不存在
	firstBoot := !db.Migrator().HasTable(&models.Book{})
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if firstBoot || config.GetEnvBool("SEED_BOOKS", false) {
		inserted, err := seed.Default(ctx, db)
		if err != nil {
			log.Fatalf("Failed to seed books: %v", err)
		}
		log.Printf("📚 Seeded %d books", inserted)
	}

	// 初始化Redis，不可用时降级运行
	if config.GetServerConfig().RedisEnabled {
		if err := config.InitializeRedis(); err != nil {
			middleware.ErrorLogger("redis unavailable, running without cache", zap.Error(err))
			_ = config.CloseRedis()
			config.RedisClient = nil
		} else {
			defer config.CloseRedis()
		}
	}
	rdb := config.GetRedisClient()

	// 初始化websocket
	hub := websocket.NewHub(rdb)
	if err := hub.Start(ctx); err != nil {
		middleware.ErrorLogger("websocket hub running in local mode", zap.Error(err))
	}
	defer hub.Close()

	// 设置路由
	r := config.SetupRouter()

	// 注册自定义路由
	routes.SetupRoutes(r, routes.NewServices(db, rdb, hub))

	if err := config.StartServer(r); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
}
