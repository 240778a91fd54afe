package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // Loads .env files into the environment
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/gas-cylinder-distribution/internal/config"     // Internal config loader
    "github.com/iliyamo/gas-cylinder-distribution/internal/database"   // Database connection
    "github.com/iliyamo/gas-cylinder-distribution/internal/handler"    // HTTP handlers
    "github.com/iliyamo/gas-cylinder-distribution/internal/middleware" // Rate limiting middleware
    "github.com/iliyamo/gas-cylinder-distribution/internal/queue"      // Background status consumer
    "github.com/iliyamo/gas-cylinder-distribution/internal/repository" // DB repositories
    "github.com/iliyamo/gas-cylinder-distribution/internal/router"     // Route registration
    "github.com/iliyamo/gas-cylinder-distribution/internal/service"    // Notification dispatcher
    "github.com/iliyamo/gas-cylinder-distribution/internal/utils"      // Pickup code source
)

func main() {
    // Load .env if present; real environment variables win.
    if err := godotenv.Load(); err != nil {
        log.Println("no .env file found, relying on environment")
    }
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connection failed: %v", err)
    }
    defer db.Close()

    // Repositories
    userRepo := repository.NewUserRepo(db)
    refreshRepo := repository.NewRefreshTokenRepo(db)
    requestRepo := repository.NewRequestRepo(db)
    tokenRepo := repository.NewPickupTokenRepo(db)
    outletRepo := repository.NewOutletRepo(db)
    productRepo := repository.NewProductRepo(db)
    deliveryRepo := repository.NewDeliveryRepo(db)
    fulfillmentRepo := repository.NewFulfillmentRepo(db)
    stockRepo := repository.NewStockRepo(db)
    notificationRepo := repository.NewNotificationRepo(db)

    dispatcher := service.NewDispatcher(notificationRepo, cfg.PublishEvents)

    // Handlers
    authHandler := handler.NewAuthHandler(cfg, userRepo, refreshRepo)
    consumerHandler := handler.NewConsumerHandler(requestRepo, tokenRepo, outletRepo, productRepo,
        deliveryRepo, notificationRepo, utils.CryptoCodeSource(), dispatcher)
    outletHandler := handler.NewOutletHandler(requestRepo, tokenRepo, deliveryRepo, fulfillmentRepo,
        stockRepo, userRepo, dispatcher, cfg.EnforceTokenExpiry)
    stockHandler := handler.NewStockHandler(stockRepo, productRepo, userRepo)
    statsHandler := handler.NewStatsHandler(deliveryRepo, userRepo)
    catalogHandler := handler.NewCatalogHandler(productRepo, outletRepo)

    e := echo.New()

    // Distributed rate limiting; degrades to a no-op when Redis is down.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, rate limiting disabled")
    }
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    router.RegisterRoutes(e)
    router.RegisterPublic(e, catalogHandler)
    router.RegisterAuth(e, authHandler, cfg.JWTSecret)
    router.RegisterConsumer(e, consumerHandler, cfg.JWTSecret)
    router.RegisterOutlet(e, outletHandler, stockHandler, statsHandler, cfg.JWTSecret)

    // Background consumer mirrors status events to logs/notifications.log.
    if cfg.PublishEvents {
        go func() {
            if err := queue.StartStatusConsumer(); err != nil {
                log.Printf("status consumer stopped: %v", err)
            }
        }()
    }

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
