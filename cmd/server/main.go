package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/Arg39/backend-tanamin-sub001/internal/handlers"
	"github.com/Arg39/backend-tanamin-sub001/internal/middleware"
	"github.com/Arg39/backend-tanamin-sub001/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional; the certificate gate degrades to direct queries
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	// Payment gateway
	midtransService := services.NewMidtransService()

	// Services
	couponService := services.NewCouponService(db)
	enrollmentService := services.NewEnrollmentService(db)
	checkoutService := services.NewCheckoutService(db, couponService, enrollmentService, midtransService)
	certificateService := services.NewCertificateService(db, cache, enrollmentService)

	// Create Echo instance
	e := echo.New()
	e.HTTPErrorHandler = middleware.CustomErrorHandler

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())

	// Handlers
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	couponHandler := handlers.NewCouponHandler(db, couponService)
	webhookHandler := handlers.NewWebhookHandler(enrollmentService, midtransService)
	certificateHandler := handlers.NewCertificateHandler(certificateService)
	progressHandler := handlers.NewProgressHandler(db)

	authz := middleware.NewRoleAuthorizer()

	// Gateway callback is unauthenticated; the payload signature is the guard
	e.POST("/webhooks/midtrans", webhookHandler.MidtransCallback)

	// Authenticated routes
	api := e.Group("/api", middleware.RequireAuth(jwtSecret))

	checkout := api.Group("", middleware.RequireAction(authz, "course:checkout"))
	checkout.GET("/checkout/buy-now/:course_id", checkoutHandler.BuyNowContent)
	checkout.GET("/checkout/cart", checkoutHandler.CartContent)
	checkout.POST("/checkout/cart/items", checkoutHandler.AddToCart)
	checkout.POST("/checkout/buy-now", checkoutHandler.CheckoutBuyNow)
	checkout.POST("/checkout/cart", checkoutHandler.CheckoutCart)
	checkout.GET("/checkout/orders/:session_id", checkoutHandler.Order)
	checkout.POST("/coupons/apply", couponHandler.Apply)

	api.GET("/certificates/:course_id", certificateHandler.GetOrIssue)
	api.POST("/progress/lessons", progressHandler.MarkLessonDone)

	// Admin coupon management
	admin := api.Group("/admin", middleware.RequireAction(authz, "coupon:manage"))
	admin.POST("/coupons", couponHandler.Create)
	admin.PUT("/coupons/:id", couponHandler.Update)
	admin.DELETE("/coupons/:id", couponHandler.Delete)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
