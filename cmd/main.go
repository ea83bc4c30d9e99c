package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"storefront/internal/caching"
	"storefront/internal/handlers"
	"storefront/internal/imaging"
	"storefront/internal/jobs/background"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/storage"
	"storefront/pkg/database"
)

const version = "1.0.0"

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Blob storage: local media directory by default, s3-compatible bucket
	// when STORAGE_BACKEND=minio.
	mediaRoot := envOr("MEDIA_ROOT", "./media")
	mediaBaseURL := envOr("MEDIA_BASE_URL", "/media")

	var store storage.Store
	var fsStore *storage.FSStore
	switch os.Getenv("STORAGE_BACKEND") {
	case "minio":
		minioEndpoint := envOr("MINIO_ENDPOINT", "localhost:9000")
		minioAccessKey := envOr("MINIO_ACCESS_KEY", "minioadmin")
		minioSecretKey := envOr("MINIO_SECRET_KEY", "minioadmin")
		minioBucket := envOr("MINIO_BUCKET", "storefront-media")
		useSSL := os.Getenv("MINIO_USE_SSL") == "true"

		store, err = storage.NewMinioStore(minioEndpoint, minioAccessKey, minioSecretKey, minioBucket, useSSL)
		if err != nil {
			log.Fatalf("Failed to initialize minio storage: %v", err)
		}
	default:
		fsStore, err = storage.NewFSStore(mediaRoot, mediaBaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize media storage: %v", err)
		}
		store = fsStore
	}

	// Thumbnail bounding box
	thumbWidth := envIntOr("THUMBNAIL_WIDTH", 300)
	thumbHeight := envIntOr("THUMBNAIL_HEIGHT", 300)
	thumbnailer := imaging.NewThumbnailer(store, thumbWidth, thumbHeight)

	// Redis cache
	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := envIntOr("REDIS_DB", 0)
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Repositories and services
	productRepo := repositories.NewProductRepo(pool)
	imageRepo := repositories.NewImageRepo(pool)
	imageSvc := services.NewImageService(imageRepo, store, thumbnailer)

	// Materialize the shared placeholder once and inject its identity into
	// the catalog.
	placeholderSource := envOr("PLACEHOLDER_SOURCE", "./static/no-product-image.png")
	placeholder, err := imageSvc.GetOrCreateByTitle(context.Background(), models.PlaceholderTitle, placeholderSource)
	if err != nil {
		log.Fatalf("Failed to materialize placeholder image: %v", err)
	}

	pageSize := envIntOr("ITEMS_PER_PAGE", 12)
	catalogSvc := services.NewCatalogService(productRepo, imageRepo, imageSvc, cacheSvc, placeholder.ID, pageSize)

	// Background maintenance jobs
	scheduler, err := background.NewJobScheduler(imageSvc, imageRepo)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop job scheduler: %v", err)
		}
	}()

	// Handlers
	productHandlers := handlers.NewProductHandlers(catalogSvc, imageSvc)
	imageHandlers := handlers.NewImageHandlers(imageSvc)

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints
	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", func(c echo.Context) error {
		return handlers.ReadinessCheck(c, pool)
	})

	// Media files for the filesystem backend; the minio backend serves
	// through presigned URLs instead.
	if fsStore != nil {
		e.Static(mediaBaseURL, fsStore.Root())
	}

	// API routes
	v1 := e.Group("/v1")

	v1.GET("/products", productHandlers.ListProducts)
	v1.POST("/products", productHandlers.CreateProduct)
	v1.GET("/products/:id", productHandlers.GetProduct)
	v1.PUT("/products/:id", productHandlers.UpdateProduct)
	v1.DELETE("/products/:id", productHandlers.DeleteProduct)
	v1.POST("/products/:id/images", imageHandlers.UploadProductImage)

	v1.POST("/images", imageHandlers.UploadImage)
	v1.GET("/images/:id", imageHandlers.GetImage)
	v1.DELETE("/images/:id", imageHandlers.DeleteImage)

	// Start server
	port := envOr("PORT", "8080")
	if _, err := strconv.Atoi(port); err != nil {
		log.Fatalf("Invalid port %s: %v", port, err)
	}

	log.Printf("Storefront server v%s starting on port %s", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%s", port)))
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
