package server

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/floorplan/internal/config"
	"github.com/mansoorceksport/floorplan/internal/domain"
	"github.com/mansoorceksport/floorplan/internal/handler"
	"github.com/mansoorceksport/floorplan/internal/middleware"
	"github.com/mansoorceksport/floorplan/internal/repository"
	"github.com/mansoorceksport/floorplan/internal/service"
	"github.com/mansoorceksport/floorplan/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	Storage     domain.BlobStorage
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	cfg := deps.Config

	// Initialize repositories
	fileStore := repository.NewCachedFileStore(
		repository.NewMongoFileStore(deps.MongoDB),
		repository.NewRedisCache(deps.RedisClient),
	)
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	buildingRepo := repository.NewMongoBuildingRepository(deps.MongoDB)

	// Processing strategies all write through the same blob storage
	strategies := service.NewStrategyRegistry(
		service.NewCopyStrategy(deps.Storage, service.CopyOptions{
			AllowedTypes: cfg.Processing.CopyAllowedTypes,
			MaxBytes:     cfg.Server.MaxUploadSizeMB * 1024 * 1024,
		}),
		service.NewImageStrategy(deps.Storage, cfg.Processing.ImageMaxPixels),
		service.NewArchiveStrategy(deps.Storage, cfg.Processing.ArchiveMaxEntries, cfg.Processing.ArchiveMaxBytes),
	)

	// Initialize services
	fileService := service.NewFileService(fileStore, deps.Storage, strategies)
	authService := service.NewAuthService(userRepo, cfg.JWT)
	buildingService := service.NewBuildingService(buildingRepo, fileStore)

	// Initialize handlers
	fileHandler := handler.NewFileHandler(fileService, cfg.Server.MaxUploadSizeMB)
	authHandler := handler.NewAuthHandler(authService)
	buildingHandler := handler.NewBuildingHandler(buildingService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Floorplan API",
		BodyLimit:    int(cfg.Server.MaxUploadSizeMB*1024*1024) + multipartOverhead,
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	if cfg.OTEL.Enabled {
		app.Use(telemetry.FiberMiddleware())
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": cfg.OTEL.ServiceName,
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// Auth endpoints (public)
	auth := v1.Group("/auth")
	auth.Post("/signup", authHandler.SignUp)
	auth.Post("/signin", authHandler.SignIn)

	// Everything below requires a valid access token
	requireAuth := middleware.VerifyToken(cfg.JWT.Secret)
	idempotency := middleware.IdempotencyMiddleware(deps.RedisClient, cfg.Server.IdempotencyTTL)

	v1.Get("/me", requireAuth, authHandler.Me)

	files := v1.Group("/files", requireAuth, idempotency)
	files.Get("/strategies", fileHandler.Strategies)
	files.Post("/", fileHandler.Upload)
	files.Get("/", fileHandler.List)
	files.Get("/:id", fileHandler.Get)
	files.Get("/:id/content", fileHandler.Content)
	files.Patch("/:id", fileHandler.Update)
	files.Delete("/:id", fileHandler.Delete)

	buildings := v1.Group("/buildings", requireAuth, idempotency)
	buildings.Get("/", buildingHandler.List)
	buildings.Get("/:id", buildingHandler.Get)
	buildings.Post("/", middleware.AuthorizeRole(domain.RoleAdmin), buildingHandler.Create)
	buildings.Put("/:id", middleware.AuthorizeRole(domain.RoleAdmin), buildingHandler.Update)
	buildings.Delete("/:id", middleware.AuthorizeRole(domain.RoleAdmin), buildingHandler.Delete)

	admin := v1.Group("/admin", requireAuth, middleware.AuthorizeRole(domain.RoleAdmin))
	admin.Post("/users/:id/role", authHandler.UpdateRole)

	return app
}

// room for multipart boundaries and form fields around the file part
const multipartOverhead = 1 << 20

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
