package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/project-nexus/backend/internal/config"
	"github.com/project-nexus/backend/internal/database"
	"github.com/project-nexus/backend/internal/handlers"
	"github.com/project-nexus/backend/internal/middleware"
	"github.com/project-nexus/backend/internal/services"
	"github.com/project-nexus/backend/internal/storage"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.Session.Secret, cfg.Session.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	migrations := database.NewRunner(db, cfg.Legacy)
	if err := migrations.EnsureMigrated(context.Background()); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	accessService := services.NewAccessService(db)
	projectService := services.NewProjectService(db, accessService, storageClient)
	grantService := services.NewGrantService(db, accessService)

	authHandler := handlers.NewAuthHandler(db, cfg.Session)
	projectsHandler := handlers.NewProjectsHandler(projectService)
	accessHandler := handlers.NewAccessHandler(grantService)
	uploadsHandler := handlers.NewUploadsHandler(projectService, accessService, storageClient, cfg.Uploads)
	supportHandler := handlers.NewSupportHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db, cfg.Session.CookieName)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendOrigin))
	app.Use(middleware.RequestLogger())

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := app.Group("/api")

	// A request may arrive while an earlier migration attempt has failed;
	// this retries it instead of serving against a half-evolved schema.
	api.Use(func(c *fiber.Ctx) error {
		if err := migrations.EnsureMigrated(c.Context()); err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
		}
		return c.Next()
	})

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Post("/logout", authMiddleware.RequireAuth, authHandler.Logout)
	authRoutes.Patch("/me/profile", authMiddleware.RequireAuth, authHandler.UpdateProfile)
	authRoutes.Patch("/users/:userId/password", authMiddleware.RequireAuth, authHandler.ChangePassword)
	authRoutes.Post("/admin/users", authMiddleware.RequireAuth, middleware.AdminOnly, authHandler.CreateUser)

	projectRoutes := api.Group("/projects", authMiddleware.RequireAuth)
	projectRoutes.Get("/", projectsHandler.List)
	projectRoutes.Get("/shared", projectsHandler.ListShared)
	projectRoutes.Get("/users/search", accessHandler.SearchUsers)
	projectRoutes.Post("/", projectsHandler.Create)
	projectRoutes.Get("/:id", projectsHandler.Get)
	projectRoutes.Put("/:id", projectsHandler.Update)
	projectRoutes.Delete("/:id", projectsHandler.Delete)
	projectRoutes.Get("/:id/access", accessHandler.List)
	projectRoutes.Post("/:id/access", accessHandler.Create)
	projectRoutes.Delete("/:id/access/:userId", accessHandler.Revoke)
	projectRoutes.Post("/:id/docs", uploadsHandler.Upload)
	projectRoutes.Delete("/:id/docs/:docId", uploadsHandler.Delete)

	supportRoutes := api.Group("/support", authMiddleware.RequireAuth)
	supportRoutes.Get("/messages", supportHandler.List)
	supportRoutes.Post("/messages", supportHandler.Create)
	supportRoutes.Patch("/messages/:id/read", supportHandler.MarkRead)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
