package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"spyfall/config"
	"spyfall/handlers"
	"spyfall/middleware"
	"spyfall/models"
	"spyfall/routes"
	"spyfall/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	userService := services.NewUserService(db, cfg.JWTSecret)
	roomStore := services.NewGormRoomStore(db)
	notifier := services.NewRedisNotifier(redisClient)
	roomService := services.NewRoomService(roomStore, services.NewRandomizer(), notifier)

	// Initialize WebSocket hub
	hub := services.NewHub(notifier, roomService)
	go hub.Run()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	roomHandler := handlers.NewRoomHandler(roomService, userService, cfg.PublicURL)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, userHandler, roomHandler, hub, userService, roomService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
