package main

import (
	"context"
	"log"
	"os"
	"time"

	"coffeebot-service/config"
	"coffeebot-service/database"
	"coffeebot-service/handlers"
	"coffeebot-service/middleware"
	"coffeebot-service/services"
	"coffeebot-service/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize database
	db, err := database.Init(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}

	clock, err := utils.NewClock(cfg.Timezone)
	if err != nil {
		log.Fatal("Failed to load timezone: ", err)
	}

	// Start rate limit cleanup goroutine
	go middleware.CleanupRateLimitStore()

	// Wire services and handlers
	tally := services.NewTallyService(db, clock, cfg.MaxCoffeeAdd, cfg.MaxCoffeeSubtract)
	commandHandler := handlers.NewCommandHandler(tally, cfg)

	// Side jobs: nightly backup and keep-alive ping
	scheduler := services.NewScheduler()
	if cfg.BackupConfigured() {
		uploader, err := services.NewS3Uploader(context.Background(), services.S3Config{
			Bucket:    cfg.BackupBucket,
			Region:    cfg.BackupRegion,
			Endpoint:  cfg.BackupEndpoint,
			AccessKey: os.Getenv("BACKUP_ACCESS_KEY"),
			SecretKey: os.Getenv("BACKUP_SECRET_KEY"),
		})
		if err != nil {
			log.Fatal("Failed to create backup uploader: ", err)
		}
		backup := services.NewBackupService(db, uploader, clock, cfg.BackupPrefix)
		if err := scheduler.AddBackupJob(cfg.BackupSchedule, backup); err != nil {
			log.Fatal("Failed to schedule backup job: ", err)
		}
	} else {
		log.Println("BACKUP_BUCKET not set, backups disabled")
	}
	if err := scheduler.AddKeepAliveJob(cfg.KeepAliveSchedule, db); err != nil {
		log.Fatal("Failed to schedule keep-alive job: ", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup Gin router
	router := gin.Default()

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Slash-command endpoint behind the shared secret
	router.POST("/addCoffee",
		middleware.KeyAuth(cfg.AuthKey),
		middleware.RateLimit(30, 1*time.Minute, 5*time.Minute),
		commandHandler.HandleCommand)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
