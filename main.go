package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/hostel-management-api/config"
	"github.com/kendall-kelly/hostel-management-api/controllers"
	"github.com/kendall-kelly/hostel-management-api/middleware"
	"github.com/kendall-kelly/hostel-management-api/models"
	"github.com/kendall-kelly/hostel-management-api/services"
	"github.com/redis/go-redis/v9"
)

// redisClient is nil when Redis is not configured
var redisClient *redis.Client

func main() {
	log.Println("Starting Hostel Management API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetupLogger(cfg.LogLevel)

	if err := config.ConnectDatabase(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	ctx := context.Background()
	if cfg.AdminEmail != "" {
		created, err := services.EnsureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("Failed to create bootstrap admin: %v", err)
		}
		if created {
			config.Infof("Created bootstrap admin %s", cfg.AdminEmail)
		}
	}

	redisClient = config.NewRedisClient(cfg)
	services.InitRevocationStore(redisClient)

	publisher := services.InitEventPublisher(cfg.RabbitMQURL)
	defer func() {
		if err := publisher.Close(); err != nil {
			config.Warnf("Failed to close event publisher: %v", err)
		}
	}()

	if cfg.S3Enabled() {
		store, err := services.NewS3ObjectStore(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 photo storage: %v", err)
		}
		services.InitPhotoService(store)
		config.Infof("Complaint photos are stored in bucket %s", cfg.AWSS3Bucket)
	} else {
		config.Warnf("AWS_S3_BUCKET not set, complaint photo uploads are disabled")
	}

	corrected, err := services.NewOccupancyLedger(db).Reconcile(ctx)
	if err != nil {
		log.Fatalf("Failed to reconcile room occupancy: %v", err)
	}
	if corrected > 0 {
		config.Warnf("Corrected occupancy of %d rooms at startup", corrected)
	}

	router := setupRouter(cfg)

	addr := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the engine with every route of the API
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	if !cfg.IsTest() {
		router.Use(gin.Logger())
	}
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		config.Errorf("Panic while serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}))
	router.Use(middleware.CORS(cfg.FrontendURL))
	router.Use(middleware.Metrics())

	api := router.Group("/api")
	{
		api.GET("/health", healthCheck)
		api.GET("/health/ready", readinessCheck)
		api.GET("/metrics", middleware.MetricsHandler())

		requireAuth := middleware.EnsureValidToken(cfg)
		can := middleware.RequirePermission

		auth := api.Group("/auth")
		{
			auth.POST("/signup", controllers.Signup)
			auth.POST("/login", controllers.Login)
			auth.POST("/refresh", controllers.Refresh)
			auth.GET("/me", requireAuth, controllers.GetMe)
			auth.POST("/logout", requireAuth, controllers.Logout)
		}

		users := api.Group("/users", requireAuth)
		{
			users.GET("", can(middleware.ResourceUsers, middleware.ActionList), controllers.GetUsers)
			users.GET("/:id", can(middleware.ResourceUsers, middleware.ActionRead), controllers.GetUser)
			users.PUT("/:id", can(middleware.ResourceUsers, middleware.ActionUpdate), controllers.UpdateUser)
			users.DELETE("/:id", can(middleware.ResourceUsers, middleware.ActionDelete), controllers.DeleteUser)
		}

		rooms := api.Group("/rooms", requireAuth)
		{
			rooms.POST("", can(middleware.ResourceRooms, middleware.ActionCreate), controllers.CreateRoom)
			rooms.GET("", can(middleware.ResourceRooms, middleware.ActionList), controllers.GetRooms)
			rooms.POST("/reconcile", can(middleware.ResourceRooms, middleware.ActionReconcile), controllers.ReconcileRooms)
			rooms.GET("/:id", can(middleware.ResourceRooms, middleware.ActionRead), controllers.GetRoom)
			rooms.PUT("/:id", can(middleware.ResourceRooms, middleware.ActionUpdate), controllers.UpdateRoom)
			rooms.DELETE("/:id", can(middleware.ResourceRooms, middleware.ActionDelete), controllers.DeleteRoom)
		}

		students := api.Group("/students", requireAuth)
		{
			students.POST("", can(middleware.ResourceStudents, middleware.ActionCreate), controllers.CreateStudent)
			// students receive only their own record
			students.GET("", can(middleware.ResourceStudents, middleware.ActionRead), controllers.GetStudents)
			students.GET("/:id", can(middleware.ResourceStudents, middleware.ActionRead), controllers.GetStudent)
			students.PUT("/:id", can(middleware.ResourceStudents, middleware.ActionUpdate), controllers.UpdateStudent)
			students.DELETE("/:id", can(middleware.ResourceStudents, middleware.ActionDelete), controllers.DeleteStudent)
		}

		complaints := api.Group("/complaints", requireAuth)
		{
			complaints.POST("", can(middleware.ResourceComplaints, middleware.ActionCreate), controllers.CreateComplaint)
			complaints.GET("", can(middleware.ResourceComplaints, middleware.ActionList), controllers.GetComplaints)
			complaints.GET("/:id", can(middleware.ResourceComplaints, middleware.ActionRead), controllers.GetComplaint)
			complaints.PUT("/:id", can(middleware.ResourceComplaints, middleware.ActionUpdate), controllers.UpdateComplaint)
		}

		attendance := api.Group("/attendance", requireAuth)
		{
			attendance.POST("/mark", can(middleware.ResourceAttendance, middleware.ActionMark), controllers.MarkAttendance)
			attendance.GET("/student/:id", can(middleware.ResourceAttendance, middleware.ActionRead), controllers.GetStudentAttendance)
		}
	}

	return router
}

// healthCheck handles the liveness endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Server is running",
		"status":  "ok",
	})
}

// readinessCheck reports whether the database and, when configured, Redis
// answer a ping
func readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	ready := true

	db := config.GetDB()
	if db == nil {
		checks["database"] = "unavailable"
		ready = false
	} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		ready = false
	}

	if redisClient == nil {
		checks["redis"] = "disabled"
	} else if err := redisClient.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unavailable"
		ready = false
	} else {
		checks["redis"] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}
