package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"makao/internal/auth"
	"makao/internal/database"
	"makao/internal/handlers"
	"makao/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env in development; production injects real environment vars
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	// Initialize database
	if err := database.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Initialize Google sign-in
	if err := auth.InitOAuth(); err != nil {
		log.Fatal("Failed to initialize OAuth:", err)
	}

	// The dispatcher gets its configuration here, never from ambient env
	dispatcher := services.NewDispatcher(
		services.NewDispatchStore(database.GetDB()),
		services.NewSMSGateway(services.SMSConfigFromEnv()),
		services.DefaultBatchSize,
	)

	// Optional in-process worker for deployments without an external cron
	if intervalStr := os.Getenv("REMINDER_WORKER_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			log.Fatalf("Invalid REMINDER_WORKER_INTERVAL %q: %v", intervalStr, err)
		}
		services.NewReminderWorker(dispatcher, interval).Start()
		log.Printf("Reminder worker started with interval %v", interval)
	}

	// Initialize Gin router
	router := gin.Default()

	// Configure trusted proxies
	router.SetTrustedProxies([]string{"127.0.0.1"})

	// CORS for the web frontend
	allowedOrigins := []string{"http://localhost:3000"}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Basic routes
	router.GET("/", handlers.HomeHandler)
	router.GET("/health", handlers.HealthHandler)

	// Auth routes (no auth required)
	router.GET("/auth/login", handlers.LoginHandler)
	router.GET("/auth/callback", handlers.GoogleCallbackHandler)
	router.POST("/auth/logout", handlers.LogoutHandler)

	// Scheduler route, guarded by the shared cron secret
	router.POST("/jobs/dispatch-reminders", handlers.DispatchReminders(dispatcher, os.Getenv("CRON_SECRET")))

	// Protected routes (auth required)
	protected := router.Group("")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/auth/me", handlers.GetCurrentUser)
		protected.PATCH("/auth/me", handlers.UpdateMyProfile)

		protected.POST("/organizations", handlers.CreateOrganization)
		protected.POST("/organizations/:org_id/members", handlers.AddOrganizationMember)
		protected.POST("/organizations/:org_id/sms-templates", handlers.CreateSMSTemplate)
		protected.GET("/organizations/:org_id/sms-templates", handlers.ListSMSTemplates)

		protected.POST("/properties", handlers.CreateProperty)
		protected.GET("/properties", handlers.ListProperties)
		protected.POST("/properties/:property_id/units", handlers.CreateUnit)
		protected.GET("/properties/:property_id/units", handlers.ListUnits)

		protected.POST("/leases", handlers.CreateLease)
		protected.GET("/leases", handlers.ListLeases)

		protected.GET("/invoices", handlers.ListInvoices)
		protected.GET("/invoices/:invoice_id", handlers.GetInvoice)

		protected.POST("/reminders", handlers.CreateReminder)
		protected.GET("/reminders", handlers.ListReminders)

		protected.POST("/maintenance-requests", handlers.CreateMaintenanceRequest)
		protected.GET("/maintenance-requests", handlers.ListMaintenanceRequests)
		protected.PATCH("/maintenance-requests/:request_id/status", handlers.UpdateMaintenanceStatus)
	}

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("Server starting on port %s...\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
