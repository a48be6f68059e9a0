package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/internal/config"
	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/handlers"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/internal/services"
	"github.com/careride/facility-backend/pkg/geocode"
	"github.com/careride/facility-backend/pkg/jwt"
	"github.com/careride/facility-backend/pkg/mailer"
	"github.com/careride/facility-backend/pkg/stripe"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting CareRide Facility Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// Repositories on the DB interface
	tripRepo := database.NewTripRepository(db)
	facilityRepo := database.NewFacilityRepository(db)
	profileRepo := database.NewProfileRepository(db)
	managedClientRepo := database.NewManagedClientRepository(db)

	// Transactional repositories need the underlying *sqlx.DB
	sqlxDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}
	invoiceRepo := database.NewInvoiceRepository(sqlxDB.DB)
	paymentMethodRepo := database.NewPaymentMethodRepository(sqlxDB.DB)
	paymentAuditRepo := database.NewPaymentAuditRepository(sqlxDB.DB, logger)

	// Vendor gateways
	stripeClient := stripe.NewClient(stripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		BaseURL:       cfg.Stripe.BaseURL,
		Currency:      cfg.Stripe.Currency,
	})
	geocodeClient := geocode.NewClient(geocode.Config{
		BaseURL: cfg.Geocode.BaseURL,
		APIKey:  cfg.Geocode.APIKey,
	})
	mailClient := mailer.NewClient(mailer.Config{
		BaseURL:     cfg.Mailer.BaseURL,
		APIKey:      cfg.Mailer.APIKey,
		FromAddress: cfg.Mailer.FromAddress,
	})

	// Domain services
	nameResolver := services.NewNameResolver()
	billingService := services.NewBillingService(tripRepo, invoiceRepo, nameResolver, logger)
	paymentService := services.NewPaymentService(invoiceRepo, paymentAuditRepo, logger)
	notifyService := services.NewNotifyService(mailClient, cfg.Mailer.DispatchEmail, logger)

	// Handlers
	billingHandler := handlers.NewBillingHandler(billingService, paymentService, notifyService, facilityRepo, cfg.Billing.ResetTokenHash)
	tripHandler := handlers.NewTripHandler(tripRepo, profileRepo, managedClientRepo, notifyService, logger)
	managedClientHandler := handlers.NewManagedClientHandler(managedClientRepo, logger)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(paymentMethodRepo, facilityRepo, stripeClient, logger)
	stripeHandler := handlers.NewStripeHandler(billingService, paymentService, facilityRepo, stripeClient, logger)
	geocodeHandler := handlers.NewGeocodeHandler(geocodeClient, logger)
	facilityHandler := handlers.NewFacilityHandler(facilityRepo, logger)
	clientHandler := handlers.NewClientHandler(profileRepo, logger)

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")

	// Facility routes: authenticated staff scoped to their facility
	facility := v1.Group("/facility")
	facility.Use(middleware.AuthMiddleware(jwtService))
	facility.Use(middleware.RequireRole(models.RoleFacilityStaff, models.RoleAdmin))
	facility.Use(middleware.RequireFacility())
	{
		facility.GET("/profile", facilityHandler.GetFacility)
		facility.PUT("/billing-email", facilityHandler.UpdateBillingEmail)

		facility.GET("/trips-billing", billingHandler.GetTripsBilling)
		facility.POST("/billing/record-payment", billingHandler.RecordPayment)
		facility.POST("/billing/mark-paid", billingHandler.MarkPaid)
		facility.POST("/billing/mark-unpaid", billingHandler.MarkUnpaid)
		facility.POST("/billing/reset-payment-status", billingHandler.ResetPaymentStatus)
		facility.GET("/billing/audit", billingHandler.GetPaymentAudit)

		facility.POST("/trips", tripHandler.CreateTrip)
		facility.GET("/trips", tripHandler.ListTrips)
		facility.GET("/trips/:id", tripHandler.GetTrip)
		facility.PATCH("/trips/:id/status", tripHandler.UpdateTripStatus)
		facility.POST("/trips/:id/cancel", tripHandler.CancelTrip)

		facility.GET("/clients", clientHandler.ListClients)
		facility.PUT("/me", clientHandler.UpdateProfile)

		facility.POST("/managed-clients", managedClientHandler.CreateManagedClient)
		facility.GET("/managed-clients", managedClientHandler.ListManagedClients)
		facility.GET("/managed-clients/:id", managedClientHandler.GetManagedClient)
		facility.PUT("/managed-clients/:id", managedClientHandler.UpdateManagedClient)
		facility.DELETE("/managed-clients/:id", managedClientHandler.DeleteManagedClient)

		facility.GET("/payment-methods", paymentMethodHandler.ListPaymentMethods)
		facility.POST("/payment-methods", paymentMethodHandler.AddPaymentMethod)
		facility.PUT("/payment-methods/:id/default", paymentMethodHandler.SetDefaultPaymentMethod)
		facility.DELETE("/payment-methods/:id", paymentMethodHandler.RemovePaymentMethod)
	}

	// Stripe routes: the webhook is unauthenticated (signature-checked),
	// the rest require a facility session
	stripeGroup := v1.Group("/stripe")
	{
		stripeGroup.POST("/webhook", stripeHandler.Webhook)

		authed := stripeGroup.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService))
		authed.Use(middleware.RequireRole(models.RoleFacilityStaff, models.RoleAdmin))
		authed.Use(middleware.RequireFacility())
		{
			authed.POST("/payment-intent", stripeHandler.CreatePaymentIntent)
			authed.POST("/setup-intent", stripeHandler.CreateSetupIntent)
			authed.POST("/checkout-session", stripeHandler.CreateCheckoutSession)
			authed.POST("/ephemeral-key", stripeHandler.CreateEphemeralKey)
		}
	}

	// Geocode routes: authenticated, key stays server-side
	geocodeGroup := v1.Group("/geocode")
	geocodeGroup.Use(middleware.AuthMiddleware(jwtService))
	{
		geocodeGroup.GET("/forward", geocodeHandler.Forward)
	}

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID.String()
			fields["facility_id"] = userCtx.FacilityID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
