package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hiv-clinic-server/internal/config"
	"hiv-clinic-server/internal/handlers"
	"hiv-clinic-server/internal/middleware"
	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/repository"
	"hiv-clinic-server/internal/services"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	// Repositories
	appointmentRepo := repository.NewAppointmentRepository(db)
	planRepo := repository.NewTreatmentPlanRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Services
	appointmentService := services.NewAppointmentService(appointmentRepo, planRepo)
	planService := services.NewTreatmentPlanService(planRepo, appointmentRepo)
	scheduleService := services.NewMedicationScheduleService(scheduleRepo)
	paymentService := services.NewPaymentService(paymentRepo, services.NewMoMoClient(cfg.MoMo))

	// Handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService, planService)
	planHandler := handlers.NewTreatmentPlanHandler(planService)
	scheduleHandler := handlers.NewMedicationScheduleHandler(scheduleService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Payment provider callbacks; the provider is not a portal user
		public.GET("/payments/momo/return", paymentHandler.MoMoReturn)
		public.POST("/payments/momo/ipn", paymentHandler.MoMoIPN)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Doctor directory, used for booking - accessible by all authenticated users
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Patient list for clinic personnel
			userRoutes.GET("/doctor-patients", userHandler.GetDoctorPatients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin)) // Only Admins
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Appointment routes: the encounter state machine
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleStaff, models.RoleAdmin), appointmentHandler.Book)
			appointmentRoutes.GET("", appointmentHandler.GetForUser) // Logic inside handler differentiates by role
			appointmentRoutes.GET("/:id", appointmentHandler.GetByID)

			// Cancellation is open to every role; the handler checks the
			// actor is a party to the appointment
			appointmentRoutes.PUT("/:id/cancel", appointmentHandler.Cancel)

			// Doctor-driven transitions
			doctorRoutes := appointmentRoutes.Group("/doctor")
			doctorRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
			{
				doctorRoutes.PUT("/:id/under-review", appointmentHandler.PutUnderReview)
				doctorRoutes.POST("/:id/treatment-plan", appointmentHandler.AttachTreatmentPlan)
				doctorRoutes.PUT("/:id/complete", appointmentHandler.Complete)
			}
		}

		// Staff desk routes
		staffRoutes := private.Group("/staff")
		staffRoutes.Use(middleware.RoleAuthMiddleware(models.RoleStaff, models.RoleManager, models.RoleAdmin))
		{
			staffRoutes.GET("/appointments/today", appointmentHandler.Today)
			staffRoutes.POST("/appointments/:id/checkin", appointmentHandler.CheckIn)
		}

		// Treatment plan routes
		planRoutes := private.Group("/doctor/treatment-plans")
		planRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin))
		{
			planRoutes.POST("", planHandler.Create)
			planRoutes.GET("/:id", planHandler.GetByID)
			planRoutes.PATCH("/:id/status", planHandler.UpdateStatus)
			planRoutes.DELETE("/:id", planHandler.Delete)
			planRoutes.POST("/:id/medications/batch", planHandler.AddMedications)
			planRoutes.GET("/patients/:patientId/treatment-plans", planHandler.ListForPatient)
		}

		// Patient view of their own plans
		private.GET("/treatment-plans/patients/:patientId", planHandler.ListForPatient)

		// Medication schedule routes
		scheduleRoutes := private.Group("/medication-schedules")
		{
			scheduleRoutes.GET("/medication/:medicationId", scheduleHandler.ListForMedication)
			scheduleRoutes.POST("/medication/:medicationId/default", middleware.RoleAuthMiddleware(models.RoleDoctor), scheduleHandler.CreateDefaults)
			scheduleRoutes.POST("/medication/:medicationId/custom", middleware.RoleAuthMiddleware(models.RoleDoctor), scheduleHandler.CreateCustom)
			scheduleRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), scheduleHandler.Update)
			scheduleRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), scheduleHandler.Delete)
			scheduleRoutes.PUT("/:id/taken", scheduleHandler.MarkTaken)
		}

		// Payment routes
		paymentRoutes := private.Group("/payments")
		{
			paymentRoutes.GET("/my-transactions", paymentHandler.MyTransactions)
			paymentRoutes.GET("/appointment/:appointmentId", paymentHandler.ByAppointment)
			paymentRoutes.POST("/qr", paymentHandler.CreateQrPayment)

			staffPayments := paymentRoutes.Group("/staff")
			staffPayments.Use(middleware.RoleAuthMiddleware(models.RoleStaff, models.RoleManager, models.RoleAdmin))
			{
				staffPayments.POST("", paymentHandler.CreateTransaction)
				staffPayments.POST("/confirm", paymentHandler.StaffConfirm)
				staffPayments.GET("/needing-confirmation", paymentHandler.NeedingConfirmation)
			}
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
