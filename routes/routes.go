package routes

import (
	"time"

	"soothe/handlers"
	"soothe/middleware"
	"soothe/models"
	"soothe/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers the health-check and metrics endpoints.
func RegisterHealthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health)
	if hb.Metrics != nil {
		r.GET("/metrics", hb.Metrics)
	}
}

// RegisterCatalogRoutes registers the public service catalog.
func RegisterCatalogRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	services := api.Group("/services")
	{
		services.GET("", hb.ListServices)
		services.POST("/quote", hb.QuoteService)
	}
}

// RegisterBookingRoutes registers the customer-facing booking endpoints.
func RegisterBookingRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	bookingGroup := api.Group("/bookings")
	{
		bookingGroup.POST("", middleware.JWTAuthMiddleware(models.RoleCustomer), hb.CreateBooking)
		bookingGroup.POST("/:id/cancel", middleware.JWTAuthMiddleware(models.RoleCustomer), hb.CancelBooking)

		// Either party (or an admin) may follow a request.
		shared := bookingGroup.Group("")
		shared.Use(middleware.JWTAuthMiddleware())
		shared.GET("/:id", hb.GetBooking)
		shared.GET("/:id/remaining", hb.GetRemaining)
		shared.GET("/:id/events", hb.StreamEvents)
	}

	api.PUT("/devices", middleware.JWTAuthMiddleware(models.RoleCustomer, models.RoleTherapist), hb.RegisterDevice)
	api.PUT("/payments/profile", middleware.JWTAuthMiddleware(models.RoleCustomer), hb.SavePayment)
}

// RegisterTherapistRoutes registers the therapist inbox.
func RegisterTherapistRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	therapistGroup := api.Group("/therapist/requests")
	{
		therapistGroup.Use(middleware.JWTAuthMiddleware(models.RoleTherapist))
		therapistGroup.GET("", hb.ListTherapistRequests)
		therapistGroup.POST("/:id/accept", hb.AcceptRequest)
		therapistGroup.POST("/:id/decline", hb.DeclineRequest)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	adminGroup := api.Group("/admin")
	{
		adminGroup.Use(middleware.JWTAuthAdminMiddleware(hb.AdminTokenHash))
		adminGroup.GET("/bookings", hb.AdminHandler.ListBookingsHandler)
		adminGroup.GET("/reports/revenue", hb.AdminHandler.RevenueReportHandler)
	}
}

// RegisterPaymentRoutes registers processor callbacks; they authenticate by signature.
func RegisterPaymentRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	api.POST("/payments/stripe/webhook", hb.StripeWebhook)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(utils.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoutes(r, hb)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(hb.RatePerMinute))
	RegisterCatalogRoutes(api, hb)
	RegisterBookingRoutes(api, hb)
	RegisterTherapistRoutes(api, hb)
	RegisterAdminRoutes(api, hb)
	RegisterPaymentRoutes(api, hb)
}
