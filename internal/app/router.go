package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"rideshare/internal/handler"
	"rideshare/internal/hub"
	"rideshare/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	CaptainHandler *handler.CaptainHandler
	UserHandler    *handler.UserHandler
	MapsHandler    *handler.MapsHandler
	Hub            *hub.Hub
	TokenVerifier  middleware.TokenVerifier
	TokenBlacklist middleware.TokenBlacklist
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	authUser := middleware.AuthUser(deps.TokenVerifier, deps.TokenBlacklist)
	authCaptain := middleware.AuthCaptain(deps.TokenVerifier, deps.TokenBlacklist)
	authAny := middleware.AuthAny(deps.TokenVerifier, deps.TokenBlacklist)

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Realtime channel.
	router.GET("/ws", func(c *gin.Context) {
		deps.Hub.ServeWS(c.Writer, c.Request)
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// User routes.
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.POST("/login", deps.UserHandler.Login)
			users.GET("/logout", authUser, deps.UserHandler.Logout)
			users.GET("/profile", authUser, deps.UserHandler.Profile)
		}

		// Captain routes.
		captains := v1.Group("/captains")
		{
			captains.POST("/register", deps.CaptainHandler.Register)
			captains.POST("/login", deps.CaptainHandler.Login)
			captains.GET("/logout", authCaptain, deps.CaptainHandler.Logout)
			captains.GET("/profile", authCaptain, deps.CaptainHandler.Profile)
			captains.PATCH("/status", authCaptain, deps.CaptainHandler.UpdateStatus)
			captains.POST("/location", authCaptain, deps.CaptainHandler.UpdateLocation)
			captains.GET("/stats", authCaptain, deps.CaptainHandler.GetStats)
			captains.GET("/nearby", authUser, deps.CaptainHandler.GetNearby)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", authUser, deps.RideHandler.CreateRide)
			rides.POST("/fare", authUser, deps.RideHandler.GetFare)
			rides.GET("/pending", authCaptain, deps.RideHandler.GetPendingRides)
			rides.GET("/history", authCaptain, deps.RideHandler.GetCaptainHistory)
			rides.GET("/:id", authAny, deps.RideHandler.GetRide)
			rides.POST("/:id/confirm", authCaptain, deps.RideHandler.ConfirmRide)
			rides.POST("/:id/start", authCaptain, deps.RideHandler.StartRide)
			rides.POST("/:id/complete", authCaptain, deps.RideHandler.CompleteRide)
			rides.POST("/:id/rate", authUser, deps.RideHandler.RateRide)
			rides.POST("/:id/cancel", authAny, deps.RideHandler.CancelRide)
			rides.POST("/:id/arrival", authCaptain, deps.RideHandler.UpdateArrivalTime)
		}

		// Maps routes.
		mapsGroup := v1.Group("/maps", authAny)
		{
			mapsGroup.GET("/coordinates", deps.MapsHandler.Geocode)
			mapsGroup.GET("/address", deps.MapsHandler.ReverseGeocode)
			mapsGroup.GET("/places", deps.MapsHandler.SearchPlaces)
		}
	}

	return router
}
