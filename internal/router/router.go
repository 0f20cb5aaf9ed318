package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pwoszkowski/macrospy/internal/api"
	"github.com/pwoszkowski/macrospy/internal/middleware"
)

// Handlers bundles everything SetupRouter wires up.
type Handlers struct {
	Auth        *api.AuthHandler
	Composer    *api.ComposerHandler
	Meal        *api.MealHandler
	Favorite    *api.FavoriteHandler
	Goal        *api.GoalHandler
	Measurement *api.MeasurementHandler
	Profile     *api.ProfileHandler
	TDEE        *api.TDEEHandler
	Dashboard   *api.DashboardHandler
}

// SetupRouter configures the application routes. The rate limiter is optional
// and applied to the LLM-backed composer endpoints when present.
func SetupRouter(h Handlers, validator middleware.TokenValidator, allowedOrigins []string, analysisLimiter *middleware.RateLimiter) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Auth routes
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(validator))
	{
		sessions := protected.Group("/composer/sessions")
		{
			sessions.POST("", h.Composer.Open)
			sessions.GET("/:id", h.Composer.Get)
			sessions.POST("/:id/manual", h.Composer.Manual)
			sessions.PATCH("/:id/candidate", h.Composer.UpdateCandidate)
			sessions.POST("/:id/save", h.Composer.Save)
			sessions.DELETE("/:id", h.Composer.Close)

			analyze := sessions.Group("")
			if analysisLimiter != nil {
				analyze.Use(analysisLimiter.RateLimitMiddleware())
			}
			analyze.POST("/:id/analyze", h.Composer.Analyze)
			analyze.POST("/:id/refine", h.Composer.Refine)
		}

		meals := protected.Group("/meals")
		{
			meals.GET("", h.Meal.List)
			meals.GET("/:id", h.Meal.Get)
			meals.POST("", h.Meal.Create)
			meals.PUT("/:id", h.Meal.Update)
			meals.DELETE("/:id", h.Meal.Delete)
		}

		favorites := protected.Group("/favorites")
		{
			favorites.GET("", h.Favorite.List)
			favorites.POST("", h.Favorite.Create)
			favorites.DELETE("/:id", h.Favorite.Delete)
			favorites.POST("/:id/log", h.Favorite.Log)
		}

		goals := protected.Group("/goals")
		{
			goals.GET("", h.Goal.Get)
			goals.PUT("", h.Goal.Upsert)
			goals.DELETE("", h.Goal.Delete)
		}

		measurements := protected.Group("/measurements")
		{
			measurements.GET("", h.Measurement.List)
			measurements.POST("", h.Measurement.Create)
			measurements.DELETE("/:id", h.Measurement.Delete)
		}

		profile := protected.Group("/profile")
		{
			profile.GET("", h.Profile.Get)
			profile.PUT("", h.Profile.Update)
			profile.POST("/onboarding", h.Profile.Onboard)
		}

		protected.POST("/tdee/calculate", h.TDEE.Calculate)
		protected.GET("/dashboard", h.Dashboard.Get)
	}

	return router
}
