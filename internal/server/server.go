package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pwoszkowski/macrospy/config"
	"github.com/pwoszkowski/macrospy/internal/api"
	"github.com/pwoszkowski/macrospy/internal/composer"
	"github.com/pwoszkowski/macrospy/internal/middleware"
	"github.com/pwoszkowski/macrospy/internal/router"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// Server owns the HTTP server and the composer session manager.
type Server struct {
	http     *http.Server
	sessions *composer.Manager
}

// New wires services, handlers, and routes into a runnable server. The Redis
// client is optional; without it rate limiting and analysis caching are off.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	authService := service.NewAuthService(db, cfg.JWTSecret)
	mealService := service.NewMealService(db)
	favoriteService := service.NewFavoriteService(db)
	goalService := service.NewGoalService(db)
	measurementService := service.NewMeasurementService(db)
	profileService := service.NewProfileService(db)

	llmService, err := service.NewLLMService(cfg, redisClient)
	if err != nil {
		// The server still runs without a provider key; analysis endpoints
		// report the provider as unavailable.
		log.Printf("LLM service disabled: %v", err)
		llmService = nil
	}

	var suggester service.MacroSuggester
	var gateway composer.Gateway
	if llmService != nil {
		suggester = llmService
		gateway = llmService
	} else {
		gateway = unavailableGateway{}
	}
	tdeeService := service.NewTDEEService(suggester)
	onboardingService := service.NewOnboardingService(db, tdeeService)

	imageService, err := service.NewImageService(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize photo storage: %w", err)
	}
	var photos service.PhotoStore
	if imageService != nil {
		photos = imageService
	}

	sessions := composer.NewManager(gateway, mealService, photos)

	var analysisLimiter *middleware.RateLimiter
	if redisClient != nil {
		analysisLimiter = middleware.NewAnalysisRateLimiter(redisClient)
	}

	handlers := router.Handlers{
		Auth:        api.NewAuthHandler(authService),
		Composer:    api.NewComposerHandler(sessions),
		Meal:        api.NewMealHandler(mealService),
		Favorite:    api.NewFavoriteHandler(favoriteService),
		Goal:        api.NewGoalHandler(goalService),
		Measurement: api.NewMeasurementHandler(measurementService),
		Profile:     api.NewProfileHandler(profileService, onboardingService),
		TDEE:        api.NewTDEEHandler(tdeeService),
		Dashboard:   api.NewDashboardHandler(mealService, goalService),
	}

	engine := router.SetupRouter(handlers, authService, cfg.AllowedOrigins, analysisLimiter)

	return &Server{
		http: &http.Server{
			Addr:    cfg.ServerHost + ":" + cfg.ServerPort,
			Handler: engine,
		},
		sessions: sessions,
	}, nil
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Printf("Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the HTTP server and tears down live composer sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Stop()
	return s.http.Shutdown(ctx)
}

// unavailableGateway stands in when no provider key is configured.
type unavailableGateway struct{}

func (unavailableGateway) Analyze(ctx context.Context, textPrompt string, images []string) (*service.AnalysisResult, error) {
	return nil, fmt.Errorf("analysis provider not configured")
}

func (unavailableGateway) Refine(ctx context.Context, previousContext json.RawMessage, correctionPrompt string) (*service.AnalysisResult, error) {
	return nil, fmt.Errorf("analysis provider not configured")
}
