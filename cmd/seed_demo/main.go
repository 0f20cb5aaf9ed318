package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/pwoszkowski/macrospy/config"
	"github.com/pwoszkowski/macrospy/internal/database"
	"github.com/pwoszkowski/macrospy/internal/models"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// Seeds a demo account with a profile, goal, a few measurements, and two days
// of meals for local development.
func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx := context.Background()
	authService := service.NewAuthService(db, cfg.JWTSecret)

	if _, err := authService.Register("Demo User", "demo@macrospy.local", "demo-password-123"); err != nil {
		log.Fatalf("Failed to create demo user (already seeded?): %v", err)
	}

	var user models.User
	if err := db.Where("email = ?", "demo@macrospy.local").First(&user).Error; err != nil {
		log.Fatalf("Failed to look up demo user: %v", err)
	}

	tdeeService := service.NewTDEEService(nil)
	onboarding := service.NewOnboardingService(db, tdeeService)
	if _, err := onboarding.Complete(ctx, user.ID, service.OnboardingRequest{
		Gender:        "male",
		HeightCm:      180,
		BirthYear:     time.Now().Year() - 30,
		ActivityLevel: "moderately_active",
		WeightKg:      75,
	}); err != nil {
		log.Fatalf("Failed to onboard demo user: %v", err)
	}

	mealService := service.NewMealService(db)
	meals := []models.Meal{
		{Name: "Oatmeal with banana", Calories: 390, Protein: 12, Fat: 7, Carbs: 70, Fiber: 8},
		{Name: "Chicken rice bowl", Calories: 640, Protein: 45, Fat: 16, Carbs: 74, Fiber: 5},
		{Name: "Greek yogurt with berries", Calories: 210, Protein: 18, Fat: 4, Carbs: 26, Fiber: 3},
		{Name: "Salmon with potatoes", Calories: 580, Protein: 38, Fat: 24, Carbs: 48, Fiber: 6},
	}
	for i := range meals {
		meals[i].UserID = user.ID
		meals[i].ConsumedAt = time.Now().Add(-time.Duration(i*7) * time.Hour)
		if _, err := mealService.CreateMeal(ctx, &meals[i]); err != nil {
			log.Fatalf("Failed to seed meal %q: %v", meals[i].Name, err)
		}
	}

	favoriteService := service.NewFavoriteService(db)
	if _, err := favoriteService.CreateFavorite(ctx, &models.FavoriteMeal{
		UserID:   user.ID,
		Name:     "Chicken rice bowl",
		Calories: 640,
		Protein:  45,
		Fat:      16,
		Carbs:    74,
		Fiber:    5,
	}); err != nil {
		log.Fatalf("Failed to seed favorite: %v", err)
	}

	log.Printf("Seeded demo user %s", user.Email)
}
