package service

import (
	"context"
	"log"
	"math"
)

// activityMultipliers maps activity level strings to their TDEE multiplier.
// Unrecognized levels fall back to sedentary.
var activityMultipliers = map[string]float64{
	"sedentary":         1.2,
	"lightly_active":    1.375,
	"moderately_active": 1.55,
	"very_active":       1.725,
	"extremely_active":  1.9,
}

const defaultActivityMultiplier = 1.2

// TDEERequest carries the profile inputs of a TDEE calculation.
type TDEERequest struct {
	Gender        string  `json:"gender" binding:"required,oneof=male female"`
	WeightKg      float64 `json:"weight_kg" binding:"required,gt=0"`
	HeightCm      float64 `json:"height_cm" binding:"required,gt=0"`
	Age           int     `json:"age" binding:"required,gt=0"`
	ActivityLevel string  `json:"activity_level" binding:"required"`
}

// TDEEResult is the calculation outcome plus suggested daily targets.
type TDEEResult struct {
	BMR              float64      `json:"bmr"`
	TDEE             float64      `json:"tdee"`
	SuggestedTargets MacroTargets `json:"suggested_targets"`
}

// CalculateBMR computes the basal metabolic rate via Mifflin-St Jeor.
func CalculateBMR(gender string, weightKg, heightCm float64, age int) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if gender == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}
	return bmr
}

// CalculateTDEE scales a BMR by the activity multiplier for the given level.
func CalculateTDEE(bmr float64, activityLevel string) float64 {
	mult, ok := activityMultipliers[activityLevel]
	if !ok {
		mult = defaultActivityMultiplier
	}
	return bmr * mult
}

// FallbackMacroTargets is the deterministic macro split used whenever the
// provider suggestion is unavailable: 30% of calories as protein, 25% as fat,
// 45% as carbs, and a flat 30 g of fiber.
func FallbackMacroTargets(tdee float64) MacroTargets {
	return MacroTargets{
		Calories: math.Round(tdee),
		Protein:  math.Round(tdee * 0.30 / 4),
		Fat:      math.Round(tdee * 0.25 / 9),
		Carbs:    math.Round(tdee * 0.45 / 4),
		Fiber:    30,
	}
}

// MacroSuggester produces a macro distribution for a TDEE. Implemented by
// LLMService; faked in tests.
type MacroSuggester interface {
	SuggestMacroTargets(ctx context.Context, tdee, weightKg float64) (*MacroTargets, error)
}

// TDEEService chains BMR, TDEE and macro suggestion. It never fails: when the
// suggester is missing or errors, the fixed-percentage split is used.
type TDEEService struct {
	suggester MacroSuggester
}

func NewTDEEService(suggester MacroSuggester) *TDEEService {
	return &TDEEService{suggester: suggester}
}

// Calculate runs the full chain for one request.
func (s *TDEEService) Calculate(ctx context.Context, req TDEERequest) TDEEResult {
	bmr := CalculateBMR(req.Gender, req.WeightKg, req.HeightCm, req.Age)
	tdee := CalculateTDEE(bmr, req.ActivityLevel)

	result := TDEEResult{
		BMR:              bmr,
		TDEE:             tdee,
		SuggestedTargets: FallbackMacroTargets(tdee),
	}

	if s.suggester != nil {
		targets, err := s.suggester.SuggestMacroTargets(ctx, tdee, req.WeightKg)
		if err != nil {
			log.Printf("macro suggestion unavailable, using fallback split: %v", err)
		} else {
			result.SuggestedTargets = *targets
		}
	}

	return result
}
