package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pwoszkowski/macrospy/internal/api"
	"github.com/pwoszkowski/macrospy/internal/composer"
	"github.com/pwoszkowski/macrospy/internal/database"
	"github.com/pwoszkowski/macrospy/internal/router"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// stubGateway answers every analysis or refinement with a canned result.
type stubGateway struct {
	result *service.AnalysisResult
	err    error
}

func (g *stubGateway) Analyze(ctx context.Context, text string, images []string) (*service.AnalysisResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	r := *g.result
	return &r, nil
}

func (g *stubGateway) Refine(ctx context.Context, prev json.RawMessage, prompt string) (*service.AnalysisResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	r := *g.result
	return &r, nil
}

type testAPI struct {
	router  *gin.Engine
	gateway *stubGateway
	db      *gorm.DB
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	gateway := &stubGateway{
		result: &service.AnalysisResult{
			Name:              "Chicken Bowl",
			Calories:          620,
			Protein:           42,
			Fat:               16,
			Carbs:             68,
			Fiber:             4,
			AssistantResponse: "Estimated from your description.",
			DietarySuggestion: "Looks balanced.",
			AIContext:         json.RawMessage(`{"messages":[{"role":"user","content":"x"}]}`),
		},
	}

	authService := service.NewAuthService(db, "test-secret-at-least-16-chars")
	mealService := service.NewMealService(db)
	tdeeService := service.NewTDEEService(nil)
	sessions := composer.NewManager(gateway, mealService, nil)
	t.Cleanup(sessions.Stop)

	handlers := router.Handlers{
		Auth:        api.NewAuthHandler(authService),
		Composer:    api.NewComposerHandler(sessions),
		Meal:        api.NewMealHandler(mealService),
		Favorite:    api.NewFavoriteHandler(service.NewFavoriteService(db)),
		Goal:        api.NewGoalHandler(service.NewGoalService(db)),
		Measurement: api.NewMeasurementHandler(service.NewMeasurementService(db)),
		Profile:     api.NewProfileHandler(service.NewProfileService(db), service.NewOnboardingService(db, tdeeService)),
		TDEE:        api.NewTDEEHandler(tdeeService),
		Dashboard:   api.NewDashboardHandler(mealService, service.NewGoalService(db)),
	}

	r := router.SetupRouter(handlers, authService, []string{"http://localhost:4321"}, nil)
	return &testAPI{router: r, gateway: gateway, db: db}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) registerUser(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "s3cret-password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	a := setupTestAPI(t)
	w := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	a := setupTestAPI(t)

	token := a.registerUser(t, "flow@example.com")
	assert.NotEmpty(t, token)

	t.Run("login", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "flow@example.com",
			"password": "s3cret-password",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "flow@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/meals", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestComposerFlowOverHTTP(t *testing.T) {
	a := setupTestAPI(t)
	token := a.registerUser(t, "composer@example.com")

	w := a.do(t, http.MethodPost, "/api/v1/composer/sessions", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sessionID := decode(t, w)["id"].(string)

	base := "/api/v1/composer/sessions/" + sessionID

	t.Run("analyze moves to review", func(t *testing.T) {
		w := a.do(t, http.MethodPost, base+"/analyze", token, map[string]interface{}{
			"text_prompt": "grilled chicken bowl",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		snap := decode(t, w)
		assert.Equal(t, "review", snap["status"])
		candidate := snap["candidate"].(map[string]interface{})
		assert.Equal(t, "Chicken Bowl", candidate["name"])
		assert.Len(t, snap["interaction_log"], 2)
	})

	t.Run("candidate edits apply", func(t *testing.T) {
		w := a.do(t, http.MethodPatch, base+"/candidate", token, map[string]interface{}{
			"calories": 580,
		})
		require.Equal(t, http.StatusOK, w.Code)
		candidate := decode(t, w)["candidate"].(map[string]interface{})
		assert.Equal(t, 580.0, candidate["calories"])
	})

	t.Run("save persists the meal", func(t *testing.T) {
		w := a.do(t, http.MethodPost, base+"/save", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		snap := decode(t, w)
		assert.Equal(t, "success", snap["status"])
		assert.NotEmpty(t, snap["saved_meal_id"])

		meals := a.do(t, http.MethodGet, "/api/v1/meals", token, nil)
		require.Equal(t, http.StatusOK, meals.Code)
		assert.Contains(t, meals.Body.String(), "Chicken Bowl")
	})
}

func TestComposerErrorsOverHTTP(t *testing.T) {
	a := setupTestAPI(t)
	token := a.registerUser(t, "errors@example.com")

	open := func(t *testing.T) string {
		w := a.do(t, http.MethodPost, "/api/v1/composer/sessions", token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		return decode(t, w)["id"].(string)
	}

	t.Run("empty analysis input", func(t *testing.T) {
		id := open(t)
		w := a.do(t, http.MethodPost, "/api/v1/composer/sessions/"+id+"/analyze", token, map[string]interface{}{
			"text_prompt": "  ",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation", decode(t, w)["kind"])
	})

	t.Run("refine without candidate", func(t *testing.T) {
		id := open(t)
		w := a.do(t, http.MethodPost, "/api/v1/composer/sessions/"+id+"/refine", token, map[string]interface{}{
			"correction_prompt": "make it bigger",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "state", decode(t, w)["kind"])
	})

	t.Run("provider outage reads as bad gateway", func(t *testing.T) {
		id := open(t)
		a.gateway.err = fmt.Errorf("connection refused")
		defer func() { a.gateway.err = nil }()

		w := a.do(t, http.MethodPost, "/api/v1/composer/sessions/"+id+"/analyze", token, map[string]interface{}{
			"text_prompt": "grilled chicken bowl",
		})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "provider", decode(t, w)["kind"])
	})

	t.Run("unknown session", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/composer/sessions/00000000-0000-0000-0000-000000000000", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("foreign session is invisible", func(t *testing.T) {
		id := open(t)
		otherToken := a.registerUser(t, "intruder@example.com")
		w := a.do(t, http.MethodGet, "/api/v1/composer/sessions/"+id, otherToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("close guards unsaved work", func(t *testing.T) {
		id := open(t)
		w := a.do(t, http.MethodPost, "/api/v1/composer/sessions/"+id+"/analyze", token, map[string]interface{}{
			"text_prompt": "grilled chicken bowl",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = a.do(t, http.MethodDelete, "/api/v1/composer/sessions/"+id, token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		w = a.do(t, http.MethodDelete, "/api/v1/composer/sessions/"+id+"?force=true", token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestMealEndpoints(t *testing.T) {
	a := setupTestAPI(t)
	token := a.registerUser(t, "meals@example.com")

	w := a.do(t, http.MethodPost, "/api/v1/meals", token, map[string]interface{}{
		"name":        "Oatmeal",
		"calories":    320,
		"protein":     12,
		"consumed_at": time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	mealID := decode(t, w)["id"].(string)

	t.Run("list by date", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/meals?date=2026-03-14", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		summary := resp["summary"].(map[string]interface{})
		assert.Equal(t, 1.0, summary["meal_count"])
		assert.Equal(t, 320.0, summary["calories"])
	})

	t.Run("bad date", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/meals?date=14-03-2026", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("date window follows the server zone", func(t *testing.T) {
		// Just past local midnight; a UTC-parsed date would put this in
		// the wrong day on non-UTC servers.
		w := a.do(t, http.MethodPost, "/api/v1/meals", token, map[string]interface{}{
			"name":        "Midnight snack",
			"calories":    150,
			"consumed_at": time.Date(2026, 4, 1, 0, 30, 0, 0, time.Local).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		list := a.do(t, http.MethodGet, "/api/v1/meals?date=2026-04-01", token, nil)
		require.Equal(t, http.StatusOK, list.Code)
		summary := decode(t, list)["summary"].(map[string]interface{})
		assert.Equal(t, 1.0, summary["meal_count"])
	})

	t.Run("update ignores non-editable fields", func(t *testing.T) {
		w := a.do(t, http.MethodPut, "/api/v1/meals/"+mealID, token, map[string]interface{}{
			"calories": 400,
			"user_id":  "11111111-1111-1111-1111-111111111111",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode(t, w)
		assert.Equal(t, 400.0, resp["calories"])
		assert.NotEqual(t, "11111111-1111-1111-1111-111111111111", resp["user_id"])
	})

	t.Run("update with no editable fields", func(t *testing.T) {
		w := a.do(t, http.MethodPut, "/api/v1/meals/"+mealID, token, map[string]interface{}{
			"user_id": "anything",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete then 404", func(t *testing.T) {
		w := a.do(t, http.MethodDelete, "/api/v1/meals/"+mealID, token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = a.do(t, http.MethodGet, "/api/v1/meals/"+mealID, token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFavoriteEndpoints(t *testing.T) {
	a := setupTestAPI(t)
	token := a.registerUser(t, "favorites@example.com")

	w := a.do(t, http.MethodPost, "/api/v1/favorites", token, map[string]interface{}{
		"name":     "Protein shake",
		"calories": 220,
		"protein":  30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	favID := decode(t, w)["id"].(string)

	t.Run("log creates a meal", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/favorites/"+favID+"/log", token, map[string]interface{}{
			"consumed_at": time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		meals := a.do(t, http.MethodGet, "/api/v1/meals?date=2026-03-14", token, nil)
		assert.Contains(t, meals.Body.String(), "Protein shake")
	})

	t.Run("list", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/favorites", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Protein shake")
	})

	t.Run("delete", func(t *testing.T) {
		w := a.do(t, http.MethodDelete, "/api/v1/favorites/"+favID, token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestOnboardingAndDashboard(t *testing.T) {
	a := setupTestAPI(t)
	token := a.registerUser(t, "onboard@example.com")

	w := a.do(t, http.MethodPost, "/api/v1/profile/onboarding", token, map[string]interface{}{
		"gender":         "male",
		"height_cm":      180,
		"birth_year":     1996,
		"activity_level": "moderately_active",
		"weight_kg":      75,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("profile exists afterwards", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/profile", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "moderately_active")
	})

	t.Run("goal was derived", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/goals", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("dashboard includes remaining targets", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Contains(t, resp, "remaining")
		assert.Contains(t, resp, "summary")
	})

	t.Run("implausible birth year rejected", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/profile/onboarding", token, map[string]interface{}{
			"gender":         "male",
			"height_cm":      180,
			"birth_year":     2090,
			"activity_level": "moderately_active",
			"weight_kg":      75,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTDEEEndpoint(t *testing.T) {
	a := setupTestAPI(t)
	token := a.registerUser(t, "tdee@example.com")

	w := a.do(t, http.MethodPost, "/api/v1/tdee/calculate", token, map[string]interface{}{
		"gender":         "male",
		"weight_kg":      75,
		"height_cm":      180,
		"age":            30,
		"activity_level": "moderately_active",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	assert.InDelta(t, 1730.0, resp["bmr"].(float64), 0.01)
	assert.InDelta(t, 2681.5, resp["tdee"].(float64), 0.01)
	targets := resp["suggested_targets"].(map[string]interface{})
	assert.Equal(t, 2682.0, targets["calories"])

	t.Run("invalid gender rejected by binding", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/tdee/calculate", token, map[string]interface{}{
			"gender":         "other",
			"weight_kg":      75,
			"height_cm":      180,
			"age":            30,
			"activity_level": "moderately_active",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
