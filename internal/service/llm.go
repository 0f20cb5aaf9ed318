package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pwoszkowski/macrospy/config"
)

const (
	// Input limits for analysis and refinement prompts.
	MinPromptLen     = 2
	MaxPromptLen     = 2000
	MaxRefinementLen = 1000
	MaxImages        = 5

	analysisCacheTTL = time.Hour
)

const analysisSystemPrompt = `You are a nutritionist analyzing meals from descriptions and photos. Respond only with JSON in this structure:
{
    "name": "Short meal name",
    "calories": 520,
    "protein": 32,
    "fat": 18,
    "carbs": 55,
    "fiber": 6,
    "assistant_response": "One or two conversational sentences explaining your estimate",
    "dietary_suggestion": "One short dietary tip related to this meal"
}

The calories, protein, fat, carbs and fiber fields must be numbers (kcal and grams), not strings.
When the user corrects you, re-estimate the whole meal and return the full structure again.`

const (
	fallbackAssistantResponse = "Here is my nutritional estimate for this meal."
	fallbackDietarySuggestion = "No specific dietary notes for this meal."
)

// AnalysisResult is the validated, normalized output of one analysis or
// refinement turn.
type AnalysisResult struct {
	Name              string          `json:"name"`
	Calories          float64         `json:"calories"`
	Protein           float64         `json:"protein"`
	Fat               float64         `json:"fat"`
	Carbs             float64         `json:"carbs"`
	Fiber             float64         `json:"fiber"`
	AssistantResponse string          `json:"assistant_response"`
	DietarySuggestion string          `json:"dietary_suggestion"`
	AIContext         json.RawMessage `json:"ai_context"`
}

// MacroTargets is a suggested daily macro distribution.
type MacroTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Fiber    float64 `json:"fiber"`
}

// LLMService talks to a chat-completions provider and turns its replies into
// validated nutrition records. It owns the ai_context token: callers round-trip
// it between Analyze and Refine without looking inside.
type LLMService struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
	redis  *redis.Client
}

// NewLLMService creates a new LLMService instance. The Redis client is
// optional; without it analysis responses are simply not cached.
func NewLLMService(cfg *config.Config, redisClient *redis.Client) (*LLMService, error) {
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY or LLM_API_KEY_FILE must be set")
	}

	return &LLMService{
		apiKey: cfg.LLMAPIKey,
		apiURL: cfg.LLMAPIURL,
		model:  cfg.LLMModel,
		client: &http.Client{Timeout: 60 * time.Second},
		redis:  redisClient,
	}, nil
}

// Message represents a message in the chat. Content is either a plain string
// or a list of content parts when images are attached.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Request represents a request to the chat-completions API
type Request struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

// aiContext is the opaque refinement token handed to callers. It carries the
// conversation so a later Refine call can continue where the analysis left off.
type aiContext struct {
	Messages []Message `json:"messages"`
}

// Analyze sends a meal description and optional photos to the provider and
// returns a validated nutrition record.
func (s *LLMService) Analyze(ctx context.Context, textPrompt string, images []string) (*AnalysisResult, error) {
	trimmed := strings.TrimSpace(textPrompt)
	if len(trimmed) < MinPromptLen && len(images) == 0 {
		return nil, fmt.Errorf("%w: describe the meal or attach a photo", ErrInvalidInput)
	}
	if len(trimmed) > MaxPromptLen {
		return nil, fmt.Errorf("%w: description must be at most %d characters", ErrInvalidInput, MaxPromptLen)
	}
	if len(images) > MaxImages {
		return nil, fmt.Errorf("%w: at most %d images per analysis", ErrInvalidInput, MaxImages)
	}

	cacheKey := ""
	if len(images) == 0 {
		cacheKey = "llm:analysis:" + hashPrompt(trimmed)
		if cached := s.cacheGet(ctx, cacheKey); cached != nil {
			return cached, nil
		}
	}

	userMsg := Message{Role: "user", Content: trimmed}
	if len(images) > 0 {
		parts := []contentPart{{Type: "text", Text: trimmed}}
		for _, img := range images {
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: "data:image/jpeg;base64," + img},
			})
		}
		userMsg.Content = parts
	}

	messages := []Message{
		{Role: "system", Content: analysisSystemPrompt},
		userMsg,
	}

	content, err := s.chatComplete(ctx, messages)
	if err != nil {
		return nil, err
	}

	result, err := parseAnalysis(content)
	if err != nil {
		return nil, err
	}
	result.AIContext = buildContext(messages, content)

	if cacheKey != "" {
		s.cacheSet(ctx, cacheKey, result)
	}
	return result, nil
}

// Refine re-invokes the provider with the prior conversation plus a
// natural-language correction, and returns a fresh validated record.
func (s *LLMService) Refine(ctx context.Context, previousContext json.RawMessage, correctionPrompt string) (*AnalysisResult, error) {
	trimmed := strings.TrimSpace(correctionPrompt)
	if len(trimmed) < MinPromptLen {
		return nil, fmt.Errorf("%w: correction must be at least %d characters", ErrInvalidInput, MinPromptLen)
	}
	if len(trimmed) > MaxRefinementLen {
		return nil, fmt.Errorf("%w: correction must be at most %d characters", ErrInvalidInput, MaxRefinementLen)
	}

	var prev aiContext
	if err := json.Unmarshal(previousContext, &prev); err != nil || len(prev.Messages) == 0 {
		return nil, fmt.Errorf("%w: unusable analysis context", ErrInvalidInput)
	}

	messages := append(prev.Messages, Message{Role: "user", Content: trimmed})

	content, err := s.chatComplete(ctx, messages)
	if err != nil {
		return nil, err
	}

	result, err := parseAnalysis(content)
	if err != nil {
		return nil, err
	}
	result.AIContext = buildContext(messages, content)
	return result, nil
}

// SuggestMacroTargets asks the provider for a daily macro distribution for the
// given TDEE. Callers must be prepared to fall back when this errors.
func (s *LLMService) SuggestMacroTargets(ctx context.Context, tdee, weightKg float64) (*MacroTargets, error) {
	messages := []Message{
		{
			Role: "system",
			Content: `You are a nutrition expert. Respond only with JSON like {"calories":0,"protein":0,"fat":0,"carbs":0,"fiber":0}.
Protein should be 1.6-2.2 g per kg of body weight, fat 20-35% of calories, carbs the remainder, fiber 25-35 g.`,
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Suggest daily macro targets for a person with a TDEE of %.0f kcal weighing %.1f kg.", tdee, weightKg),
		},
	}

	content, err := s.chatComplete(ctx, messages)
	if err != nil {
		return nil, err
	}

	var targets MacroTargets
	if err := json.Unmarshal([]byte(content), &targets); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAIResponse, err)
	}
	if targets.Calories <= 0 || targets.Protein <= 0 || targets.Fat <= 0 || targets.Carbs <= 0 {
		return nil, fmt.Errorf("%w: incomplete macro targets", ErrMalformedAIResponse)
	}
	return &targets, nil
}

// chatComplete performs one round-trip to the provider and returns the raw
// content of the first choice.
func (s *LLMService) chatComplete(ctx context.Context, messages []Message) (string, error) {
	reqBody := Request{
		Model:          s.model,
		Messages:       messages,
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.2,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("LLM request failed with status %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("LLM request failed with status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedAIResponse, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrMalformedAIResponse)
	}

	return result.Choices[0].Message.Content, nil
}

// parseAnalysis validates the provider's JSON and normalizes it so a
// partially-invalid record never reaches the caller.
func parseAnalysis(content string) (*AnalysisResult, error) {
	var raw struct {
		Name              string   `json:"name"`
		Calories          *float64 `json:"calories"`
		Protein           float64  `json:"protein"`
		Fat               float64  `json:"fat"`
		Carbs             float64  `json:"carbs"`
		Fiber             float64  `json:"fiber"`
		AssistantResponse string   `json:"assistant_response"`
		DietarySuggestion string   `json:"dietary_suggestion"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAIResponse, err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, fmt.Errorf("%w: missing meal name", ErrMalformedAIResponse)
	}
	if raw.Calories == nil {
		return nil, fmt.Errorf("%w: missing calories", ErrMalformedAIResponse)
	}

	result := &AnalysisResult{
		Name:              strings.TrimSpace(raw.Name),
		Calories:          clampNonNegative(*raw.Calories),
		Protein:           clampNonNegative(raw.Protein),
		Fat:               clampNonNegative(raw.Fat),
		Carbs:             clampNonNegative(raw.Carbs),
		Fiber:             clampNonNegative(raw.Fiber),
		AssistantResponse: raw.AssistantResponse,
		DietarySuggestion: raw.DietarySuggestion,
	}
	if result.AssistantResponse == "" {
		result.AssistantResponse = fallbackAssistantResponse
	}
	if result.DietarySuggestion == "" {
		result.DietarySuggestion = fallbackDietarySuggestion
	}
	return result, nil
}

// buildContext packs the conversation (including the provider's latest reply)
// into the opaque token callers pass back on the next refinement.
func buildContext(messages []Message, assistantContent string) json.RawMessage {
	full := append(append([]Message{}, messages...), Message{Role: "assistant", Content: assistantContent})
	data, err := json.Marshal(aiContext{Messages: full})
	if err != nil {
		return nil
	}
	return data
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(prompt)))
	return hex.EncodeToString(sum[:])
}

func (s *LLMService) cacheGet(ctx context.Context, key string) *AnalysisResult {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *LLMService) cacheSet(ctx context.Context, key string, result *AnalysisResult) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, analysisCacheTTL).Err(); err != nil {
		log.Printf("failed to cache analysis result: %v", err)
	}
}
