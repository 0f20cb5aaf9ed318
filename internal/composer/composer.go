// Package composer drives the multi-step meal composition workflow: analyze a
// free-text/photo description, let the user review and refine the AI's
// estimate, then persist the final record. One Session holds one candidate
// meal and its interaction transcript; sessions are transient and die with
// the client that opened them.
package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pwoszkowski/macrospy/internal/models"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// Status is the composer state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusRefining  Status = "refining"
	StatusReview    Status = "review"
	StatusSaving    Status = "saving"
	StatusSuccess   Status = "success"
)

var (
	ErrSessionClosed    = errors.New("session closed")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrNoCandidate      = errors.New("no candidate to refine")
	ErrUnsavedCandidate = errors.New("session has an unsaved candidate")
)

// Validation messages surfaced inline by Save.
const (
	msgNameRequired      = "meal name is required"
	msgNegativeMacros    = "macro values must be non-negative"
	msgInsufficientInput = "describe the meal or attach a photo"
)

// InteractionEntry is one turn of the analysis transcript. Entries are only
// ever appended; the first two represent the initial analysis.
type InteractionEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Candidate is the in-progress, unsaved nutrition record being edited.
type Candidate struct {
	Name              string          `json:"name"`
	Calories          float64         `json:"calories"`
	Protein           float64         `json:"protein"`
	Fat               float64         `json:"fat"`
	Carbs             float64         `json:"carbs"`
	Fiber             float64         `json:"fiber"`
	AISuggestion      string          `json:"ai_suggestion,omitempty"`
	AssistantResponse string          `json:"assistant_response,omitempty"`
	AIContext         json.RawMessage `json:"ai_context,omitempty"`
	OriginalPrompt    string          `json:"original_prompt"`
	IsImageAnalyzed   bool            `json:"is_image_analyzed"`
	ConsumedAt        time.Time       `json:"consumed_at"`

	// pending photos, uploaded at save time
	images []string
}

// CandidateUpdate is a partial in-place edit of the candidate during review.
type CandidateUpdate struct {
	Name       *string    `json:"name,omitempty"`
	Calories   *float64   `json:"calories,omitempty"`
	Protein    *float64   `json:"protein,omitempty"`
	Fat        *float64   `json:"fat,omitempty"`
	Carbs      *float64   `json:"carbs,omitempty"`
	Fiber      *float64   `json:"fiber,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Gateway is the analysis provider the session talks to.
type Gateway interface {
	Analyze(ctx context.Context, textPrompt string, images []string) (*service.AnalysisResult, error)
	Refine(ctx context.Context, previousContext json.RawMessage, correctionPrompt string) (*service.AnalysisResult, error)
}

// MealStore persists the finished candidate.
type MealStore interface {
	CreateMeal(ctx context.Context, meal *models.Meal) (*models.Meal, error)
}

// Session is one composition workflow. All mutations are serialized by the
// session mutex; gateway calls run outside it. Every async operation carries
// a sequence number taken under the lock, and its result is applied only if
// the sequence is still current and the session is still alive — a stale or
// post-teardown result is dropped without effect.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID

	gateway Gateway
	meals   MealStore
	photos  service.PhotoStore

	mu          sync.Mutex
	status      Status
	candidate   *Candidate
	log         []InteractionEntry
	lastError   string
	seq         uint64
	savedMealID *uuid.UUID
	createdAt   time.Time
	lastActive  time.Time
	resetDelay  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	ID          uuid.UUID          `json:"id"`
	Status      Status             `json:"status"`
	Candidate   *Candidate         `json:"candidate,omitempty"`
	Log         []InteractionEntry `json:"interaction_log"`
	LastError   string             `json:"last_error,omitempty"`
	SavedMealID *uuid.UUID         `json:"saved_meal_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func newSession(userID uuid.UUID, gateway Gateway, meals MealStore, photos service.PhotoStore, resetDelay time.Duration) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Session{
		ID:         uuid.New(),
		UserID:     userID,
		gateway:    gateway,
		meals:      meals,
		photos:     photos,
		status:     StatusIdle,
		createdAt:  now,
		lastActive: now,
		resetDelay: resetDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          s.ID,
		Status:      s.status,
		LastError:   s.lastError,
		SavedMealID: s.savedMealID,
		CreatedAt:   s.createdAt,
		Log:         append([]InteractionEntry(nil), s.log...),
	}
	if s.candidate != nil {
		c := *s.candidate
		snap.Candidate = &c
	}
	return snap
}

// Analyze submits text and/or photos to the gateway. On success the session
// moves to review with a fresh candidate and two transcript entries; on
// gateway failure it returns to idle with the candidate untouched.
func (s *Session) Analyze(ctx context.Context, text string, images []string) error {
	trimmed := strings.TrimSpace(text)

	s.mu.Lock()
	s.lastActive = time.Now()
	if s.status != StatusIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: analysis starts from idle, current status is %s", ErrInvalidState, s.status)
	}
	if len(trimmed) < service.MinPromptLen && len(images) == 0 {
		s.lastError = msgInsufficientInput
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, msgInsufficientInput)
	}
	if len(trimmed) > service.MaxPromptLen {
		s.lastError = fmt.Sprintf("description must be at most %d characters", service.MaxPromptLen)
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, s.lastError)
	}
	if len(images) > service.MaxImages {
		s.lastError = fmt.Sprintf("at most %d photos per analysis", service.MaxImages)
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, s.lastError)
	}

	s.status = StatusAnalyzing
	s.lastError = ""
	s.seq++
	seq := s.seq
	sessCtx := s.ctx
	s.mu.Unlock()

	result, err := s.gateway.Analyze(ctx, trimmed, images)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sessCtx.Err() != nil {
		return ErrSessionClosed
	}
	if seq != s.seq {
		log.Printf("composer session %s: dropping superseded analysis result", s.ID)
		return nil
	}
	if err != nil {
		s.status = StatusIdle
		s.lastError = userMessage(err)
		return err
	}

	now := time.Now()
	s.candidate = &Candidate{
		Name:              result.Name,
		Calories:          result.Calories,
		Protein:           result.Protein,
		Fat:               result.Fat,
		Carbs:             result.Carbs,
		Fiber:             result.Fiber,
		AISuggestion:      result.DietarySuggestion,
		AssistantResponse: result.AssistantResponse,
		AIContext:         result.AIContext,
		OriginalPrompt:    trimmed,
		IsImageAnalyzed:   len(images) > 0,
		ConsumedAt:        now,
		images:            images,
	}
	userContent := trimmed
	if userContent == "" {
		userContent = fmt.Sprintf("(%d photo(s) submitted)", len(images))
	}
	s.log = append(s.log,
		InteractionEntry{Role: "user", Content: userContent, Timestamp: now},
		InteractionEntry{Role: "assistant", Content: result.AssistantResponse, Timestamp: now},
	)
	s.status = StatusReview
	return nil
}

// SubmitManual builds a candidate locally without any network call and moves
// straight to review.
func (s *Session) SubmitManual(name string, consumedAt *time.Time) error {
	trimmed := strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	if s.status != StatusIdle {
		return fmt.Errorf("%w: manual entry starts from idle, current status is %s", ErrInvalidState, s.status)
	}
	if len(trimmed) < service.MinPromptLen {
		s.lastError = msgNameRequired
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, msgNameRequired)
	}

	when := time.Now()
	if consumedAt != nil {
		when = *consumedAt
	}
	s.candidate = &Candidate{
		Name:       trimmed,
		ConsumedAt: when,
	}
	s.lastError = ""
	s.status = StatusReview
	return nil
}

// Refine sends a natural-language correction for the current candidate. The
// user's turn is appended to the transcript before the gateway call; should
// the call fail, the candidate is left unchanged and the session returns to
// review. When refinements overlap, only the latest one's result is applied.
func (s *Session) Refine(ctx context.Context, prompt string) error {
	trimmed := strings.TrimSpace(prompt)

	s.mu.Lock()
	s.lastActive = time.Now()
	if s.candidate == nil {
		s.mu.Unlock()
		return ErrNoCandidate
	}
	if s.status != StatusReview && s.status != StatusRefining {
		s.mu.Unlock()
		return fmt.Errorf("%w: refinement requires review, current status is %s", ErrInvalidState, s.status)
	}
	if len(trimmed) < service.MinPromptLen {
		s.lastError = "correction is too short"
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, s.lastError)
	}
	if len(trimmed) > service.MaxRefinementLen {
		s.lastError = fmt.Sprintf("correction must be at most %d characters", service.MaxRefinementLen)
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, s.lastError)
	}

	// Optimistic append of the user's turn
	s.log = append(s.log, InteractionEntry{Role: "user", Content: trimmed, Timestamp: time.Now()})
	s.status = StatusRefining
	s.lastError = ""
	s.seq++
	seq := s.seq
	prevContext := append(json.RawMessage(nil), s.candidate.AIContext...)
	sessCtx := s.ctx
	s.mu.Unlock()

	result, err := s.gateway.Refine(ctx, prevContext, trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sessCtx.Err() != nil {
		return ErrSessionClosed
	}
	if seq != s.seq {
		log.Printf("composer session %s: dropping superseded refinement result", s.ID)
		return nil
	}
	if err != nil {
		s.status = StatusReview
		s.lastError = userMessage(err)
		return err
	}

	// Candidate is replaced; provenance fields and the consumption time
	// survive the swap.
	prev := s.candidate
	s.candidate = &Candidate{
		Name:              result.Name,
		Calories:          result.Calories,
		Protein:           result.Protein,
		Fat:               result.Fat,
		Carbs:             result.Carbs,
		Fiber:             result.Fiber,
		AISuggestion:      result.DietarySuggestion,
		AssistantResponse: result.AssistantResponse,
		AIContext:         result.AIContext,
		OriginalPrompt:    prev.OriginalPrompt,
		IsImageAnalyzed:   prev.IsImageAnalyzed,
		ConsumedAt:        prev.ConsumedAt,
		images:            prev.images,
	}
	s.log = append(s.log, InteractionEntry{Role: "assistant", Content: result.AssistantResponse, Timestamp: time.Now()})
	s.status = StatusReview
	return nil
}

// UpdateCandidate edits candidate fields in place during review.
func (s *Session) UpdateCandidate(update CandidateUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	if s.status != StatusReview || s.candidate == nil {
		return fmt.Errorf("%w: candidate edits require review, current status is %s", ErrInvalidState, s.status)
	}

	if update.Name != nil {
		s.candidate.Name = *update.Name
	}
	if update.Calories != nil {
		s.candidate.Calories = *update.Calories
	}
	if update.Protein != nil {
		s.candidate.Protein = *update.Protein
	}
	if update.Fat != nil {
		s.candidate.Fat = *update.Fat
	}
	if update.Carbs != nil {
		s.candidate.Carbs = *update.Carbs
	}
	if update.Fiber != nil {
		s.candidate.Fiber = *update.Fiber
	}
	if update.ConsumedAt != nil {
		s.candidate.ConsumedAt = *update.ConsumedAt
	}
	return nil
}

// Save validates the candidate locally, then persists it. A validation
// failure never reaches the network. A persistence failure returns the
// session to review with the candidate intact so the user can retry.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	s.lastActive = time.Now()
	if s.status != StatusReview || s.candidate == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: save requires review, current status is %s", ErrInvalidState, s.status)
	}
	if strings.TrimSpace(s.candidate.Name) == "" {
		s.lastError = msgNameRequired
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, msgNameRequired)
	}
	if s.candidate.Calories < 0 || s.candidate.Protein < 0 || s.candidate.Fat < 0 ||
		s.candidate.Carbs < 0 || s.candidate.Fiber < 0 {
		s.lastError = msgNegativeMacros
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, msgNegativeMacros)
	}

	s.status = StatusSaving
	s.lastError = ""
	s.seq++
	seq := s.seq
	candidate := *s.candidate
	sessCtx := s.ctx
	s.mu.Unlock()

	var photoKeys []string
	var err error
	if s.photos != nil && len(candidate.images) > 0 {
		photoKeys, err = s.photos.UploadMealPhotos(ctx, s.UserID, candidate.images)
	}

	var saved *models.Meal
	if err == nil {
		meal := &models.Meal{
			UserID:          s.UserID,
			Name:            strings.TrimSpace(candidate.Name),
			Calories:        candidate.Calories,
			Protein:         candidate.Protein,
			Fat:             candidate.Fat,
			Carbs:           candidate.Carbs,
			Fiber:           candidate.Fiber,
			AISuggestion:    candidate.AISuggestion,
			OriginalPrompt:  candidate.OriginalPrompt,
			IsImageAnalyzed: candidate.IsImageAnalyzed,
			AIContext:       models.JSONBlob(candidate.AIContext),
			PhotoKeys:       photoKeys,
			ConsumedAt:      candidate.ConsumedAt,
		}
		saved, err = s.meals.CreateMeal(ctx, meal)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sessCtx.Err() != nil {
		return ErrSessionClosed
	}
	if seq != s.seq {
		log.Printf("composer session %s: dropping superseded save result", s.ID)
		return nil
	}
	if err != nil {
		s.status = StatusReview
		if errors.Is(err, service.ErrInvalidInput) {
			s.lastError = err.Error()
		} else {
			s.lastError = "failed to save meal, please retry"
		}
		return err
	}

	id := saved.ID
	s.savedMealID = &id
	s.status = StatusSuccess

	// Cosmetic success display, then a full reset back to idle.
	if s.resetDelay > 0 {
		time.AfterFunc(s.resetDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.status == StatusSuccess && s.ctx.Err() == nil {
				s.resetLocked()
			}
		})
	} else {
		s.resetLocked()
	}
	return nil
}

// Reset discards the candidate and transcript and returns to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.candidate = nil
	s.log = nil
	s.lastError = ""
	s.savedMealID = nil
	s.status = StatusIdle
	s.seq++ // invalidate anything still in flight
	s.lastActive = time.Now()
}

// HasUnsavedCandidate reports whether closing now would lose work.
func (s *Session) HasUnsavedCandidate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidate != nil && s.status != StatusSuccess
}

func (s *Session) close() {
	s.cancel()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// userMessage keeps provider internals out of what the client sees.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrMalformedAIResponse):
		return "the analysis service returned an unusable answer, please try again"
	case errors.Is(err, service.ErrInvalidInput):
		return err.Error()
	default:
		return "the analysis service is unavailable, please retry"
	}
}
