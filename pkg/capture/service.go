package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/embeddings"
	"github.com/quillvault/quill/pkg/vector"
)

const (
	// DefaultWindow and DefaultMaxPerWindow bound captures per conversation.
	DefaultWindow       = time.Minute
	DefaultMaxPerWindow = 5

	// DefaultDuplicateThreshold is the similarity at or above which a
	// candidate is considered a duplicate of an existing capture.
	DefaultDuplicateThreshold = 0.92
)

// Outcome reports what happened to one capture attempt. Skipped is the
// normal path for most text; Reason says why.
type Outcome struct {
	Stored   bool     `json:"stored"`
	Reason   string   `json:"reason,omitempty"`
	ID       string   `json:"id,omitempty"`
	Category Category `json:"category,omitempty"`

	// Warning carries non-fatal degradation (e.g. the duplicate check was
	// skipped because the store was unreachable). Surfaced for logging,
	// never an error.
	Warning string `json:"warning,omitempty"`
}

// Config holds the capture service dependencies and policy knobs.
type Config struct {
	Vectors  vector.Driver
	Embedder embeddings.Embedder

	// Window and MaxPerWindow configure the per-conversation rate limit.
	Window       time.Duration
	MaxPerWindow int

	// DuplicateThreshold is the similarity at or above which a capture is
	// suppressed as a duplicate.
	DuplicateThreshold float32

	Logger *zap.Logger
}

// Service runs the capture pipeline: classify, rate-limit, dedup, store.
type Service struct {
	config  Config
	limiter *Limiter
}

// NewService creates a capture service.
func NewService(c Config) *Service {
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.MaxPerWindow == 0 {
		c.MaxPerWindow = DefaultMaxPerWindow
	}
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = DefaultDuplicateThreshold
	}
	return &Service{
		config:  c,
		limiter: NewLimiter(c.Window, c.MaxPerWindow),
	}
}

// Capture classifies text and, when capture-worthy, stores it as a durable
// memory. A store-side duplicate probe failure degrades to "assume not
// duplicate" and is reported in the outcome's Warning, not returned as an
// error; only embedding or write failures are errors.
func (s *Service) Capture(ctx context.Context, text, conversationKey string) (Outcome, error) {
	if !ShouldCapture(text) {
		return Outcome{Reason: "not capture-worthy"}, nil
	}

	category := DetectCategory(text)

	if !s.limiter.Allow(conversationKey, time.Now()) {
		s.config.Logger.Debug("capture rate limited",
			zap.String("conversation_key", conversationKey),
		)
		return Outcome{Reason: "rate limited", Category: category}, nil
	}

	embedding, err := s.config.Embedder.Embed(ctx, text)
	if err != nil {
		return Outcome{Category: category}, fmt.Errorf("embedding capture: %w", err)
	}

	outcome := Outcome{Category: category}

	nearest, err := s.config.Vectors.FindNearestCaptured(ctx, embedding, s.config.DuplicateThreshold)
	if err != nil {
		outcome.Warning = fmt.Sprintf("duplicate check skipped: %v", err)
		s.config.Logger.Warn("duplicate check failed, assuming not duplicate",
			zap.Error(err),
		)
	} else if nearest.Exists {
		outcome.Reason = "duplicate"
		s.config.Logger.Debug("capture suppressed as duplicate",
			zap.Float32("similarity", nearest.Score),
		)
		return outcome, nil
	}

	rec := vector.CaptureRecord{
		ID:              uuid.NewString(),
		Text:            text,
		Category:        string(category),
		CapturedAt:      time.Now().UTC(),
		ConversationKey: conversationKey,
	}

	if err := s.config.Vectors.UpsertCaptured(ctx, rec, embedding); err != nil {
		return outcome, fmt.Errorf("storing capture: %w", err)
	}

	outcome.Stored = true
	outcome.ID = rec.ID

	s.config.Logger.Info("memory captured",
		zap.String("id", rec.ID),
		zap.String("category", string(category)),
	)
	return outcome, nil
}

// PruneLimiter ages out expired rate-limit state.
func (s *Service) PruneLimiter() {
	s.limiter.Prune(time.Now())
}
