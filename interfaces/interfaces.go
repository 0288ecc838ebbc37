package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/elum-utils/moderation/models"
)

// ErrNotFound is returned by stores when a key has no value.
var ErrNotFound = errors.New("interfaces: not found")

// Lexicon is a read-only set of disallowed terms.
type Lexicon interface {
	Contains(text string) bool
	MatchedTerms(text string) []string
}

// SentimentAnalyzer scores free text. It never fails; faults yield 0.
type SentimentAnalyzer interface {
	Analyze(text string) float64
}

// Classifier delegates appropriateness judgment to a remote service.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, text string) (models.ClassifierResult, error)
}

// VerdictCache stores classifier verdicts by key. A miss returns ok=false and nil error.
type VerdictCache interface {
	Get(ctx context.Context, key string) (models.Verdict, bool, error)
	Set(ctx context.Context, key string, verdict models.Verdict, ttl time.Duration) error
}

// TermSource provides lexicon terms once at startup.
type TermSource interface {
	GetTerms(ctx context.Context) ([]string, error)
}

// PreferenceStore persists per-user filter levels.
// GetLevel returns ErrNotFound when the user has no stored level.
type PreferenceStore interface {
	GetLevel(ctx context.Context, userID string) (models.FilterLevel, error)
	SetLevel(ctx context.Context, userID string, level models.FilterLevel) error
}

// ModerationStore persists manual moderation status of posts and comments.
// SetStatus returns ErrNotFound when the referenced content does not exist.
type ModerationStore interface {
	SetStatus(ctx context.Context, ref models.ContentRef, status models.ModerationStatus) error
	ListByStatus(ctx context.Context, flagged bool) ([]models.ModeratedContent, error)
}

// ProcessedHandler handles every verdict with one method.
type ProcessedHandler interface {
	OnProcessed(ctx context.Context, req models.Request, verdict models.Verdict) error
}

// Logger is an optional structured logger.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}
