package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

const (
	DefaultSentimentThreshold = -0.5
	defaultClassifierTimeout  = 10 * time.Second
	defaultMaxTextSize        = 10 * 1024
	defaultCacheTTL           = 1 * time.Hour
)

// Verdict reasons.
const (
	ReasonProfanity          = "Contains inappropriate content"
	ReasonNegativeSentiment  = "Content has negative sentiment"
	ReasonFallback           = "Content passed basic moderation checks"
	ReasonInternalError      = "Error in content analysis"
	ReasonClassifierRejected = "Content flagged by classifier"

	NoteClassifierUnavailable = "classifier unavailable"
)

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeApproved         Outcome = "approved"
	OutcomeRejected         Outcome = "rejected"
	OutcomeFallbackApproved Outcome = "fallback_approved"
	OutcomeErrorRejected    Outcome = "error_rejected"
)

var outcomes = [...]Outcome{OutcomeApproved, OutcomeRejected, OutcomeFallbackApproved, OutcomeErrorRejected}

// EventName is a callback bus event.
type EventName string

const (
	EventApproved         EventName = "approved"
	EventRejected         EventName = "rejected"
	EventFallbackApproved EventName = "fallback_approved"
	EventErrorRejected    EventName = "error_rejected"
)

// VerdictEvent is callback payload.
type VerdictEvent struct {
	AuthorID string
	Context  models.ContentContext
	Outcome  Outcome
	Verdict  models.Verdict
}

// EventHandler handles one moderation event.
type EventHandler func(ctx context.Context, event VerdictEvent) error

// Options configure the pipeline.
type Options struct {
	Lexicon    interfaces.Lexicon
	Sentiment  interfaces.SentimentAnalyzer
	Classifier interfaces.Classifier
	Cache      interfaces.VerdictCache
	Processed  interfaces.ProcessedHandler
	Logger     interfaces.Logger

	// SentimentThreshold rejects scores strictly below it. Nil means DefaultSentimentThreshold.
	SentimentThreshold *float64
	ClassifierTimeout  time.Duration
	// MaxTextSize caps the bytes sent to the classifier. Profanity and
	// sentiment checks always run on the full text.
	MaxTextSize int
	CacheTTL           time.Duration
}

// Core runs profanity, sentiment and classifier checks in that order.
type Core struct {
	lexicon    interfaces.Lexicon
	sentiment  interfaces.SentimentAnalyzer
	classifier interfaces.Classifier
	cache      interfaces.VerdictCache
	allCb      interfaces.ProcessedHandler
	logger     interfaces.Logger

	threshold         float64
	classifierTimeout time.Duration
	maxTextSize       int
	cacheTTL          time.Duration

	eventsMu sync.RWMutex
	events   map[EventName][]EventHandler

	processed [len(outcomes)]atomic.Int64
}

// New creates a pipeline. Missing lexicon or sentiment analyzer makes every
// call fail closed; a missing classifier makes every call fall back open.
func New(opt Options) *Core {
	c := &Core{
		lexicon:           opt.Lexicon,
		sentiment:         opt.Sentiment,
		classifier:        opt.Classifier,
		cache:             opt.Cache,
		allCb:             opt.Processed,
		logger:            opt.Logger,
		threshold:         DefaultSentimentThreshold,
		classifierTimeout: defaultClassifierTimeout,
		maxTextSize:       defaultMaxTextSize,
		cacheTTL:          defaultCacheTTL,
		events:            make(map[EventName][]EventHandler, len(outcomes)),
	}
	if opt.SentimentThreshold != nil {
		c.threshold = *opt.SentimentThreshold
	}
	if opt.ClassifierTimeout > 0 {
		c.classifierTimeout = opt.ClassifierTimeout
	}
	if opt.MaxTextSize > 0 {
		c.maxTextSize = opt.MaxTextSize
	}
	if opt.CacheTTL > 0 {
		c.cacheTTL = opt.CacheTTL
	}
	return c
}

// Threshold returns the configured sentiment threshold.
func (c *Core) Threshold() float64 { return c.threshold }

// On registers event handlers.
func (c *Core) On(event EventName, handler EventHandler) error {
	if handler == nil {
		return errors.New("core: handler is nil")
	}
	c.eventsMu.Lock()
	c.events[event] = append(c.events[event], handler)
	c.eventsMu.Unlock()
	return nil
}

// AnalyzeText moderates text as a post.
func (c *Core) AnalyzeText(ctx context.Context, text string) models.Verdict {
	return c.Analyze(ctx, models.Request{Text: text, Context: models.ContextPost})
}

// Analyze moderates one request. It never fails: classifier trouble falls
// back to approval and internal faults fall back to rejection.
func (c *Core) Analyze(ctx context.Context, req models.Request) models.Verdict {
	res := c.run(ctx, req)
	verdict, outcome := c.resolve(req, res)
	c.record(ctx, req, verdict, outcome)
	return verdict
}

// errDependency marks failures of the external classifier.
type errDependency struct{ err error }

func (e *errDependency) Error() string { return "classifier: " + e.err.Error() }
func (e *errDependency) Unwrap() error { return e.err }

// stageResult is either a terminal verdict or an error. score is set once
// the sentiment stage ran.
type stageResult struct {
	verdict models.Verdict
	score   *float64
	err     error
}

func (c *Core) run(ctx context.Context, req models.Request) (res stageResult) {
	defer func() {
		if r := recover(); r != nil {
			res = stageResult{score: res.score, err: fmt.Errorf("core: panic: %v", r)}
		}
	}()
	if err := c.validate(); err != nil {
		return stageResult{err: err}
	}
	text := req.Text

	if c.lexicon.Contains(text) {
		return stageResult{verdict: models.Verdict{
			IsAppropriate: false,
			Reason:        ReasonProfanity,
			FlaggedTerms:  c.lexicon.MatchedTerms(text),
			Source:        models.SourceProfanity,
		}}
	}

	score := c.sentiment.Analyze(text)
	res.score = &score
	if score < c.threshold {
		return stageResult{score: &score, verdict: models.Verdict{
			IsAppropriate:  false,
			Reason:         ReasonNegativeSentiment,
			SentimentScore: &score,
			Source:         models.SourceSentiment,
		}}
	}

	return c.classify(ctx, c.classifierInput(text), &score)
}

func (c *Core) classify(ctx context.Context, text string, score *float64) stageResult {
	key := cacheKey(text)
	if cached, ok := c.getCached(ctx, key); ok {
		cached.SentimentScore = score
		return stageResult{verdict: cached, score: score}
	}
	if c.classifier == nil {
		return stageResult{score: score, err: &errDependency{err: errors.New("not configured")}}
	}

	cctx, cancel := context.WithTimeout(ctx, c.classifierTimeout)
	defer cancel()
	start := time.Now()
	result, err := c.classifier.Classify(cctx, text)
	classifierDuration.WithLabelValues(c.classifier.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		classifierErrors.WithLabelValues(c.classifier.Name()).Inc()
		return stageResult{score: score, err: &errDependency{err: err}}
	}

	reason := result.Reason
	if !result.IsAppropriate && reason == "" {
		reason = ReasonClassifierRejected
	}
	v := models.Verdict{
		IsAppropriate:  result.IsAppropriate,
		Reason:         reason,
		SentimentScore: score,
		Source:         models.SourceClassifier,
	}
	c.setCached(ctx, key, v)
	return stageResult{verdict: v, score: score}
}

// resolve is the single place where errors become verdicts: classifier
// failures fail open, everything else fails closed.
func (c *Core) resolve(req models.Request, res stageResult) (models.Verdict, Outcome) {
	if res.err == nil {
		if res.verdict.IsAppropriate {
			return res.verdict, OutcomeApproved
		}
		return res.verdict, OutcomeRejected
	}

	fields := map[string]any{
		"error":     res.err.Error(),
		"author_id": req.AuthorID,
		"context":   string(req.Context),
	}
	var dep *errDependency
	if errors.As(res.err, &dep) {
		c.logWarn("classifier unavailable, using basic moderation", fields)
		return models.Verdict{
			IsAppropriate:  true,
			Reason:         ReasonFallback,
			SentimentScore: res.score,
			Source:         models.SourceClassifierFallback,
			Note:           NoteClassifierUnavailable,
		}, OutcomeFallbackApproved
	}

	c.logError("error in content analysis", fields)
	return models.Verdict{
		IsAppropriate: false,
		Reason:        ReasonInternalError,
		Source:        models.SourceErrorFallback,
	}, OutcomeErrorRejected
}

// classifierInput caps the classifier payload at maxTextSize bytes on a rune
// boundary. Local stages always see the full text.
func (c *Core) classifierInput(text string) string {
	if len(text) <= c.maxTextSize {
		return text
	}
	cut := c.maxTextSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func (c *Core) validate() error {
	if c.lexicon == nil {
		return errors.New("core: lexicon is nil")
	}
	if c.sentiment == nil {
		return errors.New("core: sentiment analyzer is nil")
	}
	return nil
}

// Metrics returns count of processed requests by outcome.
func (c *Core) Metrics() map[Outcome]int64 {
	out := make(map[Outcome]int64, len(outcomes))
	for i, o := range outcomes {
		out[o] = c.processed[i].Load()
	}
	return out
}

func (c *Core) record(ctx context.Context, req models.Request, v models.Verdict, outcome Outcome) {
	for i, o := range outcomes {
		if o == outcome {
			c.processed[i].Add(1)
			break
		}
	}
	verdictsTotal.WithLabelValues(string(v.Source), fmt.Sprint(v.IsAppropriate)).Inc()

	if c.allCb != nil {
		c.safeCall("processed", func() error { return c.allCb.OnProcessed(ctx, req, v) })
	}
	c.dispatchEvent(ctx, VerdictEvent{AuthorID: req.AuthorID, Context: req.Context, Outcome: outcome, Verdict: v})
}

// safeCall runs one handler; its error or panic is logged and goes no further.
func (c *Core) safeCall(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("verdict handler panic", map[string]any{"handler": name, "panic": fmt.Sprint(r)})
		}
	}()
	if err := fn(); err != nil {
		c.logWarn("verdict handler failed", map[string]any{"handler": name, "error": err.Error()})
	}
}

func (c *Core) dispatchEvent(ctx context.Context, e VerdictEvent) {
	event := EventName(e.Outcome)
	c.eventsMu.RLock()
	handlers := append([]EventHandler(nil), c.events[event]...)
	c.eventsMu.RUnlock()
	for _, h := range handlers {
		c.safeCall(string(event), func() error { return h(ctx, e) })
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *Core) getCached(ctx context.Context, key string) (models.Verdict, bool) {
	if c.cache == nil {
		return models.Verdict{}, false
	}
	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logWarn("verdict cache get failed", map[string]any{"error": err.Error()})
		return models.Verdict{}, false
	}
	if !ok || v.Source != models.SourceClassifier {
		return models.Verdict{}, false
	}
	return v, true
}

func (c *Core) setCached(ctx context.Context, key string, v models.Verdict) {
	if c.cache == nil {
		return
	}
	v.SentimentScore = nil
	if err := c.cache.Set(ctx, key, v, c.cacheTTL); err != nil {
		c.logWarn("verdict cache set failed", map[string]any{"error": err.Error()})
	}
}

func (c *Core) logWarn(msg string, fields map[string]any) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}

func (c *Core) logError(msg string, fields map[string]any) {
	if c.logger != nil {
		c.logger.Error(msg, fields)
	}
}
