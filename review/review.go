package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

// Status filters accepted by List.
const (
	StatusFlagged   = "flagged"
	StatusUnflagged = "unflagged"
)

var (
	errEmptyModerator = errors.New("moderator id is empty")
	errUnknownStatus  = errors.New("status must be flagged or unflagged")
)

var manualActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_manual_actions_total",
	Help: "Number of manual flag and unflag decisions, by action and content kind",
}, []string{"action", "kind"})

// Service records moderator decisions on posts and comments.
type Service struct {
	store  interfaces.ModerationStore
	logger interfaces.Logger
	now    func() time.Time
}

func NewService(store interfaces.ModerationStore, logger interfaces.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Moderate flags or unflags the referenced content. Flagging stamps the
// current time and records reason when given; unflagging clears both.
// Bad input yields *models.ValidationError and missing content wraps
// interfaces.ErrNotFound.
func (s *Service) Moderate(ctx context.Context, ref models.ContentRef, action, reason, moderatorID string) (models.ModeratedContent, error) {
	ref.PostID = strings.TrimSpace(ref.PostID)
	ref.CommentID = strings.TrimSpace(ref.CommentID)
	if err := ref.Validate(); err != nil {
		return models.ModeratedContent{}, &models.ValidationError{Field: "postId", Err: err}
	}
	act, err := models.ParseModerationAction(action)
	if err != nil {
		return models.ModeratedContent{}, &models.ValidationError{Field: "action", Err: err}
	}
	moderatorID = strings.TrimSpace(moderatorID)
	if moderatorID == "" {
		return models.ModeratedContent{}, &models.ValidationError{Field: "moderatorId", Err: errEmptyModerator}
	}

	status := models.ModerationStatus{Reasons: []string{}, ModeratedBy: moderatorID}
	if act == models.ActionFlag {
		at := s.now().UTC()
		status.IsFlagged = true
		status.FlaggedAt = &at
		if r := strings.TrimSpace(reason); r != "" {
			status.Reasons = []string{r}
		}
	}

	if err := s.store.SetStatus(ctx, ref, status); err != nil {
		return models.ModeratedContent{}, fmt.Errorf("review: %s %s %s: %w", act, ref.Kind(), ref.PostID, err)
	}
	manualActionsTotal.WithLabelValues(string(act), ref.Kind()).Inc()
	if s.logger != nil {
		s.logger.Info("content moderated", map[string]any{
			"action":       string(act),
			"kind":         ref.Kind(),
			"post_id":      ref.PostID,
			"comment_id":   ref.CommentID,
			"moderated_by": moderatorID,
		})
	}
	return models.ModeratedContent{ContentRef: ref, Status: status}, nil
}

// List returns content with the given status, newest flag first. An empty
// status means unflagged.
func (s *Service) List(ctx context.Context, status string) ([]models.ModeratedContent, error) {
	var flagged bool
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusFlagged:
		flagged = true
	case StatusUnflagged, "":
	default:
		return nil, &models.ValidationError{Field: "status", Err: errUnknownStatus}
	}
	items, err := s.store.ListByStatus(ctx, flagged)
	if err != nil {
		return nil, fmt.Errorf("review: list: %w", err)
	}
	if items == nil {
		items = []models.ModeratedContent{}
	}
	return items, nil
}
