package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidAction is returned for an action other than flag or unflag.
	ErrInvalidAction = errors.New("models: invalid moderation action")
	// ErrInvalidContentRef is returned when a content reference has no post id.
	ErrInvalidContentRef = errors.New("models: content reference needs a post id")
)

// ModerationAction is a manual moderator decision.
type ModerationAction string

const (
	ActionFlag   ModerationAction = "flag"
	ActionUnflag ModerationAction = "unflag"
)

// ParseModerationAction accepts flag or unflag in any case.
func ParseModerationAction(s string) (ModerationAction, error) {
	a := ModerationAction(strings.ToLower(strings.TrimSpace(s)))
	if a != ActionFlag && a != ActionUnflag {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return a, nil
}

// ContentRef points at a post, or at a comment of a post when CommentID is set.
type ContentRef struct {
	PostID    string `json:"postId" bson:"postId"`
	CommentID string `json:"commentId,omitempty" bson:"commentId,omitempty"`
}

// IsComment reports whether the reference is a comment.
func (r ContentRef) IsComment() bool { return r.CommentID != "" }

// Kind returns "comment" or "post".
func (r ContentRef) Kind() string {
	if r.IsComment() {
		return string(ContextComment)
	}
	return string(ContextPost)
}

func (r ContentRef) Validate() error {
	if strings.TrimSpace(r.PostID) == "" {
		return ErrInvalidContentRef
	}
	return nil
}

// ModerationStatus is the manual moderation state stored on a post or comment.
type ModerationStatus struct {
	IsFlagged   bool       `json:"isFlagged" bson:"isFlagged"`
	FlaggedAt   *time.Time `json:"flaggedAt,omitempty" bson:"flaggedAt,omitempty"`
	Reasons     []string   `json:"reasons" bson:"reasons"`
	ModeratedBy string     `json:"moderatedBy" bson:"moderatedBy"`
}

// ModeratedContent is one post or comment together with its status.
type ModeratedContent struct {
	ContentRef `bson:",inline"`
	Status     ModerationStatus `json:"moderationStatus" bson:"moderationStatus"`
}

// NewerFirst orders a before b when a was flagged later. Unflagged content sorts last.
func NewerFirst(a, b ModeratedContent) bool {
	at, bt := a.Status.FlaggedAt, b.Status.FlaggedAt
	switch {
	case at == nil:
		return false
	case bt == nil:
		return true
	default:
		return at.After(*bt)
	}
}
