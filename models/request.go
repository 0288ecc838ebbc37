package models

import (
	"errors"
	"fmt"
)

// ErrInvalidContext is returned for a content context other than post or comment.
var ErrInvalidContext = errors.New("models: invalid content context")

// ContentContext tells where the text is going to be published.
type ContentContext string

const (
	ContextPost    ContentContext = "post"
	ContextComment ContentContext = "comment"
)

// Valid returns true for post and comment.
func (c ContentContext) Valid() bool {
	return c == ContextPost || c == ContextComment
}

// Request is an input unit for moderation. It lives for one Analyze call.
type Request struct {
	Text     string         `json:"text"`
	AuthorID string         `json:"author_id"`
	Context  ContentContext `json:"context"`
}

// Validate checks the request context.
func (r Request) Validate() error {
	if !r.Context.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidContext, r.Context)
	}
	return nil
}
