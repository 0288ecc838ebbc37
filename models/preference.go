package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilterLevel is returned for a filter level outside low, medium, high.
var ErrInvalidFilterLevel = errors.New("models: invalid content filter level")

// FilterLevel is a per-user moderation strictness.
type FilterLevel string

const (
	FilterLow    FilterLevel = "low"
	FilterMedium FilterLevel = "medium"
	FilterHigh   FilterLevel = "high"

	DefaultFilterLevel = FilterMedium
)

// Valid returns true for low, medium and high.
func (l FilterLevel) Valid() bool {
	return l == FilterLow || l == FilterMedium || l == FilterHigh
}

// ParseFilterLevel accepts low, medium or high in any case.
func ParseFilterLevel(s string) (FilterLevel, error) {
	l := FilterLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilterLevel, s)
	}
	return l, nil
}

// Preference is a user's stored moderation setting.
type Preference struct {
	UserID string      `json:"userId" bson:"_id"`
	Level  FilterLevel `json:"contentFilterLevel" bson:"contentFilterLevel"`
}
