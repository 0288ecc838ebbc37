package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Source names the pipeline stage that produced a verdict.
type Source string

const (
	SourceProfanity          Source = "profanity"
	SourceSentiment          Source = "sentiment"
	SourceClassifier         Source = "classifier"
	SourceClassifierFallback Source = "classifier-fallback"
	SourceErrorFallback      Source = "error-fallback"
)

// Valid returns true for the five known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceProfanity, SourceSentiment, SourceClassifier, SourceClassifierFallback, SourceErrorFallback:
		return true
	}
	return false
}

// Verdict is the result of one moderation analysis.
type Verdict struct {
	IsAppropriate  bool     `json:"isAppropriate"`
	Reason         string   `json:"reason"`
	FlaggedTerms   []string `json:"flaggedTerms,omitempty"`
	SentimentScore *float64 `json:"sentimentScore,omitempty"`
	Source         Source   `json:"source"`
	Note           string   `json:"note,omitempty"`
}

// Score returns the sentiment score and whether it was computed.
func (v Verdict) Score() (float64, bool) {
	if v.SentimentScore == nil {
		return 0, false
	}
	return *v.SentimentScore, true
}

// Validate checks verdict invariants.
func (v Verdict) Validate() error {
	if !v.Source.Valid() {
		return fmt.Errorf("models: unknown verdict source %q", v.Source)
	}
	if !v.IsAppropriate && v.Reason == "" {
		return errors.New("models: rejected verdict without reason")
	}
	if len(v.FlaggedTerms) > 0 && v.Source != SourceProfanity {
		return fmt.Errorf("models: flagged terms on %s verdict", v.Source)
	}
	return nil
}

// Public strips operational details so a fallback approval looks like any other approval.
func (v Verdict) Public() PublicVerdict {
	return PublicVerdict{
		IsAppropriate: v.IsAppropriate,
		Reason:        v.Reason,
		FlaggedTerms:  v.FlaggedTerms,
	}
}

// PublicVerdict is the end-user view of a verdict.
type PublicVerdict struct {
	IsAppropriate bool     `json:"isAppropriate"`
	Reason        string   `json:"reason"`
	FlaggedTerms  []string `json:"flaggedTerms,omitempty"`
}

// ClassifierResult is a normalized classifier response.
type ClassifierResult struct {
	IsAppropriate bool   `json:"isAppropriate"`
	Reason        string `json:"reason"`
}

type classifierWire struct {
	IsAppropriate *bool   `json:"isAppropriate"`
	Reason        *string `json:"reason"`
}

// UnmarshalJSON requires both isAppropriate and reason to be present.
func (r *ClassifierResult) UnmarshalJSON(data []byte) error {
	var w classifierWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.IsAppropriate == nil {
		return errors.New("models: classifier result missing isAppropriate")
	}
	if w.Reason == nil {
		return errors.New("models: classifier result missing reason")
	}
	r.IsAppropriate = *w.IsAppropriate
	r.Reason = *w.Reason
	return nil
}
