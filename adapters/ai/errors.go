package ai

import "errors"

// ErrClassifier matches every *ClassifierError via errors.Is.
var ErrClassifier = errors.New("ai: classifier unavailable")

// ClassifierError wraps any failure to obtain a usable verdict from the classifier.
type ClassifierError struct {
	Op  string
	Err error
}

func newError(op string, err error) *ClassifierError {
	return &ClassifierError{Op: op, Err: err}
}

func (e *ClassifierError) Error() string {
	return "ai: " + e.Op + ": " + e.Err.Error()
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// Is reports ErrClassifier as a match.
func (e *ClassifierError) Is(target error) bool {
	return target == ErrClassifier
}
