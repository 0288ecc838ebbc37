package preference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

// ValidationError reports bad caller input. For unknown levels it wraps
// models.ErrInvalidFilterLevel.
type ValidationError = models.ValidationError

var errEmptyUserID = errors.New("user id is empty")

// Gate reads and writes per-user content filter levels.
type Gate struct {
	store  interfaces.PreferenceStore
	logger interfaces.Logger
}

func NewGate(store interfaces.PreferenceStore, logger interfaces.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// Get returns the stored level, or models.DefaultFilterLevel when the user
// never set one.
func (g *Gate) Get(ctx context.Context, userID string) (models.FilterLevel, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", &ValidationError{Field: "userId", Err: errEmptyUserID}
	}
	level, err := g.store.GetLevel(ctx, userID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return models.DefaultFilterLevel, nil
	}
	if err != nil {
		return "", fmt.Errorf("preference: get %s: %w", userID, err)
	}
	// invalid stored values read as the default
	parsed, perr := models.ParseFilterLevel(string(level))
	if perr != nil {
		g.logWarn("stored filter level invalid, using default", map[string]any{"user_id": userID, "level": string(level)})
		return models.DefaultFilterLevel, nil
	}
	return parsed, nil
}

// Set validates level and persists it. On validation failure the store is
// not touched and a *ValidationError is returned.
func (g *Gate) Set(ctx context.Context, userID, level string) (models.Preference, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Preference{}, &ValidationError{Field: "userId", Err: errEmptyUserID}
	}
	parsed, err := models.ParseFilterLevel(level)
	if err != nil {
		return models.Preference{}, &ValidationError{Field: "contentFilterLevel", Err: err}
	}
	if err := g.store.SetLevel(ctx, userID, parsed); err != nil {
		return models.Preference{}, fmt.Errorf("preference: set %s: %w", userID, err)
	}
	g.logInfo("content filter level updated", map[string]any{"user_id": userID, "level": string(parsed)})
	return models.Preference{UserID: userID, Level: parsed}, nil
}

func (g *Gate) logInfo(msg string, fields map[string]any) {
	if g.logger != nil {
		g.logger.Info(msg, fields)
	}
}

func (g *Gate) logWarn(msg string, fields map[string]any) {
	if g.logger != nil {
		g.logger.Warn(msg, fields)
	}
}
