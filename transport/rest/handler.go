package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

const userIDHeader = "X-User-ID"

// DefaultMaxBodyBytes caps request bodies unless WithMaxBodyBytes says otherwise.
const DefaultMaxBodyBytes int64 = 1 << 20

// Moderator analyzes one request. *core.Core implements it.
type Moderator interface {
	Analyze(ctx context.Context, req models.Request) models.Verdict
}

// Preferences reads and writes filter levels. *preference.Gate implements it.
type Preferences interface {
	Get(ctx context.Context, userID string) (models.FilterLevel, error)
	Set(ctx context.Context, userID, level string) (models.Preference, error)
}

// Reviews records and lists manual moderation decisions. *review.Service
// implements it.
type Reviews interface {
	Moderate(ctx context.Context, ref models.ContentRef, action, reason, moderatorID string) (models.ModeratedContent, error)
	List(ctx context.Context, status string) ([]models.ModeratedContent, error)
}

// Handler serves the moderation HTTP API.
type Handler struct {
	moderator    Moderator
	preferences  Preferences
	reviews      Reviews
	logger       interfaces.Logger
	maxBodyBytes int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxBodyBytes limits JSON request bodies to n bytes. Non-positive n
// keeps the default.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler builds the API handler. Manual moderation routes are mounted
// only when reviews is non-nil.
func NewHandler(moderator Moderator, preferences Preferences, reviews Reviews, logger interfaces.Logger, opts ...Option) *Handler {
	h := &Handler{
		moderator:    moderator,
		preferences:  preferences,
		reviews:      reviews,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the API, health and metrics endpoints on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1/moderation")
	{
		api.POST("/test", h.TestContent)
		api.GET("/preferences", h.GetPreferences)
		api.PUT("/preferences", h.UpdatePreferences)
		if h.reviews != nil {
			api.POST("/posts/:postId/moderate", h.ModerateContent)
			api.POST("/posts/:postId/comments/:commentId/moderate", h.ModerateContent)
			api.GET("/moderated-content", h.ListModeratedContent)
		}
	}
}

type testContentRequest struct {
	Content string `json:"content"`
	Context string `json:"context"`
}

type testContentResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Verdict models.PublicVerdict `json:"verdict"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type updatePreferencesRequest struct {
	ContentFilterLevel string `json:"contentFilterLevel"`
}

type moderateRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type moderateResponse struct {
	Message string                  `json:"message"`
	Content models.ModeratedContent `json:"content"`
}

// TestContent lets a user check text before publishing it.
func (h *Handler) TestContent(c *gin.Context) {
	var req testContentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.respondError(c, http.StatusBadRequest, "content is required")
		return
	}

	mreq := models.Request{
		Text:     req.Content,
		AuthorID: c.GetHeader(userIDHeader),
		Context:  models.ContentContext(strings.ToLower(strings.TrimSpace(req.Context))),
	}
	if mreq.Context == "" {
		mreq.Context = models.ContextPost
	}
	if err := mreq.Validate(); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	verdict := h.moderator.Analyze(c.Request.Context(), mreq)
	if !verdict.IsAppropriate {
		c.JSON(http.StatusUnprocessableEntity, testContentResponse{
			Success: false,
			Message: verdict.Reason,
			Verdict: verdict.Public(),
		})
		return
	}
	c.JSON(http.StatusOK, testContentResponse{Success: true, Verdict: verdict.Public()})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	level, err := h.preferences.Get(c.Request.Context(), userID)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Preference{UserID: userID, Level: level})
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req updatePreferencesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	pref, err := h.preferences.Set(c.Request.Context(), userID, req.ContentFilterLevel)
	if err != nil {
		h.handlePreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

// ModerateContent flags or unflags a post or comment. The caller's user id is
// recorded as the moderator.
func (h *Handler) ModerateContent(c *gin.Context) {
	moderatorID, ok := h.requireUser(c)
	if !ok {
		return
	}
	var req moderateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ref := models.ContentRef{PostID: c.Param("postId"), CommentID: c.Param("commentId")}
	item, err := h.reviews.Moderate(c.Request.Context(), ref, req.Action, req.Reason, moderatorID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			h.respondError(c, http.StatusNotFound, ref.Kind()+" not found")
			return
		}
		h.handleStoreError(c, err, "moderation store failed")
		return
	}
	c.JSON(http.StatusOK, moderateResponse{Message: "Content moderated successfully", Content: item})
}

// ListModeratedContent lists content by ?status=flagged|unflagged.
func (h *Handler) ListModeratedContent(c *gin.Context) {
	items, err := h.reviews.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.handleStoreError(c, err, "moderation store failed")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) requireUser(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetHeader(userIDHeader))
	if userID == "" {
		h.respondError(c, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

func (h *Handler) handlePreferenceError(c *gin.Context, err error) {
	h.handleStoreError(c, err, "preference store failed")
}

// handleStoreError answers 400 for validation errors and 500 otherwise.
func (h *Handler) handleStoreError(c *gin.Context, err error, logMsg string) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		h.respondError(c, http.StatusBadRequest, validationMessage(verr))
		return
	}
	if h.logger != nil {
		h.logger.Error(logMsg, map[string]any{"error": err.Error(), "path": c.FullPath()})
	}
	h.respondError(c, http.StatusInternalServerError, "internal error")
}

func validationMessage(verr *models.ValidationError) string {
	if errors.Is(verr, models.ErrInvalidFilterLevel) {
		return "invalid " + verr.Field + ", expected low, medium or high"
	}
	if errors.Is(verr, models.ErrInvalidAction) {
		return "invalid " + verr.Field + ", expected flag or unflag"
	}
	return verr.Error()
}

// bindJSON decodes the body into dst, answering 413 past the body limit and
// 400 for malformed JSON.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.respondError(c, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	h.respondError(c, http.StatusBadRequest, "invalid request body")
	return false
}

func (h *Handler) respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Message: message})
}
