package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elum-utils/moderation/adapters/storage"
	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
	"github.com/elum-utils/moderation/preference"
	"github.com/elum-utils/moderation/review"
)

type stubModerator struct {
	verdict models.Verdict
	calls   int
	last    models.Request
}

func (s *stubModerator) Analyze(_ context.Context, req models.Request) models.Verdict {
	s.calls++
	s.last = req
	return s.verdict
}

type brokenStore struct{}

func (brokenStore) GetLevel(context.Context, string) (models.FilterLevel, error) {
	return "", errors.New("db down")
}

func (brokenStore) SetLevel(context.Context, string, models.FilterLevel) error {
	return errors.New("db down")
}

func newTestEngine(m Moderator, p Preferences, opts ...Option) *gin.Engine {
	r := NewEngine("test", nil)
	NewHandler(m, p, nil, nil, opts...).RegisterRoutes(r)
	return r
}

func newReviewEngine(store *storage.MemoryAdapter) *gin.Engine {
	r := NewEngine("test", nil)
	NewHandler(&stubModerator{}, nil, review.NewService(store, nil), nil).RegisterRoutes(r)
	return r
}

type missingContentStore struct{ *storage.MemoryAdapter }

func (missingContentStore) SetStatus(context.Context, models.ContentRef, models.ModerationStatus) error {
	return interfaces.ErrNotFound
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTestContentApproved(t *testing.T) {
	m := &stubModerator{verdict: models.Verdict{IsAppropriate: true, Reason: "ok", Source: models.SourceClassifier}}
	r := newTestEngine(m, preference.NewGate(storage.NewMemoryAdapter(), nil))

	w := do(r, http.MethodPost, "/api/v1/moderation/test", `{"content":"hello","context":"Comment"}`, map[string]string{userIDHeader: "u1"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, models.ContextComment, m.last.Context)
	assert.Equal(t, "u1", m.last.AuthorID)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestTestContentFallbackLooksApproved(t *testing.T) {
	m := &stubModerator{verdict: models.Verdict{
		IsAppropriate: true,
		Reason:        "Content passed basic moderation checks",
		Source:        models.SourceClassifierFallback,
		Note:          "classifier unavailable",
	}}
	r := newTestEngine(m, nil)

	w := do(r, http.MethodPost, "/api/v1/moderation/test", `{"content":"hello"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "source")
	assert.NotContains(t, w.Body.String(), "classifier unavailable")
	assert.Equal(t, models.ContextPost, m.last.Context)
}

func TestTestContentRejected(t *testing.T) {
	m := &stubModerator{verdict: models.Verdict{
		IsAppropriate: false,
		Reason:        "Contains inappropriate content",
		FlaggedTerms:  []string{"idiot"},
		Source:        models.SourceProfanity,
	}}
	r := newTestEngine(m, nil)

	w := do(r, http.MethodPost, "/api/v1/moderation/test", `{"content":"you idiot"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Success bool                 `json:"success"`
		Message string               `json:"message"`
		Verdict models.PublicVerdict `json:"verdict"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Contains inappropriate content", body.Message)
	assert.Equal(t, []string{"idiot"}, body.Verdict.FlaggedTerms)
}

func TestTestContentBadInput(t *testing.T) {
	m := &stubModerator{}
	r := newTestEngine(m, nil)

	cases := map[string]string{
		"empty content":   `{"content":"   "}`,
		"invalid json":    `{"content":`,
		"unknown context": `{"content":"hi","context":"story"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/moderation/test", body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Zero(t, m.calls)
}

func TestPreferencesRoundTrip(t *testing.T) {
	r := newTestEngine(&stubModerator{}, preference.NewGate(storage.NewMemoryAdapter(), nil))
	hdr := map[string]string{userIDHeader: "u1"}

	w := do(r, http.MethodGet, "/api/v1/moderation/preferences", "", hdr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"u1","contentFilterLevel":"medium"}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/v1/moderation/preferences", `{"contentFilterLevel":"high"}`, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"u1","contentFilterLevel":"high"}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/v1/moderation/preferences", `{"contentFilterLevel":"extreme"}`, hdr)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid contentFilterLevel")

	w = do(r, http.MethodGet, "/api/v1/moderation/preferences", "", hdr)
	assert.JSONEq(t, `{"userId":"u1","contentFilterLevel":"high"}`, w.Body.String())
}

func TestPreferencesRequireUser(t *testing.T) {
	r := newTestEngine(&stubModerator{}, preference.NewGate(storage.NewMemoryAdapter(), nil))
	w := do(r, http.MethodGet, "/api/v1/moderation/preferences", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPreferencesStoreFailure(t *testing.T) {
	r := newTestEngine(&stubModerator{}, preference.NewGate(brokenStore{}, nil))
	w := do(r, http.MethodGet, "/api/v1/moderation/preferences", "", map[string]string{userIDHeader: "u1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestEngine(&stubModerator{}, nil)

	w := do(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRequestIDPropagated(t *testing.T) {
	r := newTestEngine(&stubModerator{}, nil)
	w := do(r, http.MethodGet, "/health", "", map[string]string{requestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

type failingPreferences struct{ err error }

func (f failingPreferences) Get(context.Context, string) (models.FilterLevel, error) {
	return "", f.err
}

func (f failingPreferences) Set(context.Context, string, string) (models.Preference, error) {
	return models.Preference{}, f.err
}

func TestValidationMessageNamesField(t *testing.T) {
	err := &models.ValidationError{Field: "userId", Err: errors.New("user id is empty")}
	r := newTestEngine(&stubModerator{}, failingPreferences{err: err})
	w := do(r, http.MethodGet, "/api/v1/moderation/preferences", "", map[string]string{userIDHeader: "u1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid userId")
	assert.NotContains(t, w.Body.String(), "filter level")
}

func TestOversizedBodyRejected(t *testing.T) {
	m := &stubModerator{verdict: models.Verdict{IsAppropriate: true}}
	r := newTestEngine(m, nil, WithMaxBodyBytes(64))

	body := `{"content":"` + strings.Repeat("a", 128) + `"}`
	w := do(r, http.MethodPost, "/api/v1/moderation/test", body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, m.calls)

	w = do(r, http.MethodPost, "/api/v1/moderation/test", `{"content":"short"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestModerateAndListContent(t *testing.T) {
	r := newReviewEngine(storage.NewMemoryAdapter())
	hdr := map[string]string{userIDHeader: "mod-1"}

	w := do(r, http.MethodPost, "/api/v1/moderation/posts/p1/comments/c1/moderate", `{"action":"flag","reason":"spam"}`, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message string                  `json:"message"`
		Content models.ModeratedContent `json:"content"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Content moderated successfully", resp.Message)
	assert.Equal(t, "p1", resp.Content.PostID)
	assert.Equal(t, "c1", resp.Content.CommentID)
	assert.True(t, resp.Content.Status.IsFlagged)
	assert.Equal(t, []string{"spam"}, resp.Content.Status.Reasons)
	assert.Equal(t, "mod-1", resp.Content.Status.ModeratedBy)
	assert.NotNil(t, resp.Content.Status.FlaggedAt)

	w = do(r, http.MethodPost, "/api/v1/moderation/posts/p2/moderate", `{"action":"unflag"}`, hdr)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/moderation/moderated-content?status=flagged", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.ModeratedContent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].CommentID)

	w = do(r, http.MethodGet, "/api/v1/moderation/moderated-content", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].PostID)
	assert.False(t, items[0].Status.IsFlagged)
}

func TestModerateContentErrors(t *testing.T) {
	r := newReviewEngine(storage.NewMemoryAdapter())
	hdr := map[string]string{userIDHeader: "mod-1"}

	w := do(r, http.MethodPost, "/api/v1/moderation/posts/p1/moderate", `{"action":"flag"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/v1/moderation/posts/p1/moderate", `{"action":"delete"}`, hdr)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid action")

	w = do(r, http.MethodGet, "/api/v1/moderation/moderated-content?status=pending", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid status")

	missing := NewEngine("test", nil)
	NewHandler(&stubModerator{}, nil, review.NewService(missingContentStore{storage.NewMemoryAdapter()}, nil), nil).RegisterRoutes(missing)
	w = do(missing, http.MethodPost, "/api/v1/moderation/posts/p1/comments/c9/moderate", `{"action":"flag"}`, hdr)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "comment not found")
}

func TestModerationRoutesOptional(t *testing.T) {
	r := newTestEngine(&stubModerator{}, nil)
	w := do(r, http.MethodGet, "/api/v1/moderation/moderated-content", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
