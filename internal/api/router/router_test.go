package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/api/dto"
	"github.com/cuongbtq/jobmarket-be/internal/api/handler"
	"github.com/cuongbtq/jobmarket-be/internal/auth"
	"github.com/cuongbtq/jobmarket-be/internal/catalog"
	"github.com/cuongbtq/jobmarket-be/internal/domain"
	"github.com/cuongbtq/jobmarket-be/internal/ledger"
	"github.com/cuongbtq/jobmarket-be/internal/store/memory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

type stubAllower struct {
	allow bool
	err   error
}

func (s stubAllower) Allow(context.Context, string) (bool, error) {
	return s.allow, s.err
}

func newTestDeps() *handler.Dependencies {
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()

	return &handler.Dependencies{
		Logger:  logger,
		Store:   st,
		Catalog: catalog.NewService(st.Jobs(), logger),
		Ledger:  ledger.NewService(st.Bids(), st.Jobs(), nil, logger),
		Tokens:  auth.NewTokenService("test-secret", time.Hour),
		Session: handler.SessionConfig{CookieName: "token"},
	}
}

func newTestRouter(opts Options) (*gin.Engine, *handler.Dependencies) {
	deps := newTestDeps()
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{testOrigin}
	}
	return SetupRouter(deps, opts), deps
}

func do(t *testing.T, r http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func login(t *testing.T, r http.Handler, email string) *http.Cookie {
	t.Helper()

	rec := do(t, r, http.MethodPost, "/jwt", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatalf("no session cookie for %s", email)
	return nil
}

func TestScenario_JobBidAndListings(t *testing.T) {
	r, _ := newTestRouter(Options{})

	rec := do(t, r, http.MethodPost, "/add-job", map[string]any{
		"title":    "Logo Design",
		"category": "Design",
		"deadline": "2024-06-01",
		"buyer":    map[string]string{"email": "buyer@x.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[dto.InsertResponse](t, rec)
	assert.True(t, created.Acknowledged)
	jobID := created.InsertedID

	bid := map[string]any{"email": "f@x.com", "jobId": jobID, "buyer": "buyer@x.com"}

	rec = do(t, r, http.MethodPost, "/add-bid", bid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bidID := decode[dto.InsertResponse](t, rec).InsertedID

	rec = do(t, r, http.MethodGet, "/job/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[domain.Job](t, rec)
	assert.Equal(t, 1, job.BidCount)
	assert.Equal(t, "buyer@x.com", job.Buyer.Email)
	assert.True(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Equal(job.Deadline))

	rec = do(t, r, http.MethodPost, "/add-bid", bid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "you have already placed a bid on this job", rec.Body.String())

	rec = do(t, r, http.MethodGet, "/bids/f@x.com", nil, login(t, r, "f@x.com"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mine := decode[[]domain.Bid](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, bidID, mine[0].ID)
	assert.Equal(t, domain.BidStatusPending, mine[0].Status)

	rec = do(t, r, http.MethodGet, "/bids/buyer@x.com?buyer=true", nil, login(t, r, "buyer@x.com"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requests := decode[[]domain.Bid](t, rec)
	require.Len(t, requests, 1)
	assert.Equal(t, bidID, requests[0].ID)
}

func TestRequireSession_Rejections(t *testing.T) {
	r, deps := newTestRouter(Options{})

	expired := auth.NewTokenService("test-secret", time.Nanosecond)
	stale, err := expired.Issue(auth.Identity{Email: "a@x.com"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	forged, err := auth.NewTokenService("other-secret", time.Hour).Issue(auth.Identity{Email: "a@x.com"})
	require.NoError(t, err)

	other, err := deps.Tokens.Issue(auth.Identity{Email: "b@x.com"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{name: "no cookie"},
		{name: "garbage", cookies: []*http.Cookie{{Name: "token", Value: "garbage"}}},
		{name: "expired", cookies: []*http.Cookie{{Name: "token", Value: stale}}},
		{name: "wrong secret", cookies: []*http.Cookie{{Name: "token", Value: forged}}},
		{name: "other user", cookies: []*http.Cookie{{Name: "token", Value: other}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, "/bids/a@x.com", nil, tt.cookies...)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"message":"unauthorized access"}`, rec.Body.String())
		})
	}
}

func TestRequireSession_ShortCircuits(t *testing.T) {
	deps := newTestDeps()

	reached := false
	r := gin.New()
	r.GET("/private", RequireSession(deps.Tokens, "token", deps.Logger), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	rec := do(t, r, http.MethodGet, "/private", nil, &http.Cookie{Name: "token", Value: "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)

	token, err := deps.Tokens.Issue(auth.Identity{Email: "a@x.com"})
	require.NoError(t, err)

	rec = do(t, r, http.MethodGet, "/private", nil, &http.Cookie{Name: "token", Value: token})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestSessionCookie(t *testing.T) {
	r, _ := newTestRouter(Options{})

	rec := do(t, r, http.MethodPost, "/jwt", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	header := rec.Header().Get("Set-Cookie")
	assert.Contains(t, header, "token=")
	assert.Contains(t, header, "HttpOnly")
	assert.Contains(t, header, "SameSite=Strict")
	assert.NotContains(t, header, "Secure")

	rec = do(t, r, http.MethodGet, "/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")

	rec = do(t, r, http.MethodPost, "/jwt", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionCookie_Production(t *testing.T) {
	deps := newTestDeps()
	deps.Session.Production = true
	r := SetupRouter(deps, Options{AllowedOrigins: []string{testOrigin}})

	rec := do(t, r, http.MethodPost, "/jwt", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	header := rec.Header().Get("Set-Cookie")
	assert.Contains(t, header, "Secure")
	assert.Contains(t, header, "SameSite=None")
}

func TestJobRoutes_Errors(t *testing.T) {
	r, _ := newTestRouter(Options{})

	rec := do(t, r, http.MethodGet, "/job/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/job/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/add-job", map[string]any{"title": "x", "deadline": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodDelete, "/job/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"acknowledged":true,"deletedCount":0}`, rec.Body.String())
}

func TestUpdateJob_UpsertsMissingID(t *testing.T) {
	r, _ := newTestRouter(Options{})
	id := uuid.NewString()

	rec := do(t, r, http.MethodPut, "/update-job/"+id, map[string]any{
		"title":    "Fresh",
		"category": "Web",
		"buyer":    map[string]string{"email": "b@x.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[dto.UpdateResponse](t, rec)
	assert.Equal(t, id, res.UpsertedID)

	rec = do(t, r, http.MethodGet, "/job/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fresh", decode[domain.Job](t, rec).Title)

	rec = do(t, r, http.MethodGet, "/jobs/b@x.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Job](t, rec), 1)
}

func TestBrowseJobs(t *testing.T) {
	r, _ := newTestRouter(Options{})

	for _, j := range []map[string]any{
		{"title": "Logo Design", "category": "Design", "deadline": "2024-06-10"},
		{"title": "Web design", "category": "Web", "deadline": "2024-06-01"},
		{"title": "API", "category": "Web", "deadline": "2024-06-05"},
	} {
		require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/add-job", j).Code)
	}

	rec := do(t, r, http.MethodGet, "/all-jobs?search=DE&sort=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode[[]domain.Job](t, rec)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Web design", jobs[0].Title)
	assert.Equal(t, "Logo Design", jobs[1].Title)

	rec = do(t, r, http.MethodGet, "/all-jobs?filter=Web&sort=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	jobs = decode[[]domain.Job](t, rec)
	require.Len(t, jobs, 2)
	assert.Equal(t, "API", jobs[0].Title)

	rec = do(t, r, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Job](t, rec), 3)
}

func TestUpdateBidStatus(t *testing.T) {
	r, deps := newTestRouter(Options{})

	bidID, err := deps.Ledger.PlaceBid(context.Background(), domain.Bid{Email: "f@x.com", JobID: "J1", Buyer: "b@x.com"})
	require.NoError(t, err)

	rec := do(t, r, http.MethodPatch, "/bid-status-update/"+bidID, map[string]string{"status": "In Progress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decode[dto.UpdateResponse](t, rec).MatchedCount)

	rec = do(t, r, http.MethodPatch, "/bid-status-update/"+bidID, map[string]string{"status": "won"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPatch, "/bid-status-update/nope", map[string]string{"status": "Complete"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceBid_Validation(t *testing.T) {
	r, _ := newTestRouter(Options{})

	rec := do(t, r, http.MethodPost, "/add-bid", map[string]any{"email": "f@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/add-bid", map[string]any{"email": "f@x.com", "jobId": "J1", "status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	bid := map[string]any{"email": "f@x.com", "jobId": "J1"}

	r, _ := newTestRouter(Options{BidLimiter: stubAllower{allow: false}})
	rec := do(t, r, http.MethodPost, "/add-bid", bid)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	r, _ = newTestRouter(Options{BidLimiter: stubAllower{err: errors.New("redis down")}})
	rec = do(t, r, http.MethodPost, "/add-bid", bid)
	assert.Equal(t, http.StatusOK, rec.Code)

	r, _ = newTestRouter(Options{BidLimiter: stubAllower{allow: true}})
	rec = do(t, r, http.MethodPost, "/add-bid", bid)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	r, _ := newTestRouter(Options{})

	req := httptest.NewRequest(http.MethodOptions, "/add-bid", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(Options{})

	rec := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
