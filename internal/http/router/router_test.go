package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tender-portal/internal/config"
	"github.com/ignatzorin/tender-portal/internal/http/middleware"
	"github.com/ignatzorin/tender-portal/internal/http/router"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/jobstore"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/mailer"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/memory"
	"github.com/ignatzorin/tender-portal/internal/interface/http/handler"
	"github.com/ignatzorin/tender-portal/internal/notification"
	"github.com/ignatzorin/tender-portal/internal/service"
	notificationuc "github.com/ignatzorin/tender-portal/internal/usecase/notification"
	"github.com/ignatzorin/tender-portal/internal/usecase/submission"
	"github.com/ignatzorin/tender-portal/internal/usecase/tender"
	"github.com/ignatzorin/tender-portal/internal/ws"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   int             `json:"total"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	tokens *service.TokenManager
	token  string
}

func newTestServer(t *testing.T, rateLimit int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Env:             "test",
		RateLimitLimit:  rateLimit,
		RateLimitPeriod: time.Minute,
	}

	tenderRepo := memory.NewTenderRepository()
	submissionRepo := memory.NewSubmissionRepository()
	tenderRepo.TrackSubmissions(submissionRepo)
	tokens := service.NewTokenManager("router-test-secret", time.Hour)
	adminHash, err := service.HashPassword("correct horse")
	require.NoError(t, err)

	runUC := notificationuc.NewRunUseCase(
		tenderRepo,
		submissionRepo,
		notification.NewSelector(notification.EmbeddedDocuments{}),
		notification.NewRenderer(),
		notification.NewDispatcher(mailer.NewLogSender(log), notification.DispatcherConfig{}, log),
		jobstore.NewMemoryStore(),
		nil,
		log,
	)
	t.Cleanup(runUC.Wait)

	handlers := router.Handlers{
		Auth: handler.NewAuthHandler(service.NewAdminAuthenticator("admin@city.example", adminHash, tokens)),
		Tender: handler.NewTenderHandler(
			tender.NewCreateTenderUseCase(tenderRepo),
			tender.NewGetTenderUseCase(tenderRepo, submissionRepo),
			tender.NewListTendersUseCase(tenderRepo, submissionRepo),
			tender.NewTenderStatsUseCase(tenderRepo, submissionRepo),
			tender.NewPublishTenderUseCase(tenderRepo, submissionRepo),
			tender.NewStartEvaluationUseCase(tenderRepo, submissionRepo),
			tender.NewAwardTenderUseCase(tenderRepo, submissionRepo),
			tender.NewRejectTenderUseCase(tenderRepo, submissionRepo),
			tender.NewCloseTenderUseCase(tenderRepo, submissionRepo),
			tender.NewDeleteTenderUseCase(tenderRepo),
		),
		Submission: handler.NewSubmissionHandler(
			submission.NewCreateSubmissionUseCase(tenderRepo, submissionRepo),
			submission.NewGetSubmissionUseCase(submissionRepo),
			submission.NewListSubmissionsUseCase(tenderRepo, submissionRepo),
			submission.NewStartReviewUseCase(submissionRepo),
			submission.NewEvaluateSubmissionUseCase(submissionRepo),
			submission.NewAwardSubmissionUseCase(submissionRepo),
			submission.NewRejectSubmissionUseCase(submissionRepo),
		),
		Notification: handler.NewNotificationHandler(runUC),
		WS:           handler.NewWSHandler(ws.NewHub(context.Background(), log), tokens, nil),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"store": func(ctx context.Context) error { return nil },
		}),
	}

	store, err := middleware.NewRateLimitStore(nil)
	require.NoError(t, err)

	token, _, err := tokens.Issue(uuid.New(), service.RoleAdmin)
	require.NoError(t, err)

	return &testServer{
		engine: router.SetupRouter(cfg, handlers, tokens, store, log),
		tokens: tokens,
		token:  token,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) openTender(t *testing.T) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/tenders", map[string]any{
		"title":        "Roof Repair",
		"category":     "Construction",
		"description":  "Repair of the municipal library roof",
		"budget":       120000,
		"currency":     "eur",
		"closing_date": time.Now().AddDate(0, 1, 0).Format(time.DateOnly),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Currency string `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "draft", created.Status)
	assert.Equal(t, "EUR", created.Currency)

	w, _ = s.do(t, http.MethodPost, "/api/tenders/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return created.ID
}

func TestRouter_RequiresAdminToken(t *testing.T) {
	s := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	viewer, _, err := s.tokens.Issue(uuid.New(), "viewer")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_HealthIsPublic(t *testing.T) {
	s := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"healthy"`)
}

func TestRouter_InvalidIDs(t *testing.T) {
	s := newTestServer(t, 10)

	w, env := s.do(t, http.MethodGet, "/api/tenders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/tenders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, _ = s.do(t, http.MethodGet, "/api/submissions?tender_id=42", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_TenderAndSubmissionFlow(t *testing.T) {
	s := newTestServer(t, 10)
	tenderID := s.openTender(t)

	w, env := s.do(t, http.MethodPost, "/api/submissions", map[string]any{
		"tender_id":     tenderID,
		"company_name":  "Alpha Builders",
		"contact_email": "office@alpha.example",
		"documents":     []map[string]string{{"name": "License", "status": "missing"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sub struct {
		ID                string  `json:"id"`
		ApplicationNumber *string `json:"application_number"`
		Status            string  `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	require.NotNil(t, sub.ApplicationNumber)
	assert.Equal(t, "submitted", sub.Status)

	w, _ = s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/evaluate", map[string]any{"score": 70})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/review", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/evaluate", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/submissions/"+sub.ID+"/evaluate", map[string]any{"score": 70})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodGet, "/api/submissions?status=Evaluated&tender_id="+tenderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.Total)

	w, env = s.do(t, http.MethodGet, "/api/tenders/"+tenderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		SubmissionsCount int `json:"submissions_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 1, got.SubmissionsCount)

	w, env = s.do(t, http.MethodDelete, "/api/tenders/"+tenderID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/tenders/"+tenderID+"?force=true", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/submissions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, env.Total)
}

func TestRouter_NotificationJobs(t *testing.T) {
	s := newTestServer(t, 10)
	tenderID := s.openTender(t)

	for _, email := range []string{"a@bidder.example", "b@bidder.example"} {
		w, _ := s.do(t, http.MethodPost, "/api/submissions", map[string]any{
			"tender_id":     tenderID,
			"company_name":  "Bidder",
			"contact_email": email,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, env := s.do(t, http.MethodGet, "/api/notifications/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var templates []notification.Template
	require.NoError(t, json.Unmarshal(env.Data, &templates))
	assert.Len(t, templates, 6)

	w, env = s.do(t, http.MethodPost, "/api/notifications/recipients", map[string]any{"policy": "all"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, env.Total)

	w, env = s.do(t, http.MethodPost, "/api/notifications/jobs?wait=true", map[string]any{
		"template_id": "received",
		"tender_id":   tenderID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report notification.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, notification.JobStateComplete, report.State)
	assert.Equal(t, 2, report.Successful)

	w, env = s.do(t, http.MethodGet, "/api/notifications/jobs/"+report.JobID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/notifications/jobs/"+report.JobID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/notifications/jobs", map[string]any{"template_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TEMPLATE_NOT_FOUND", env.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/notifications/jobs", map[string]any{"template_id": "custom"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/notifications/jobs", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_StartJobAccepted(t *testing.T) {
	s := newTestServer(t, 10)
	s.openTender(t)

	w, env := s.do(t, http.MethodPost, "/api/notifications/jobs", map[string]any{"template_id": "received"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var report notification.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.NotEqual(t, uuid.Nil, report.JobID)
}

func TestRouter_RateLimitsJobRuns(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		w, _ := s.do(t, http.MethodPost, "/api/notifications/jobs?wait=true", map[string]any{"template_id": "received"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w, env := s.do(t, http.MethodPost, "/api/notifications/jobs?wait=true", map[string]any{"template_id": "received"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)

	// Чтение не ограничивается.
	w, _ = s.do(t, http.MethodGet, "/api/notifications/templates", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminLogin(t *testing.T) {
	s := newTestServer(t, 10)

	login := func(email, password string) *httptest.ResponseRecorder {
		raw, err := json.Marshal(map[string]string{"email": email, "password": password})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, login("admin@city.example", "wrong").Code)
	assert.Equal(t, http.StatusBadRequest, login("not-an-email", "correct horse").Code)

	w := login("admin@city.example", "correct horse")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var result service.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &result))

	s.token = result.AccessToken
	got, _ := s.do(t, http.MethodGet, "/api/tenders", nil)
	assert.Equal(t, http.StatusOK, got.Code)
}
