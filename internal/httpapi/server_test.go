package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/events"
	"github.com/voxhire/voxhire/internal/health"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/notify"
	"github.com/voxhire/voxhire/internal/resilience"
	"github.com/voxhire/voxhire/internal/store"
	"github.com/voxhire/voxhire/internal/store/memstore"
	"github.com/voxhire/voxhire/internal/worker"
	blobmock "github.com/voxhire/voxhire/pkg/blob/mock"
	fgenmock "github.com/voxhire/voxhire/pkg/provider/feedbackgen/mock"
	qgenmock "github.com/voxhire/voxhire/pkg/provider/questiongen/mock"
	sttmock "github.com/voxhire/voxhire/pkg/provider/stt/mock"
)

var testSecret = []byte("test-secret")

// harness runs the real interview service over the in-memory store and the
// provider mocks, so handler tests exercise the full request path.
type harness struct {
	ms     *memstore.Store
	st     store.Store
	blobs  *blobmock.Store
	qgen   *qgenmock.Provider
	speech *sttmock.Provider
	fgen   *fgenmock.Provider
	pool   *worker.Pool
	hub    *notify.Hub
	svc    *interview.Service
	srv    *Server

	handler http.Handler
}

func newHarness() *harness {
	ms := memstore.New()
	pool := worker.New(worker.Config{Workers: 2, QueueSize: 32})
	pool.Start()
	bus := events.NewBus(pool)
	st := ms.Bundle(bus.FlushStaged)

	h := &harness{
		ms:     ms,
		st:     st,
		blobs:  blobmock.NewStore(),
		qgen:   &qgenmock.Provider{},
		speech: &sttmock.Provider{SubmitID: "stt-1"},
		fgen:   &fgenmock.Provider{},
		pool:   pool,
		hub:    notify.NewHub(),
	}
	h.svc = interview.New(h.st, h.blobs, h.qgen, h.speech, h.fgen,
		fastExec(domain.TargetQuestionGen),
		fastExec(domain.TargetSTT),
		fastExec(domain.TargetFeedbackGen),
		bus, pool,
		interview.Config{STTPollInterval: time.Millisecond, STTPollAttempts: 5})
	h.srv = New(h.svc, h.hub, health.New(), Config{JWTSecret: testSecret})
	h.handler = h.srv.Routes()
	return h
}

func fastExec(target string) *resilience.Executor {
	return resilience.NewExecutor(resilience.ExecutorConfig{
		Target: target,
		Retry:  resilience.RetryPolicy{MaxAttempts: 1},
	})
}

// drain rejects new work and waits for every scheduled job to finish.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.pool.Shutdown(ctx); err != nil {
		t.Fatalf("draining worker pool: %v", err)
	}
}

// testToken mints an HS256 bearer token for userID, signed with secret.
func testToken(t *testing.T, secret []byte, userID int64) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

// do runs one authenticated request against the router and records the
// response. A non-nil body is sent as JSON.
func (h *harness) do(t *testing.T, method, target string, userID int64, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testToken(t, testSecret, userID))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the recorded response into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

// seedCandidate creates the resume and job role Start validates against.
func (h *harness) seedCandidate(t *testing.T, userID int64) (resumeID, roleID int64) {
	t.Helper()
	ctx := context.Background()

	resume := domain.Resume{
		UserID:        userID,
		ObjectKey:     "resumes/1/resume_1700000000000.pdf",
		ExtractedText: "Experienced backend developer",
	}
	if err := h.st.Resumes.Create(ctx, &resume); err != nil {
		t.Fatalf("seeding resume: %v", err)
	}

	role := domain.JobRole{Title: "Software Engineer", Description: "Builds backend services"}
	if err := h.st.JobRoles.Create(ctx, &role); err != nil {
		t.Fatalf("seeding job role: %v", err)
	}
	return resume.ID, role.ID
}

// seedInterview creates an interview in the given status with n questions.
func (h *harness) seedInterview(t *testing.T, userID int64, status domain.Status, n int) (domain.Interview, []*domain.Question) {
	t.Helper()
	ctx := context.Background()

	resumeID, roleID := h.seedCandidate(t, userID)
	iv := domain.Interview{
		UserID:    userID,
		ResumeID:  resumeID,
		JobRoleID: roleID,
		Status:    status,
	}
	if err := h.st.Interviews.Create(ctx, &iv); err != nil {
		t.Fatalf("seeding interview: %v", err)
	}

	qs := make([]*domain.Question, n)
	for i := range qs {
		qs[i] = &domain.Question{
			InterviewID: iv.ID,
			Ordinal:     i + 1,
			Text:        "Question " + string(rune('A'+i)),
			Category:    domain.CategoryTechnical,
			Difficulty:  domain.DifficultyMedium,
		}
	}
	if err := h.st.Questions.CreateBatch(ctx, qs); err != nil {
		t.Fatalf("seeding questions: %v", err)
	}
	return iv, qs
}

// ─────────────────────────────────────────────────────────────────────────────
// Platform routes
// ─────────────────────────────────────────────────────────────────────────────

func TestHealthz_Unauthenticated(t *testing.T) {
	h := newHarness()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want an ok status", rec.Body.String())
	}
}

func TestMetrics_MountedWhenEnabled(t *testing.T) {
	h := newHarness()
	srv := New(h.svc, h.hub, health.New(), Config{JWTSecret: testSecret, MetricsEnabled: true})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
}

func TestMetrics_AbsentWhenDisabled(t *testing.T) {
	h := newHarness()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /metrics = %d, want 404", rec.Code)
	}
}

func TestRequestID_EchoedAndGenerated(t *testing.T) {
	h := newHarness()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Errorf("inbound request id not echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("no request id generated")
	}
}
