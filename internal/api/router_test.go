package api

import (
	"alcyxob/bmi-tracker/internal/auth"
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/service"
	"alcyxob/bmi-tracker/internal/storage"
	"alcyxob/bmi-tracker/internal/testutil"
	"alcyxob/bmi-tracker/internal/validation"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testCookie = "bmi_session"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	router   *gin.Engine
	users    *testutil.MockUserRepository
	records  *testutil.MockBMIRecordRepository
	plans    *testutil.MockDietPlanRepository
	sessions *auth.Sessions
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	users := testutil.NewMockUserRepository()
	records := testutil.NewMockBMIRecordRepository(users)
	plans := testutil.NewMockDietPlanRepository()
	sessions := auth.NewSessions("test-secret", time.Hour)

	services := Services{
		Auth:       service.NewAuthService(users, sessions, service.InstructorCredentials{LoginID: "instructor123", Password: "instructor@2024"}),
		BMI:        service.NewBMIService(records),
		Export:     service.NewExportService(records, storage.Disabled(), time.Minute),
		DietPlan:   service.NewDietPlanService(plans, users, validation.New()),
		Stats:      service.NewStatsService(users, records),
		Instructor: service.NewInstructorService(users, records),
	}
	router := NewRouter(RouterConfig{
		Sessions:     sessions,
		Cookie:       CookieOptions{Name: testCookie, MaxAge: 3600},
		LoginLimiter: limiter,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, services)

	return &testServer{router: router, users: users, records: records, plans: plans, sessions: sessions}
}

func (s *testServer) userToken(t *testing.T, u *domain.User) string {
	t.Helper()
	token, err := s.sessions.IssueUser(u)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (s *testServer) instructorToken(t *testing.T) string {
	t.Helper()
	token, err := s.sessions.IssueInstructor("instructor_1")
	if err != nil {
		t.Fatal(err)
	}
	return token
}

// do sends body as JSON; a non-empty token goes into the session cookie.
func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
}

func msgOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	decode(t, rec, &body)
	return body.Msg
}

func TestPing(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/ping", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response should carry a request id")
	}
}

func TestSubmitBMI(t *testing.T) {
	s := newTestServer(t, nil)
	u := s.users.AddUser("Ana", "ana@example.com")
	token := s.userToken(t, u)

	tests := []struct {
		name       string
		token      string
		body       interface{}
		wantStatus int
		wantStored int64
	}{
		{"no session", "", SubmitBMIRequest{WeightKg: 70, HeightCm: 175}, http.StatusUnauthorized, 0},
		{"invalid token", "garbage", SubmitBMIRequest{WeightKg: 70, HeightCm: 175}, http.StatusUnauthorized, 0},
		{"instructor session", s.instructorToken(t), SubmitBMIRequest{WeightKg: 70, HeightCm: 175}, http.StatusUnauthorized, 0},
		{"missing height", token, map[string]interface{}{"weightKg": 70}, http.StatusBadRequest, 0},
		{"negative weight", token, SubmitBMIRequest{WeightKg: -1, HeightCm: 175}, http.StatusBadRequest, 0},
		{"non-numeric", token, map[string]interface{}{"weightKg": "heavy", "heightCm": 175}, http.StatusBadRequest, 0},
		{"bmi overflows", token, SubmitBMIRequest{WeightKg: 70, HeightCm: 1e-200}, http.StatusBadRequest, 0},
		{"valid", token, SubmitBMIRequest{WeightKg: 70, HeightCm: 175}, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/bmi", tt.token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if n, _ := s.records.Count(context.Background()); n != tt.wantStored {
				t.Errorf("stored records = %d, want %d", n, tt.wantStored)
			}
			if tt.wantStatus == http.StatusUnauthorized && msgOf(t, rec) != msgLoginRequired {
				t.Errorf("msg = %q", msgOf(t, rec))
			}
		})
	}

	rec := s.do(http.MethodGet, "/api/bmi/history", token, nil)
	var history []domain.BMIRecord
	decode(t, rec, &history)
	if len(history) != 1 || history[0].BMI != 22.86 || history[0].Category != domain.CategoryNormal {
		t.Errorf("history = %+v", history)
	}

	rec = s.do(http.MethodGet, "/api/instructor/stats", s.instructorToken(t), nil)
	var stats domain.Stats
	decode(t, rec, &stats)
	if stats.TotalBMIRecords != 1 || stats.AverageBMI != 22.9 {
		t.Errorf("stats after rejected submissions = %+v", stats)
	}
}

func TestBearerHeaderAuthenticates(t *testing.T) {
	s := newTestServer(t, nil)
	u := s.users.AddUser("Ana", "ana@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/bmi/history", nil)
	req.Header.Set("Authorization", "Bearer "+s.userToken(t, u))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "[]" {
		t.Errorf("empty history should be [], got %s", rec.Body.String())
	}
}

func TestExportWithoutStorage(t *testing.T) {
	s := newTestServer(t, nil)
	u := s.users.AddUser("Ana", "ana@example.com")

	rec := s.do(http.MethodGet, "/api/bmi/history/export", s.userToken(t, u), nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/auth/signup", "", SignupRequest{Name: "Ana", Email: "ana@example.com", Password: "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	var signup UserResponse
	decode(t, rec, &signup)
	if signup.Role != domain.RoleUser || signup.ID == "" {
		t.Errorf("signup = %+v", signup)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("signup should set an HttpOnly session cookie, got %+v", cookie)
	}

	rec = s.do(http.MethodGet, "/api/auth/me", cookie.Value, nil)
	var me struct {
		User map[string]interface{} `json:"user"`
	}
	decode(t, rec, &me)
	if me.User["email"] != "ana@example.com" {
		t.Errorf("me = %+v", me.User)
	}
	if _, leaked := me.User["password"]; leaked {
		t.Error("me must not expose the password")
	}

	rec = s.do(http.MethodGet, "/api/auth/me", "", nil)
	if rec.Body.String() != `{"user":null}` {
		t.Errorf("anonymous me = %s", rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/api/auth/signup", "", SignupRequest{Name: "Ana", Email: "ana@example.com", Password: "x"})
	if rec.Code != http.StatusBadRequest || msgOf(t, rec) != "Email already used" {
		t.Errorf("duplicate signup = %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ana@example.com", Password: "wrong"})
	if rec.Code != http.StatusBadRequest || msgOf(t, rec) != "Invalid credentials" {
		t.Errorf("bad login = %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ana@example.com", Password: "secret"})
	if rec.Code != http.StatusOK {
		t.Errorf("login status = %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/auth/logout", cookie.Value, nil)
	if rec.Code != http.StatusOK || msgOf(t, rec) != "Logged out" {
		t.Errorf("logout = %d %s", rec.Code, rec.Body.String())
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout should clear the session cookie")
	}
}

func TestInstructorLogin(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       InstructorLoginRequest
		wantStatus int
	}{
		{"missing password", InstructorLoginRequest{LoginID: "instructor123"}, http.StatusBadRequest},
		{"wrong password", InstructorLoginRequest{LoginID: "instructor123", Password: "nope"}, http.StatusUnauthorized},
		{"valid", InstructorLoginRequest{LoginID: "instructor123", Password: "instructor@2024"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/auth/instructor-login", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var profile InstructorResponse
			decode(t, rec, &profile)
			if profile.ID != "instructor" || profile.Email != "instructor@bmi-tracker.com" || profile.Token == "" {
				t.Errorf("profile = %+v", profile)
			}

			stats := s.do(http.MethodGet, "/api/instructor/stats", profile.Token, nil)
			if stats.Code != http.StatusOK {
				t.Errorf("instructor session rejected by stats: %d", stats.Code)
			}
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, NewRateLimiter(0.001, 2))
	body := LoginRequest{Email: "nobody@example.com", Password: "x"}

	for i := 0; i < 2; i++ {
		if rec := s.do(http.MethodPost, "/api/auth/login", "", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d status = %d, want 400", i+1, rec.Code)
		}
	}
	rec := s.do(http.MethodPost, "/api/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}

	// signup is not limited
	if rec := s.do(http.MethodPost, "/api/auth/signup", "", SignupRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("signup status = %d, want 400", rec.Code)
	}
}

func TestInstructorRoutesRequireInstructor(t *testing.T) {
	s := newTestServer(t, nil)
	u := s.users.AddUser("Ana", "ana@example.com")
	userToken := s.userToken(t, u)

	paths := []struct{ method, path string }{
		{http.MethodPost, "/api/diet-plan/create"},
		{http.MethodGet, "/api/diet-plan/user/" + u.ID.Hex()},
		{http.MethodGet, "/api/diet-plan/all"},
		{http.MethodPut, "/api/diet-plan/" + primitive.NewObjectID().Hex()},
		{http.MethodPut, "/api/diet-plan/" + primitive.NewObjectID().Hex() + "/deactivate"},
		{http.MethodGet, "/api/instructor/stats"},
		{http.MethodGet, "/api/instructor/all-users"},
		{http.MethodGet, "/api/instructor/user/" + u.ID.Hex() + "/bmi-history"},
	}
	for _, p := range paths {
		for _, token := range []string{"", userToken} {
			rec := s.do(p.method, p.path, token, map[string]string{})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s %s (token=%t) status = %d, want 401", p.method, p.path, token != "", rec.Code)
				continue
			}
			if msgOf(t, rec) != msgInstructorRequired {
				t.Errorf("%s %s msg = %q", p.method, p.path, msgOf(t, rec))
			}
		}
	}

	for _, path := range []string{"/api/diet-plan/my-plan", "/api/diet-plan/my-plans"} {
		if rec := s.do(http.MethodGet, path, s.instructorToken(t), nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s with instructor session = %d, want 401", path, rec.Code)
		}
	}
}
