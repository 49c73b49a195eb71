package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/config"
	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
	"github.com/MLH-TTU/MLH-website-sub002/internal/repository"
	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	jwtpkg "github.com/MLH-TTU/MLH-website-sub002/pkg/jwt"
)

var t0 = time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// queuedCodes serves queued numeric codes before falling back to random ones.
type queuedCodes struct {
	mu    sync.Mutex
	queue []string
}

func (g *queuedCodes) push(codes ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, codes...)
}

func (g *queuedCodes) NumericCode(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return service.NewSecureGenerator().NumericCode(length)
	}
	c := g.queue[0]
	g.queue = g.queue[1:]
	return c, nil
}

func (g *queuedCodes) Token() (string, error) {
	return service.NewSecureGenerator().Token()
}

// mailbox keeps the latest secret sent to each address.
type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
	links map[string]string
}

func newMailbox() *mailbox {
	return &mailbox{codes: map[string]string{}, links: map[string]string{}}
}

func (m *mailbox) SendCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *mailbox) SendLinkToken(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[to] = token
	return nil
}

func (m *mailbox) link(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[to]
}

type testServer struct {
	router   *gin.Engine
	jwt      *jwtpkg.Manager
	clock    *stubClock
	codes    *queuedCodes
	mail     *mailbox
	identity service.IdentityService
	adminID  uuid.UUID
	adminTok string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Verification: config.VerificationConfig{
			AllowedDomains:   []string{"ttu.edu"},
			CodeLength:       6,
			CodeTTL:          10 * time.Minute,
			MaxAttempts:      3,
			ExhaustionPolicy: config.ExhaustionRateLimit,
			Cooldown:         5 * time.Minute,
			HashCost:         4,
		},
		Attendance: config.AttendanceConfig{CodeLength: 6, MaxGenerateAttempts: 5},
	}

	logger := zap.NewNop()
	db := repository.NewMemoryDB()
	userRepo := repository.NewMemoryUserRepository(db)
	clock := &stubClock{now: t0}
	codes := &queuedCodes{}
	mail := newMailbox()
	jwtManager := jwtpkg.NewManager("handler-test-key", "test", time.Hour)

	identitySvc := service.NewIdentityService(cfg.Linking, userRepo,
		repository.NewMemoryLinkingTokenRepository(db), codes, clock, logger)
	verificationSvc := service.NewVerificationService(cfg.Verification, userRepo,
		repository.NewMemoryVerificationRepository(db), repository.NewMemoryStateStore(),
		mail, codes, clock, logger)
	attendanceSvc := service.NewAttendanceService(cfg.Attendance,
		repository.NewMemoryEventRepository(db), repository.NewMemoryAttendanceCodeRepository(db),
		repository.NewMemoryAttendanceRepository(db), userRepo, codes, clock, logger)
	authSvc := service.NewAuthService(identitySvc, mail, jwtManager, logger)

	admin, err := identitySvc.RegisterIdentity(context.Background(), "officer@ttu.edu", model.ProviderGoogle)
	require.NoError(t, err)
	adminTok, err := jwtManager.GenerateAccessToken(admin.ID)
	require.NoError(t, err)
	cfg.Admin.UserIDs = []string{admin.ID.String()}

	router := SetupRouter(cfg, logger, jwtManager,
		NewAuthHandler(authSvc, logger),
		NewVerificationHandler(verificationSvc, cfg.Verification.CodeLength, clock, logger),
		NewIdentityHandler(identitySvc, logger),
		NewAttendanceHandler(attendanceSvc, cfg.Attendance.CodeLength, logger),
		NewAdminHandler(attendanceSvc, logger),
	)

	return &testServer{
		router:   router,
		jwt:      jwtManager,
		clock:    clock,
		codes:    codes,
		mail:     mail,
		identity: identitySvc,
		adminID:  admin.ID,
		adminTok: adminTok,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// signIn registers a fresh identity through the API and returns its token.
func (s *testServer) signIn(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "",
		gin.H{"email": email, "provider": "google"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[service.AuthResult](t, env.Data)
	require.Equal(t, service.AuthSignedIn, res.Status)
	return res.User.ID, res.Tokens.AccessToken
}

// onboard verifies instEmail with code and completes onboarding.
func (s *testServer) onboard(t *testing.T, token, instEmail, code, instID string) {
	t.Helper()
	s.codes.push(code)
	w, _ := s.do(t, http.MethodPost, "/api/v1/verification/request", token, gin.H{"email": instEmail})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = s.do(t, http.MethodPost, "/api/v1/verification/verify", token, gin.H{"code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = s.do(t, http.MethodPost, "/api/v1/onboarding", token, gin.H{
		"first_name": "Raider", "last_name": "Red", "institutional_id": instID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
