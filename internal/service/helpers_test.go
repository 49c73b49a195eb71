package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
	"github.com/MLH-TTU/MLH-website-sub002/internal/repository"
)

var t0 = time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedGenerator hands out queued values first and falls back to the
// secure generator once the queue is empty.
type scriptedGenerator struct {
	mu     sync.Mutex
	codes  []string
	tokens []string
	drawn  int
}

func (g *scriptedGenerator) NumericCode(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drawn++
	if len(g.codes) == 0 {
		return NewSecureGenerator().NumericCode(length)
	}
	c := g.codes[0]
	g.codes = g.codes[1:]
	return c, nil
}

func (g *scriptedGenerator) Token() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.tokens) == 0 {
		return NewSecureGenerator().Token()
	}
	t := g.tokens[0]
	g.tokens = g.tokens[1:]
	return t, nil
}

func (g *scriptedGenerator) Drawn() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drawn
}

type sentMessage struct {
	To     string
	Secret string
}

type recordingNotifier struct {
	mu    sync.Mutex
	codes []sentMessage
	links []sentMessage
	err   error
}

func (n *recordingNotifier) SendCode(_ context.Context, to, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes = append(n.codes, sentMessage{To: to, Secret: code})
	return n.err
}

func (n *recordingNotifier) SendLinkToken(_ context.Context, to, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, sentMessage{To: to, Secret: token})
	return n.err
}

func (n *recordingNotifier) lastLink() sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.links) == 0 {
		return sentMessage{}
	}
	return n.links[len(n.links)-1]
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

type testStore struct {
	db      *repository.MemoryDB
	users   repository.UserRepository
	pending repository.VerificationRepository
	events  repository.EventRepository
	codes   repository.AttendanceCodeRepository
	records repository.AttendanceRepository
	tokens  repository.LinkingTokenRepository
	state   repository.StateStore
}

func newTestStore() *testStore {
	db := repository.NewMemoryDB()
	return &testStore{
		db:      db,
		users:   repository.NewMemoryUserRepository(db),
		pending: repository.NewMemoryVerificationRepository(db),
		events:  repository.NewMemoryEventRepository(db),
		codes:   repository.NewMemoryAttendanceCodeRepository(db),
		records: repository.NewMemoryAttendanceRepository(db),
		tokens:  repository.NewMemoryLinkingTokenRepository(db),
		state:   repository.NewMemoryStateStore(),
	}
}

func (s *testStore) addUser(t *testing.T, email string, provider model.Provider, mutate ...func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.New(), Email: email, Provider: provider, Status: model.UserStatusActive}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testStore) reloadUser(t *testing.T, id uuid.UUID) *model.User {
	t.Helper()
	u, err := s.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func verified(institutionalEmail string) func(*model.User) {
	return func(u *model.User) {
		u.EmailVerified = true
		u.InstitutionalEmail = &institutionalEmail
	}
}

func onboarded(institutionalID string) func(*model.User) {
	return func(u *model.User) {
		u.OnboardingComplete = true
		u.InstitutionalID = &institutionalID
	}
}

