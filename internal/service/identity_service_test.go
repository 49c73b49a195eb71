package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLH-TTU/MLH-website-sub002/internal/config"
	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type identityFixture struct {
	store *testStore
	clock *fakeClock
	gen   *scriptedGenerator
	svc   IdentityService
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	f := &identityFixture{
		store: newTestStore(),
		clock: newFakeClock(t0),
		gen:   &scriptedGenerator{},
	}
	logger, _ := observedLogger()
	f.svc = NewIdentityService(config.LinkingConfig{TokenTTL: 10 * time.Minute},
		f.store.users, f.store.tokens, f.gen, f.clock, logger)
	return f
}

func TestIdentity_LinkingScenario(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail,
		verified("alice@ttu.edu"), onboarded("R11111111"))

	token, err := f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.ProviderGoogle)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	merged, err := f.svc.ProcessLinking(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, i1.ID, merged.ID)
	assert.Equal(t, "bob@gmail.com", merged.Email)
	assert.Equal(t, model.ProviderGoogle, merged.Provider)
	assert.True(t, merged.OnboardingComplete)
	require.NotNil(t, merged.InstitutionalID)
	assert.Equal(t, "R11111111", *merged.InstitutionalID)

	_, err = f.svc.ProcessLinking(ctx, token)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)

	// A used token stays used once it would also have expired.
	f.clock.Advance(time.Hour)
	_, err = f.svc.ProcessLinking(ctx, token)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestIdentity_LinkingTokenExpires(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail)

	token, err := f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.ProviderGoogle)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.ProcessLinking(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "alice@example.com", f.store.reloadUser(t, i1.ID).Email)

	_, err = f.svc.ProcessLinking(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = f.svc.ProcessLinking(ctx, "")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestIdentity_LinkingIntoDeletedIdentity(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail)

	token, err := f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.ProviderGoogle)
	require.NoError(t, err)
	deleted, err := f.store.pending.DeleteAbandoned(ctx, i1.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = f.svc.ProcessLinking(ctx, token)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrTokenNotFound)
}

func TestIdentity_TokenStoredHashed(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail)
	f.gen.tokens = []string{"plain-token"}

	token, err := f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "plain-token", token)

	// Consuming by the raw value must miss; only the hash is a key.
	_, err = f.store.tokens.Consume(ctx, "plain-token", t0, func(*model.LinkingToken) error { return nil })
	assert.Error(t, err)
}

func TestIdentity_ConcurrentLinkingMergesOnce(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail)
	token, err := f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.ProviderGoogle)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ProcessLinking(ctx, token)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
	}
	assert.Equal(t, 1, succeeded)
}

func TestIdentity_LinkingDonorPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("abandoned donor is removed", func(t *testing.T) {
		f := newIdentityFixture(t)
		i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail, verified("alice@ttu.edu"))
		stub := f.store.addUser(t, "bob@gmail.com", model.ProviderGoogle)

		token, err := f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.ProviderGoogle)
		require.NoError(t, err)
		merged, err := f.svc.ProcessLinking(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "bob@gmail.com", merged.Email)

		_, err = f.svc.GetIdentity(ctx, stub.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("live donor blocks the merge", func(t *testing.T) {
		f := newIdentityFixture(t)
		i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail, verified("alice@ttu.edu"))
		f.store.addUser(t, "bob@gmail.com", model.ProviderGoogle, verified("bob@ttu.edu"))

		token, err := f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.ProviderGoogle)
		require.NoError(t, err)
		_, err = f.svc.ProcessLinking(ctx, token)
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
		assert.Equal(t, "alice@example.com", f.store.reloadUser(t, i1.ID).Email)

		// The token was not spent by the failed merge.
		_, err = f.svc.ProcessLinking(ctx, token)
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
	})
}

func TestIdentity_RegisterOrLinkEmail(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	existing := f.store.addUser(t, "bob@gmail.com", model.ProviderEmail, verified("bob@ttu.edu"))
	f.store.addUser(t, "stub@gmail.com", model.ProviderGoogle)
	requester := f.store.addUser(t, "carol@example.com", model.ProviderEmail, verified("carol@ttu.edu"))

	out, err := f.svc.RegisterOrLinkEmail(ctx, "new@gmail.com", model.ProviderGoogle, nil)
	require.NoError(t, err)
	assert.Equal(t, RegistrationCreate, out.Action)

	_, err = f.svc.RegisterOrLinkEmail(ctx, "BOB@gmail.com", model.ProviderEmail, nil)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	out, err = f.svc.RegisterOrLinkEmail(ctx, "bob@gmail.com", model.ProviderGoogle, nil)
	require.NoError(t, err)
	assert.Equal(t, RegistrationLink, out.Action)
	assert.Equal(t, existing.ID, out.ExistingIdentityID)

	out, err = f.svc.RegisterOrLinkEmail(ctx, "stub@gmail.com", model.ProviderGitHub, &requester.ID)
	require.NoError(t, err)
	assert.Equal(t, RegistrationLink, out.Action)
	assert.Equal(t, requester.ID, out.ExistingIdentityID)

	_, err = f.svc.RegisterOrLinkEmail(ctx, "bob@gmail.com", model.ProviderGoogle, &requester.ID)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	_, err = f.svc.RegisterOrLinkEmail(ctx, "bob@gmail.com", model.Provider("myspace"), nil)
	assert.ErrorIs(t, err, ErrInvalidProvider)
	_, err = f.svc.RegisterOrLinkEmail(ctx, "Bob <bob@gmail.com>", model.ProviderGoogle, nil)
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestIdentity_RegisterIdentityUnique(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)

	u, err := f.svc.RegisterIdentity(ctx, "Dana@Example.com", model.ProviderEmail)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", u.Email)
	assert.Equal(t, model.UserStatusActive, u.Status)

	_, err = f.svc.RegisterIdentity(ctx, "dana@example.com", model.ProviderGoogle)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestIdentity_Onboarding(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	unverified := f.store.addUser(t, "u@gmail.com", model.ProviderGoogle)
	taken := f.store.addUser(t, "t@gmail.com", model.ProviderGoogle, verified("t@ttu.edu"), onboarded("R00000001"))
	alice := f.store.addUser(t, "alice@gmail.com", model.ProviderGoogle, verified("alice@ttu.edu"))

	_, err := f.svc.CompleteOnboarding(ctx, unverified.ID, OnboardingInput{InstitutionalID: "R22222222"})
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	holder, err := f.svc.CheckInstitutionalIDExists(ctx, " r00000001 ")
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, taken.ID, holder.ID)

	none, err := f.svc.CheckInstitutionalIDExists(ctx, "R99999999")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = f.svc.CompleteOnboarding(ctx, alice.ID, OnboardingInput{FirstName: "Alice", InstitutionalID: "R00000001"})
	assert.ErrorIs(t, err, ErrInstitutionalIDTaken)

	_, err = f.svc.CompleteOnboarding(ctx, alice.ID, OnboardingInput{FirstName: "Alice"})
	assert.ErrorIs(t, err, ErrInvalidInstitutionalID)

	done, err := f.svc.CompleteOnboarding(ctx, alice.ID, OnboardingInput{
		FirstName: " Alice ", LastName: "Liddell", InstitutionalID: "r12345678",
	})
	require.NoError(t, err)
	assert.True(t, done.OnboardingComplete)
	assert.Equal(t, "Alice", done.FirstName)
	require.NotNil(t, done.InstitutionalID)
	assert.Equal(t, "R12345678", *done.InstitutionalID)

	_, err = f.svc.CompleteOnboarding(ctx, alice.ID, OnboardingInput{InstitutionalID: "R12345678"})
	assert.ErrorIs(t, err, ErrOnboardingAlreadyDone)

	_, err = f.svc.CompleteOnboarding(ctx, uuid.New(), OnboardingInput{InstitutionalID: "R1"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIdentity_ConcurrentOnboardingSameID(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	ids := make([]uuid.UUID, 6)
	for i := range ids {
		ids[i] = f.store.addUser(t, uuid.NewString()+"@gmail.com", model.ProviderGoogle,
			verified(uuid.NewString()+"@ttu.edu")).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.CompleteOnboarding(ctx, id, OnboardingInput{InstitutionalID: "R55555555"})
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInstitutionalIDTaken)
	}
	assert.Equal(t, 1, succeeded)
}

func TestIdentity_IssueLinkingTokenValidation(t *testing.T) {
	ctx := context.Background()
	f := newIdentityFixture(t)
	i1 := f.store.addUser(t, "alice@example.com", model.ProviderEmail)

	_, err := f.svc.IssueLinkingToken(ctx, uuid.New(), "bob@gmail.com", model.ProviderGoogle)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.svc.IssueLinkingToken(ctx, i1.ID, "alice@example.com", model.ProviderEmail)
	assert.ErrorIs(t, err, ErrLinkSameProvider)
	_, err = f.svc.IssueLinkingToken(ctx, i1.ID, "bob@gmail.com", model.Provider(""))
	assert.ErrorIs(t, err, ErrInvalidProvider)
}
