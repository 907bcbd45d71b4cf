package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"bottle_credits/internal/config"
	"bottle_credits/internal/domain"
	"bottle_credits/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var credits = config.Credits{PegSizes: []int{30, 60, 90}, TokenTTL: 2 * time.Minute}

func TestIssueMintsTokenWithExpiry(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	clock := testutil.NewClock(time.Date(2026, 10, 16, 21, 0, 0, 0, time.UTC))
	w := fx.NewWallet(t, conn, 750, 750)

	issued, err := NewIssuer(conn, credits).WithClock(clock.Now).Issue(context.Background(), w.ID, fx.Customer.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, clock.Now().Add(120*time.Second).UnixMilli(), issued.ExpiresAt)
	assert.Equal(t, w.ID, issued.WalletID)
	assert.Equal(t, 750, issued.RemainingCredits)
	assert.Equal(t, fx.Plan.BrandName, issued.BrandName)
}

func TestIssueRejections(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	issuer := NewIssuer(conn, credits)
	ctx := context.Background()

	w := fx.NewWallet(t, conn, 750, 750)
	_, err := issuer.Issue(ctx, w.ID, fx.Staff.ID)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = issuer.Issue(ctx, 9999, fx.Customer.ID)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	empty := fx.NewWallet(t, conn, 750, 0)
	_, err = issuer.Issue(ctx, empty.ID, fx.Customer.ID)
	assert.ErrorIs(t, err, domain.ErrWalletExhausted)

	n, err := NewStore(conn).CountUnused(ctx, empty.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReissueLeavesOneUnusedToken(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	issuer := NewIssuer(conn, credits)
	store := NewStore(conn)
	ctx := context.Background()
	w := fx.NewWallet(t, conn, 750, 750)

	first, err := issuer.Issue(ctx, w.ID, fx.Customer.ID)
	require.NoError(t, err)
	var last *Issued
	for i := 0; i < 5; i++ {
		last, err = issuer.Issue(ctx, w.ID, fx.Customer.ID)
		require.NoError(t, err)
		n, errCount := store.CountUnused(ctx, w.ID)
		require.NoError(t, errCount)
		assert.EqualValues(t, 1, n)
	}

	old, err := store.Find(ctx, first.Token)
	require.NoError(t, err)
	assert.True(t, old.Used)
	current, err := store.FindUnused(ctx, last.Token)
	require.NoError(t, err)
	require.NotNil(t, current)
}

func TestConcurrentIssueLeavesOneUnusedToken(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	issuer := NewIssuer(conn, credits)
	ctx := context.Background()
	w := fx.NewWallet(t, conn, 750, 750)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issuer.Issue(ctx, w.ID, fx.Customer.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := NewStore(conn).CountUnused(ctx, w.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestValidateErrorPriority(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	clock := testutil.NewClock(time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC))
	issuer := NewIssuer(conn, credits).WithClock(clock.Now)
	validator := NewValidator(conn).WithClock(clock.Now)
	ctx := context.Background()
	w := fx.NewWallet(t, conn, 750, 510)

	_, err := validator.Validate(ctx, "no-such-token", fx.Bar.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	issued, err := issuer.Issue(ctx, w.ID, fx.Customer.ID)
	require.NoError(t, err)

	snap, err := validator.Validate(ctx, issued.Token, fx.Bar.ID)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{WalletID: w.ID, BrandName: w.BrandName, RemainingCredits: 510, TotalCredits: 750, Token: issued.Token}, *snap)

	_, err = validator.Validate(ctx, issued.Token, fx.Bar.ID+100)
	assert.ErrorIs(t, err, domain.ErrBarMismatch)

	// Expiry is checked before the bar.
	clock.Advance(121 * time.Second)
	_, err = validator.Validate(ctx, issued.Token, fx.Bar.ID+100)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	stored, err := NewStore(conn).Find(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, stored.Used, "validate must not consume an expired token")

	// Used is checked before expiry.
	_, err = issuer.Issue(ctx, w.ID, fx.Customer.ID)
	require.NoError(t, err)
	_, err = validator.Validate(ctx, issued.Token, fx.Bar.ID)
	assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)
}

func TestExpiryBoundary(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	clock := testutil.NewClock(time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC))
	w := fx.NewWallet(t, conn, 750, 750)
	ctx := context.Background()

	issued, err := NewIssuer(conn, credits).WithClock(clock.Now).Issue(ctx, w.ID, fx.Customer.ID)
	require.NoError(t, err)
	validator := NewValidator(conn).WithClock(clock.Now)

	clock.Advance(120*time.Second - time.Millisecond)
	_, err = validator.Validate(ctx, issued.Token, fx.Bar.ID)
	assert.NoError(t, err)

	clock.Advance(time.Millisecond)
	_, err = validator.Validate(ctx, issued.Token, fx.Bar.ID)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestExpireStale(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	store := NewStore(conn)
	ctx := context.Background()
	w1 := fx.NewWallet(t, conn, 750, 750)
	w2 := fx.NewWallet(t, conn, 750, 750)

	require.NoError(t, store.Create(ctx, &domain.RedemptionToken{Token: "stale", WalletID: w1.ID, ExpiresAt: 1000}))
	require.NoError(t, store.Create(ctx, &domain.RedemptionToken{Token: "fresh", WalletID: w2.ID, ExpiresAt: 5000}))

	n, err := store.ExpireStale(ctx, 2000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.ExpireStale(ctx, 2000)
	require.NoError(t, err)
	assert.Zero(t, n)

	fresh, err := store.FindUnused(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
	stale, err := store.FindUnused(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestConsumeOnlyOnce(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	store := NewStore(conn)
	ctx := context.Background()
	w := fx.NewWallet(t, conn, 750, 750)

	tok := &domain.RedemptionToken{Token: "once", WalletID: w.ID, ExpiresAt: 1 << 50}
	require.NoError(t, store.Create(ctx, tok))

	ok, err := store.Consume(ctx, tok.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Consume(ctx, tok.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
