package worker

import (
	"context"
	"testing"
	"time"

	"bottle_credits/internal/domain"
	"bottle_credits/internal/testutil"
	"bottle_credits/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceRetiresExpiredTokens(t *testing.T) {
	conn := testutil.NewDB(t)
	fx := testutil.NewFixture(t, conn)
	clock := testutil.NewClock(time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC))
	store := token.NewStore(conn)
	ctx := context.Background()

	w1 := fx.NewWallet(t, conn, 750, 750)
	w2 := fx.NewWallet(t, conn, 750, 750)
	now := clock.Now().UnixMilli()
	require.NoError(t, store.Create(ctx, &domain.RedemptionToken{Token: "old", WalletID: w1.ID, ExpiresAt: now - 1}))
	require.NoError(t, store.Create(ctx, &domain.RedemptionToken{Token: "live", WalletID: w2.ID, ExpiresAt: now + 60_000}))

	worker := NewTokenCleanupWorker(conn, time.Minute).WithClock(clock.Now)
	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(2 * time.Minute)
	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStartStops(t *testing.T) {
	conn := testutil.NewDB(t)
	worker := NewTokenCleanupWorker(conn, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	worker.Stop()
	worker.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartHonoursContext(t *testing.T) {
	conn := testutil.NewDB(t)
	worker := NewTokenCleanupWorker(conn, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker ignored cancellation")
	}
}
