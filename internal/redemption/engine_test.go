package redemption

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bottle_credits/internal/config"
	"bottle_credits/internal/domain"
	"bottle_credits/internal/ledger"
	"bottle_credits/internal/testutil"
	"bottle_credits/internal/token"
	"bottle_credits/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var credits = config.Credits{PegSizes: []int{30, 60, 90}, TokenTTL: 2 * time.Minute}

type harness struct {
	conn   *gorm.DB
	fx     *testutil.Fixture
	clock  *testutil.Clock
	issuer *token.Issuer
	engine *Engine
}

func newHarness(t *testing.T) *harness {
	conn := testutil.NewDB(t)
	clock := testutil.NewClock(time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC))
	return &harness{
		conn:   conn,
		fx:     testutil.NewFixture(t, conn),
		clock:  clock,
		issuer: token.NewIssuer(conn, credits).WithClock(clock.Now),
		engine: NewEngine(conn, credits).WithClock(clock.Now),
	}
}

// assign sells the fixture plan so the wallet starts with a CREDIT entry
func (h *harness) assign(t *testing.T) *domain.Wallet {
	w, _, err := wallet.NewService(h.conn).WithClock(h.clock.Now).Assign(context.Background(), wallet.AssignRequest{
		CustomerID: h.fx.Customer.ID,
		PlanID:     h.fx.Plan.ID,
		Admin:      &h.fx.Admin,
	})
	require.NoError(t, err)
	return w
}

func (h *harness) issue(t *testing.T, walletID uint) string {
	issued, err := h.issuer.Issue(context.Background(), walletID, h.fx.Customer.ID)
	require.NoError(t, err)
	return issued.Token
}

func (h *harness) reload(t *testing.T, walletID uint) *domain.Wallet {
	w, err := wallet.NewStore(h.conn).Get(context.Background(), walletID)
	require.NoError(t, err)
	return w
}

func (h *harness) entries(t *testing.T, walletID uint) int64 {
	var n int64
	require.NoError(t, h.conn.Model(&domain.LedgerEntry{}).Where("wallet_id = ?", walletID).Count(&n).Error)
	return n
}

func TestRedeemHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.assign(t)
	tok := h.issue(t, w.ID)

	got, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: 60, Staff: &h.fx.Staff})
	require.NoError(t, err)

	assert.Equal(t, 60, got.CreditsDeducted)
	assert.Equal(t, 750, got.BalanceBefore)
	assert.Equal(t, 690, got.BalanceAfter)
	assert.Equal(t, domain.WalletActive, got.WalletStatus)
	assert.Equal(t, h.fx.Staff.ID, got.StaffID)
	assert.Equal(t, h.fx.Staff.Name, got.StaffName)
	assert.Equal(t, h.clock.Now().UnixMilli(), got.Timestamp)
	assert.Equal(t, 690, h.reload(t, w.ID).RemainingCredits)

	var entry domain.LedgerEntry
	require.NoError(t, h.conn.First(&entry, got.ID).Error)
	assert.Equal(t, domain.EntryDebit, entry.Type)
	assert.Equal(t, 60, entry.Amount)
	require.NotNil(t, entry.PegSize)
	assert.Equal(t, 60, *entry.PegSize)
	require.NotNil(t, entry.StaffID)
	assert.Equal(t, h.fx.Staff.ID, *entry.StaffID)
	assert.Equal(t, h.fx.Customer.ID, entry.CustomerID)
	assert.Equal(t, "Redeemed 60ml peg of Johnnie Walker Black Label", entry.Note)

	// The same token cannot pour twice.
	_, err = h.engine.Redeem(ctx, Request{Token: tok, PegSize: 60, Staff: &h.fx.Staff})
	assert.ErrorIs(t, err, domain.ErrInvalidOrUsedToken)
	assert.Equal(t, 690, h.reload(t, w.ID).RemainingCredits)
	assert.EqualValues(t, 2, h.entries(t, w.ID))
}

func TestRedeemInsufficientCredits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.fx.NewWallet(t, h.conn, 750, 30)
	tok := h.issue(t, w.ID)

	_, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: 60, Staff: &h.fx.Staff})
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	var insufficient *domain.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 30, insufficient.Available)
	assert.Equal(t, 60, insufficient.Requested)

	assert.Equal(t, 30, h.reload(t, w.ID).RemainingCredits)
	assert.Zero(t, h.entries(t, w.ID))
	unused, err := token.NewStore(h.conn).FindUnused(ctx, tok)
	require.NoError(t, err)
	assert.NotNil(t, unused, "a rejected redemption must leave the token usable")
}

func TestRedeemLastPegExhaustsWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.fx.NewWallet(t, h.conn, 750, 30)
	tok := h.issue(t, w.ID)

	got, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: 30, Staff: &h.fx.Staff})
	require.NoError(t, err)
	assert.Equal(t, 0, got.BalanceAfter)
	assert.Equal(t, domain.WalletExhausted, got.WalletStatus)
	assert.Equal(t, domain.WalletExhausted, h.reload(t, w.ID).Status)

	_, err = h.issuer.Issue(ctx, w.ID, h.fx.Customer.ID)
	assert.ErrorIs(t, err, domain.ErrWalletExhausted)
}

func TestRedeemExpiredTokenIsConsumed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.assign(t)
	tok := h.issue(t, w.ID)
	h.clock.Advance(121 * time.Second)

	_, err := token.NewValidator(h.conn).WithClock(h.clock.Now).Validate(ctx, tok, h.fx.Bar.ID)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
	stored, err := token.NewStore(h.conn).Find(ctx, tok)
	require.NoError(t, err)
	assert.False(t, stored.Used)

	_, err = h.engine.Redeem(ctx, Request{Token: tok, PegSize: 30, Staff: &h.fx.Staff})
	require.ErrorIs(t, err, domain.ErrTokenExpired)
	stored, err = token.NewStore(h.conn).Find(ctx, tok)
	require.NoError(t, err)
	assert.True(t, stored.Used)
	assert.Equal(t, 750, h.reload(t, w.ID).RemainingCredits)
	assert.EqualValues(t, 1, h.entries(t, w.ID))

	_, err = h.engine.Redeem(ctx, Request{Token: tok, PegSize: 30, Staff: &h.fx.Staff})
	assert.ErrorIs(t, err, domain.ErrInvalidOrUsedToken)
}

func TestRedeemRejectionsWriteNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.assign(t)
	tok := h.issue(t, w.ID)

	otherBar := domain.Bar{Name: "Elsewhere", Address: "1 Side St", City: "Pune", IsActive: true}
	require.NoError(t, h.conn.Create(&otherBar).Error)
	outsider := testutil.NewUser(t, h.conn, domain.RoleStaff, &otherBar.ID)

	_, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: 45, Staff: &h.fx.Staff})
	assert.ErrorIs(t, err, domain.ErrInvalidPegSize)

	_, err = h.engine.Redeem(ctx, Request{Token: tok, PegSize: 60, Staff: &outsider})
	assert.ErrorIs(t, err, domain.ErrBarMismatch)

	_, err = h.engine.Redeem(ctx, Request{Token: "not-a-token", PegSize: 60, Staff: &h.fx.Staff})
	assert.ErrorIs(t, err, domain.ErrInvalidOrUsedToken)

	assert.Equal(t, 750, h.reload(t, w.ID).RemainingCredits)
	assert.EqualValues(t, 1, h.entries(t, w.ID))
	unused, err := token.NewStore(h.conn).FindUnused(ctx, tok)
	require.NoError(t, err)
	assert.NotNil(t, unused)
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.assign(t)
	tok := h.issue(t, w.ID)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		rejected  atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: 60, Staff: &h.fx.Staff})
			if err == nil {
				successes.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidOrUsedToken)
			rejected.Add(1)
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, 999, rejected.Load())
	assert.Equal(t, 690, h.reload(t, w.ID).RemainingCredits)
	assert.EqualValues(t, 2, h.entries(t, w.ID))
}

func TestLedgerReplayMatchesBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.assign(t)

	for _, peg := range []int{60, 30, 90, 60, 30} {
		tok := h.issue(t, w.ID)
		h.clock.Advance(time.Second)
		_, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: peg, Staff: &h.fx.Staff})
		require.NoError(t, err)
	}

	balance, err := ledger.NewStore(h.conn).Replay(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 480, balance)
	assert.Equal(t, h.reload(t, w.ID).RemainingCredits, balance)
}

func TestRedeemMissingWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	value, err := token.NewValue()
	require.NoError(t, err)
	orphan := &domain.RedemptionToken{
		Token:     value,
		WalletID:  9999,
		ExpiresAt: h.clock.Now().Add(time.Minute).UnixMilli(),
	}
	require.NoError(t, token.NewStore(h.conn).Create(ctx, orphan))

	_, err = h.engine.Redeem(ctx, Request{Token: value, PegSize: 30, Staff: &h.fx.Staff})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	unused, err := token.NewStore(h.conn).FindUnused(ctx, value)
	require.NoError(t, err)
	assert.NotNil(t, unused)
}

func TestRedeemExhaustedWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.fx.NewWallet(t, h.conn, 750, 30)
	tok := h.issue(t, w.ID)
	require.NoError(t, h.conn.Model(&domain.Wallet{}).Where("id = ?", w.ID).Updates(map[string]any{
		"remaining_credits": 0,
		"status":            domain.WalletExhausted,
	}).Error)

	_, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: 30, Staff: &h.fx.Staff})
	assert.ErrorIs(t, err, domain.ErrWalletExhausted)
	assert.Zero(t, h.entries(t, w.ID))
	unused, err := token.NewStore(h.conn).FindUnused(ctx, tok)
	require.NoError(t, err)
	assert.NotNil(t, unused)
}

func TestRedeemExpiryCheckedBeforeBar(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := h.assign(t)

	otherBar := domain.Bar{Name: "Elsewhere", Address: "1 Side St", City: "Pune", IsActive: true}
	require.NoError(t, h.conn.Create(&otherBar).Error)
	outsider := testutil.NewUser(t, h.conn, domain.RoleStaff, &otherBar.ID)
	barless := testutil.NewUser(t, h.conn, domain.RoleStaff, nil)

	for _, staff := range []domain.User{outsider, barless} {
		tok := h.issue(t, w.ID)
		h.clock.Advance(121 * time.Second)

		_, err := h.engine.Redeem(ctx, Request{Token: tok, PegSize: 30, Staff: &staff})
		require.ErrorIs(t, err, domain.ErrTokenExpired)
		stored, err := token.NewStore(h.conn).Find(ctx, tok)
		require.NoError(t, err)
		assert.True(t, stored.Used)
	}

	_, err := h.engine.Redeem(ctx, Request{Token: "not-a-token", PegSize: 30, Staff: &barless})
	assert.ErrorIs(t, err, domain.ErrInvalidOrUsedToken)

	tok := h.issue(t, w.ID)
	_, err = h.engine.Redeem(ctx, Request{Token: tok, PegSize: 30, Staff: &barless})
	assert.ErrorIs(t, err, domain.ErrBarMismatch)
	assert.Equal(t, 750, h.reload(t, w.ID).RemainingCredits)
	assert.EqualValues(t, 1, h.entries(t, w.ID))
}
