// Package testutil provides a migrated SQLite database and record fixtures for package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"bottle_credits/internal/db"
	"bottle_credits/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a fresh migrated SQLite database under t.TempDir
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "credits.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Clock is a settable time source
type Clock struct {
	nanos atomic.Int64
}

// NewClock returns a clock frozen at start
func NewClock(start time.Time) *Clock {
	c := &Clock{}
	c.nanos.Store(start.UnixNano())
	return c
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	return time.Unix(0, c.nanos.Load()).UTC()
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}

var phoneSeq atomic.Int64

// Fixture is a bar with an admin, a staff member, a customer and one plan
type Fixture struct {
	Bar      domain.Bar
	Admin    domain.User
	Staff    domain.User
	Customer domain.User
	Plan     domain.BottlePlan
}

// NewFixture inserts a bar, its people and a 750ml plan
func NewFixture(t testing.TB, conn *gorm.DB) *Fixture {
	t.Helper()
	f := &Fixture{}
	f.Bar = domain.Bar{Name: "The Tipsy Oak", Address: "42 MG Road", City: "Bangalore", IsActive: true}
	require.NoError(t, conn.Create(&f.Bar).Error)

	f.Admin = NewUser(t, conn, domain.RoleAdmin, &f.Bar.ID)
	f.Staff = NewUser(t, conn, domain.RoleStaff, &f.Bar.ID)
	f.Customer = NewUser(t, conn, domain.RoleCustomer, nil)

	f.Plan = domain.BottlePlan{BarID: f.Bar.ID, BrandName: "Johnnie Walker Black Label", Category: "whisky", TotalMl: 750, Price: 4500, IsActive: true}
	require.NoError(t, conn.Create(&f.Plan).Error)
	return f
}

// NewUser inserts a user with a unique phone number
func NewUser(t testing.TB, conn *gorm.DB, role domain.Role, barID *uint) domain.User {
	t.Helper()
	n := phoneSeq.Add(1)
	u := domain.User{
		Phone:    "900" + padded(n),
		Name:     string(role) + "-" + padded(n),
		Password: "not-a-real-hash",
		Role:     role,
		BarID:    barID,
	}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

// NewWallet inserts a wallet for the fixture customer with the given remaining credits
func (f *Fixture) NewWallet(t testing.TB, conn *gorm.DB, total, remaining int) domain.Wallet {
	t.Helper()
	w := domain.Wallet{
		OwnerID:          f.Customer.ID,
		BarID:            f.Bar.ID,
		BottlePlanID:     f.Plan.ID,
		BrandName:        f.Plan.BrandName,
		TotalCredits:     total,
		RemainingCredits: remaining,
		Status:           domain.StatusFor(remaining),
	}
	require.NoError(t, conn.Create(&w).Error)
	return w
}

func padded(n int64) string {
	return fmt.Sprintf("%07d", n)
}
