package main

import (
	"context" // Seed context
	"errors"  // Error inspection

	"bottle_credits/internal/domain" // Importing domain models
	"bottle_credits/internal/utils"  // Password hashing
	"bottle_credits/internal/wallet" // Wallet assignment

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

const (
	demoBarName  = "The Tipsy Oak"
	demoPassword = "password123"
)

// seedDemo inserts a bar with an admin, a staff member, a customer, two plans and one wallet.
// It does nothing when the demo bar already exists.
func seedDemo(ctx context.Context, conn *gorm.DB) error {
	var existing domain.Bar
	err := conn.WithContext(ctx).Where("name = ?", demoBarName).First(&existing).Error
	if err == nil {
		logrus.WithField("bar_id", existing.ID).Info("Demo data already present")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(demoPassword)
	if err != nil {
		return err
	}

	bar := domain.Bar{Name: demoBarName, Address: "42 MG Road", City: "Bangalore", IsActive: true}
	admin := domain.User{Phone: "9000000001", Name: "Asha Admin", Password: hash, Role: domain.RoleAdmin}
	staff := domain.User{Phone: "9000000002", Name: "Ravi Bartender", Password: hash, Role: domain.RoleStaff}
	customer := domain.User{Phone: "9000000003", Name: "Meera Customer", Password: hash, Role: domain.RoleCustomer}
	plans := []domain.BottlePlan{
		{BrandName: "Johnnie Walker Black Label", Category: "whisky", TotalMl: 750, Price: 4500, IsActive: true},
		{BrandName: "Absolut", Category: "vodka", TotalMl: 1000, Price: 3200, IsActive: true},
	}

	err = conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&bar).Error; err != nil {
			return err
		}
		admin.BarID, staff.BarID = &bar.ID, &bar.ID
		for _, u := range []*domain.User{&admin, &staff, &customer} {
			if err := tx.Create(u).Error; err != nil {
				return err
			}
		}
		for i := range plans {
			plans[i].BarID = bar.ID
		}
		return tx.Create(&plans).Error
	})
	if err != nil {
		return err
	}

	w, _, err := wallet.NewService(conn).Assign(ctx, wallet.AssignRequest{
		CustomerID: customer.ID,
		PlanID:     plans[0].ID,
		Admin:      &admin,
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"bar_id":    bar.ID,         // Demo bar
		"admin":     admin.Phone,    // Admin login
		"staff":     staff.Phone,    // Staff login
		"customer":  customer.Phone, // Customer login
		"wallet_id": w.ID,           // Customer's starting wallet
	}).Info("Demo data seeded")
	return nil
}
