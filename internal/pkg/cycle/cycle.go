// Package cycle implements the accrual state machine of a purchased package.
package cycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
)

// MonthlyInterval is the gap between two monthly accruals.
const MonthlyInterval = 30 * 24 * time.Hour

// ErrNotEligible is returned when a transition is requested in the wrong state.
var ErrNotEligible = errors.New("package not eligible")

// Cap returns the last cycle that still accrues.
func Cap(up *models.UserPackage, bonusMonths int) int {
	if up.IsDaily() {
		return up.Package.MaturityPeriod
	}
	return bonusMonths
}

// New returns the initial state of a package bought at now.
func New(userID uint, pkg *models.Package, bonusMonths int) *models.UserPackage {
	up := &models.UserPackage{
		UserID:       userID,
		PackageID:    pkg.ID,
		Package:      *pkg,
		Price:        pkg.Price,
		CurrentCycle: 1,
		Status:       models.UserPackageStatusActive,
	}
	up.TotalCycles = Cap(up, bonusMonths)
	return up
}

// IsDue reports whether the package may accrue at now. Daily packages have no date gate.
func IsDue(up *models.UserPackage, now time.Time) bool {
	if !up.IsActive() {
		return false
	}
	if up.IsDaily() {
		return true
	}
	return up.NextBonusDate == nil || !up.NextBonusDate.After(now)
}

// Advance moves the package one cycle forward after a successful accrual.
func Advance(up *models.UserPackage, bonusMonths int, now time.Time) error {
	if !up.IsActive() {
		return fmt.Errorf("package %d is %s: %w", up.ID, up.Status, ErrNotEligible)
	}
	up.CurrentCycle++
	if up.CurrentCycle > Cap(up, bonusMonths) {
		up.Status = models.UserPackageStatusCompleted
		up.NextBonusDate = nil
		return nil
	}
	if !up.IsDaily() {
		next := now.Add(MonthlyInterval)
		up.NextBonusDate = &next
	}
	return nil
}

// Matured reports whether the package has left its accrual window.
func Matured(up *models.UserPackage, bonusMonths int) bool {
	return up.CurrentCycle > Cap(up, bonusMonths)
}

// Withdraw marks a matured package as withdrawn.
func Withdraw(up *models.UserPackage, bonusMonths int) error {
	if err := checkMatured(up, bonusMonths); err != nil {
		return err
	}
	up.Status = models.UserPackageStatusWithdrawn
	up.NextBonusDate = nil
	return nil
}

// Remine restarts a matured package at cycle 1.
func Remine(up *models.UserPackage, bonusMonths int) error {
	if err := checkMatured(up, bonusMonths); err != nil {
		return err
	}
	up.CurrentCycle = 1
	up.Status = models.UserPackageStatusActive
	up.NextBonusDate = nil
	up.TotalCycles = Cap(up, bonusMonths)
	return nil
}

func checkMatured(up *models.UserPackage, bonusMonths int) error {
	if up.Status == models.UserPackageStatusWithdrawn {
		return fmt.Errorf("package %d already withdrawn: %w", up.ID, ErrNotEligible)
	}
	if !Matured(up, bonusMonths) {
		return fmt.Errorf("package %d is at cycle %d of %d: %w", up.ID, up.CurrentCycle, Cap(up, bonusMonths), ErrNotEligible)
	}
	return nil
}
