package memrepo

import (
	"sort"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/shopspring/decimal"
)

type userRepo struct{ c *conn }

func (r *userRepo) Create(user *models.User) error {
	return r.c.write("User.Create", user, func(d *dataset, now time.Time) error {
		for _, u := range d.users {
			if user.Email != "" && u.Email == user.Email {
				return ErrDuplicate
			}
		}
		user.ID = d.next("users")
		if user.Status == "" {
			user.Status = models.UserStatusActive
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.UpdatedAt = now
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) GetByID(id uint) (*models.User, error) {
	var out models.User
	err := r.c.read(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) UpdateStatus(id uint, status string) error {
	return r.c.write("User.UpdateStatus", id, func(d *dataset, now time.Time) error {
		u, ok := d.users[id]
		if !ok {
			return nil
		}
		u.Status = status
		u.UpdatedAt = now
		d.users[id] = u
		return nil
	})
}

func (r *userRepo) ListSponsorLinks() ([]models.SponsorLink, error) {
	var links []models.SponsorLink
	err := r.c.read(func(d *dataset) error {
		for _, u := range d.users {
			links = append(links, models.SponsorLink{UserID: u.ID, SponsorID: u.SponsorID, CreatedAt: u.CreatedAt})
		}
		return nil
	})
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.Before(links[j].CreatedAt)
		}
		return links[i].UserID < links[j].UserID
	})
	return links, err
}

type packageRepo struct{ c *conn }

func (r *packageRepo) Create(pkg *models.Package) error {
	return r.c.write("Package.Create", pkg, func(d *dataset, now time.Time) error {
		pkg.ID = d.next("packages")
		pkg.CreatedAt = now
		d.packages[pkg.ID] = *pkg
		return nil
	})
}

func (r *packageRepo) GetByID(id uint) (*models.Package, error) {
	var out models.Package
	err := r.c.read(func(d *dataset) error {
		p, ok := d.packages[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type userPackageRepo struct{ c *conn }

func (r *userPackageRepo) Create(up *models.UserPackage) error {
	return r.c.write("UserPackage.Create", up, func(d *dataset, now time.Time) error {
		up.ID = d.next("user_packages")
		up.CreatedAt = now
		up.UpdatedAt = now
		stored := *up
		stored.Package = models.Package{}
		d.userPackages[up.ID] = stored
		return nil
	})
}

func (r *userPackageRepo) GetByID(id uint) (*models.UserPackage, error) {
	var out models.UserPackage
	err := r.c.read(func(d *dataset) error {
		up, ok := d.userPackages[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = d.withPackage(up)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userPackageRepo) GetByIDForUpdate(id uint) (*models.UserPackage, error) {
	return r.GetByID(id)
}

func (r *userPackageRepo) Update(up *models.UserPackage) error {
	return r.c.write("UserPackage.Update", up, func(d *dataset, now time.Time) error {
		stored, ok := d.userPackages[up.ID]
		if !ok {
			return repository.ErrNotFound
		}
		stored.CurrentCycle = up.CurrentCycle
		stored.TotalCycles = up.TotalCycles
		stored.NextBonusDate = up.NextBonusDate
		stored.Status = up.Status
		stored.UpdatedAt = now
		d.userPackages[up.ID] = stored
		return nil
	})
}

func (r *userPackageRepo) ListByUser(userID uint) ([]models.UserPackage, error) {
	return r.list(func(d *dataset, up models.UserPackage) bool {
		return up.UserID == userID
	})
}

func (r *userPackageRepo) ListActiveDaily(userID uint) ([]models.UserPackage, error) {
	return r.list(func(d *dataset, up models.UserPackage) bool {
		return up.Status == models.UserPackageStatusActive &&
			d.packages[up.PackageID].Mode == models.PackageModeDaily &&
			(userID == 0 || up.UserID == userID)
	})
}

func (r *userPackageRepo) ListDueMonthly(now time.Time, userID uint) ([]models.UserPackage, error) {
	return r.list(func(d *dataset, up models.UserPackage) bool {
		return up.Status == models.UserPackageStatusActive &&
			d.packages[up.PackageID].Mode == models.PackageModeMonthly &&
			(up.NextBonusDate == nil || !up.NextBonusDate.After(now)) &&
			(userID == 0 || up.UserID == userID)
	})
}

func (r *userPackageRepo) ListActiveByUsers(userIDs []uint) ([]models.UserPackage, error) {
	wanted := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}
	return r.list(func(d *dataset, up models.UserPackage) bool {
		_, ok := wanted[up.UserID]
		return ok && up.Status == models.UserPackageStatusActive
	})
}

func (r *userPackageRepo) list(match func(d *dataset, up models.UserPackage) bool) ([]models.UserPackage, error) {
	var out []models.UserPackage
	err := r.c.read(func(d *dataset) error {
		for _, up := range d.userPackages {
			if match(d, up) {
				out = append(out, d.withPackage(up))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (d *dataset) withPackage(up models.UserPackage) models.UserPackage {
	up.Package = d.packages[up.PackageID]
	return up
}

type ewalletRepo struct{ c *conn }

func (r *ewalletRepo) Create(wallet *models.Ewallet) error {
	return r.c.write("Ewallet.Create", wallet, func(d *dataset, now time.Time) error {
		for _, w := range d.wallets {
			if w.UserID == wallet.UserID {
				return ErrDuplicate
			}
		}
		wallet.ID = d.next("ewallet")
		wallet.CreatedAt = now
		wallet.UpdatedAt = now
		d.wallets[wallet.ID] = *wallet
		return nil
	})
}

func (r *ewalletRepo) GetByUserID(userID uint) (*models.Ewallet, error) {
	var out *models.Ewallet
	err := r.c.read(func(d *dataset) error {
		for _, w := range d.wallets {
			if w.UserID == userID {
				found := w
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *ewalletRepo) GetByUserIDForUpdate(userID uint) (*models.Ewallet, error) {
	return r.GetByUserID(userID)
}

func (r *ewalletRepo) UpdateBalance(id uint, balance decimal.Decimal) error {
	return r.c.write("Ewallet.UpdateBalance", balance, func(d *dataset, now time.Time) error {
		w, ok := d.wallets[id]
		if !ok {
			return repository.ErrNotFound
		}
		w.Balance = balance
		w.UpdatedAt = now
		d.wallets[id] = w
		return nil
	})
}

type transactionRepo struct{ c *conn }

func (r *transactionRepo) Create(entry *models.EwalletTransaction) error {
	return r.c.write("EwalletTransaction.Create", entry, func(d *dataset, now time.Time) error {
		entry.ID = d.next("ewallet_transactions")
		entry.CreatedAt = now
		d.transactions = append(d.transactions, *entry)
		return nil
	})
}

func (r *transactionRepo) ListByUser(userID uint) ([]models.EwalletTransaction, error) {
	var out []models.EwalletTransaction
	err := r.c.read(func(d *dataset) error {
		for _, e := range d.transactions {
			if e.UserID == userID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepo) SumByUser(userID uint) (decimal.Decimal, error) {
	return r.sum(func(e models.EwalletTransaction) bool { return e.UserID == userID })
}

func (r *transactionRepo) SumWithdrawableByUser(userID uint) (decimal.Decimal, error) {
	return r.sum(func(e models.EwalletTransaction) bool { return e.UserID == userID && e.IsWithdrawable })
}

func (r *transactionRepo) SumCompletedByUserAndType(userID uint, txType string) (decimal.Decimal, error) {
	return r.sum(func(e models.EwalletTransaction) bool {
		return e.UserID == userID && e.Type == txType && e.Status == models.TxStatusCompleted
	})
}

func (r *transactionRepo) sum(match func(e models.EwalletTransaction) bool) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.c.read(func(d *dataset) error {
		for _, e := range d.transactions {
			if match(e) {
				total = total.Add(e.Amount)
			}
		}
		return nil
	})
	return total, err
}

type bonusWalletRepo struct{ c *conn }

func (r *bonusWalletRepo) Create(entry *models.BonusWallet) error {
	return r.c.write("BonusWallet.Create", entry, func(d *dataset, now time.Time) error {
		for _, b := range d.bonusWallet {
			if b.UserPackageID == entry.UserPackageID && b.Cycle == entry.Cycle {
				return ErrDuplicate
			}
		}
		entry.ID = d.next("bonus_wallet")
		entry.CreatedAt = now
		d.bonusWallet = append(d.bonusWallet, *entry)
		return nil
	})
}

func (r *bonusWalletRepo) SumByUserAndMode(userID uint, mode string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.c.read(func(d *dataset) error {
		for _, b := range d.bonusWallet {
			if b.UserID == userID && b.Mode == mode {
				total = total.Add(b.Amount)
			}
		}
		return nil
	})
	return total, err
}

func (r *bonusWalletRepo) ExistsForPackageSince(userPackageID uint, since time.Time) (bool, error) {
	exists := false
	err := r.c.read(func(d *dataset) error {
		for _, b := range d.bonusWallet {
			if b.UserPackageID == userPackageID && !b.CreatedAt.Before(since) {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *bonusWalletRepo) TotalsBetween(from, to time.Time, userID uint) ([]repository.BeneficiaryTotal, error) {
	totals := map[uint]decimal.Decimal{}
	err := r.c.read(func(d *dataset) error {
		for _, b := range d.bonusWallet {
			if b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
				continue
			}
			if userID != 0 && b.UserID != userID {
				continue
			}
			totals[b.UserID] = totals[b.UserID].Add(b.Amount)
		}
		return nil
	})
	out := make([]repository.BeneficiaryTotal, 0, len(totals))
	for id, total := range totals {
		out = append(out, repository.BeneficiaryTotal{UserID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, err
}

type referralRepo struct{ c *conn }

func (r *referralRepo) Create(bonus *models.ReferralBonus) error {
	return r.c.write("ReferralBonus.Create", bonus, func(d *dataset, now time.Time) error {
		bonus.ID = d.next("referral_bonuses")
		bonus.CreatedAt = now
		d.referrals = append(d.referrals, *bonus)
		return nil
	})
}

func (r *referralRepo) ListByUserPackage(userPackageID uint) ([]models.ReferralBonus, error) {
	var out []models.ReferralBonus
	err := r.c.read(func(d *dataset) error {
		for _, b := range d.referrals {
			if b.UserPackageID == userPackageID {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, err
}

type leadershipRepo struct{ c *conn }

func (r *leadershipRepo) Create(entry *models.LeadershipPassive) error {
	return r.c.write("LeadershipPassive.Create", entry, func(d *dataset, now time.Time) error {
		for _, l := range d.leadership {
			if l.SponsorID == entry.SponsorID && l.BeneficiaryID == entry.BeneficiaryID &&
				l.Level == entry.Level && l.MonthCycle == entry.MonthCycle {
				return ErrDuplicate
			}
		}
		entry.ID = d.next("leadership_passive")
		entry.CreatedAt = now
		d.leadership[entry.ID] = *entry
		return nil
	})
}

func (r *leadershipRepo) ListByPeriod(monthCycle string, beneficiaryID uint) ([]models.LeadershipPassive, error) {
	var out []models.LeadershipPassive
	err := r.c.read(func(d *dataset) error {
		for _, l := range d.leadership {
			if l.MonthCycle == monthCycle && (beneficiaryID == 0 || l.BeneficiaryID == beneficiaryID) {
				out = append(out, l)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].BeneficiaryID != out[j].BeneficiaryID {
			return out[i].BeneficiaryID < out[j].BeneficiaryID
		}
		return out[i].Level < out[j].Level
	})
	return out, err
}

func (r *leadershipRepo) Delete(id uint) error {
	return r.c.write("LeadershipPassive.Delete", id, func(d *dataset, now time.Time) error {
		delete(d.leadership, id)
		return nil
	})
}

type settingRepo struct{ c *conn }

func (r *settingRepo) GetAll() ([]models.Setting, error) {
	var out []models.Setting
	err := r.c.read(func(d *dataset) error {
		for _, s := range d.settings {
			out = append(out, s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, err
}

func (r *settingRepo) GetCompensation() (*models.CompensationSettings, error) {
	rows, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	return models.ParseCompensationSettings(rows)
}

func (r *settingRepo) SetValue(key, value string) error {
	return r.c.write("Setting.SetValue", key, func(d *dataset, now time.Time) error {
		s, ok := d.settings[key]
		if !ok {
			s = models.Setting{ID: d.next("settings"), Key: key, Type: models.SettingType(key), CreatedAt: now}
		}
		s.Value = value
		s.UpdatedAt = now
		d.settings[key] = s
		return nil
	})
}

type batchRunRepo struct{ c *conn }

func (r *batchRunRepo) Create(run *models.BatchRun) error {
	return r.c.write("BatchRun.Create", run, func(d *dataset, now time.Time) error {
		run.ID = d.next("batch_runs")
		run.CreatedAt = now
		d.batchRuns = append(d.batchRuns, *run)
		return nil
	})
}

func (r *batchRunRepo) GetByRunID(runID string) (*models.BatchRun, error) {
	var out *models.BatchRun
	err := r.c.read(func(d *dataset) error {
		for _, run := range d.batchRuns {
			if run.RunID == runID {
				found := run
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *batchRunRepo) ListRecent(limit int) ([]models.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.BatchRun
	err := r.c.read(func(d *dataset) error {
		for i := len(d.batchRuns) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, d.batchRuns[i])
		}
		return nil
	})
	return out, err
}
