// Package memrepo is an in-memory implementation of the repository interfaces.
// Transactions are serialized and roll back by restoring a snapshot.
package memrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
)

// ErrDuplicate mirrors a unique key violation of the SQL schema.
var ErrDuplicate = errors.New("memrepo: duplicate key")

// FailureFunc is consulted before every write. A non-nil error aborts the write.
type FailureFunc func(op string, value interface{}) error

// Store holds all tables of one in-memory database.
type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
	fail FailureFunc
}

type dataset struct {
	seq          map[string]uint
	users        map[uint]models.User
	packages     map[uint]models.Package
	userPackages map[uint]models.UserPackage
	wallets      map[uint]models.Ewallet
	transactions []models.EwalletTransaction
	bonusWallet  []models.BonusWallet
	referrals    []models.ReferralBonus
	leadership   map[uint]models.LeadershipPassive
	settings     map[string]models.Setting
	batchRuns    []models.BatchRun
}

// New creates an empty store using the wall clock.
func New() *Store {
	return &Store{
		data: &dataset{
			seq:          map[string]uint{},
			users:        map[uint]models.User{},
			packages:     map[uint]models.Package{},
			userPackages: map[uint]models.UserPackage{},
			wallets:      map[uint]models.Ewallet{},
			leadership:   map[uint]models.LeadershipPassive{},
			settings:     map[string]models.Setting{},
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used for created_at/updated_at columns.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailWhen installs a failure hook; nil removes it.
func (s *Store) FailWhen(fn FailureFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

// Transaction runs fn against a snapshot-protected view of the store.
func (s *Store) Transaction(ctx context.Context, fn func(uow *repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(s.repositories(true)); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetRepositories returns repositories that run each call in its own implicit transaction.
func (s *Store) GetRepositories() *repository.Repositories {
	return s.repositories(false)
}

func (s *Store) repositories(inTx bool) *repository.Repositories {
	c := &conn{store: s, inTx: inTx}
	return &repository.Repositories{
		User:          &userRepo{c},
		Package:       &packageRepo{c},
		UserPackage:   &userPackageRepo{c},
		Ewallet:       &ewalletRepo{c},
		Transaction:   &transactionRepo{c},
		BonusWallet:   &bonusWalletRepo{c},
		ReferralBonus: &referralRepo{c},
		Leadership:    &leadershipRepo{c},
		Setting:       &settingRepo{c},
		BatchRun:      &batchRunRepo{c},
	}
}

type conn struct {
	store *Store
	inTx  bool
}

func (c *conn) read(fn func(d *dataset) error) error {
	if !c.inTx {
		c.store.mu.Lock()
		defer c.store.mu.Unlock()
	}
	return fn(c.store.data)
}

// write applies fn atomically: outside a transaction a failed write leaves no trace.
func (c *conn) write(op string, value interface{}, fn func(d *dataset, now time.Time) error) error {
	if !c.inTx {
		c.store.mu.Lock()
		defer c.store.mu.Unlock()
	}
	if c.store.fail != nil {
		if err := c.store.fail(op, value); err != nil {
			return err
		}
	}
	if c.inTx {
		return fn(c.store.data, c.store.now())
	}
	work := c.store.data.clone()
	if err := fn(work, c.store.now()); err != nil {
		return err
	}
	c.store.data = work
	return nil
}

func (d *dataset) next(table string) uint {
	d.seq[table]++
	return d.seq[table]
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		seq:          make(map[string]uint, len(d.seq)),
		users:        make(map[uint]models.User, len(d.users)),
		packages:     make(map[uint]models.Package, len(d.packages)),
		userPackages: make(map[uint]models.UserPackage, len(d.userPackages)),
		wallets:      make(map[uint]models.Ewallet, len(d.wallets)),
		transactions: append([]models.EwalletTransaction(nil), d.transactions...),
		bonusWallet:  append([]models.BonusWallet(nil), d.bonusWallet...),
		referrals:    append([]models.ReferralBonus(nil), d.referrals...),
		leadership:   make(map[uint]models.LeadershipPassive, len(d.leadership)),
		settings:     make(map[string]models.Setting, len(d.settings)),
		batchRuns:    append([]models.BatchRun(nil), d.batchRuns...),
	}
	for k, v := range d.seq {
		out.seq[k] = v
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.packages {
		out.packages[k] = v
	}
	for k, v := range d.userPackages {
		out.userPackages[k] = v
	}
	for k, v := range d.wallets {
		out.wallets[k] = v
	}
	for k, v := range d.leadership {
		out.leadership[k] = v
	}
	for k, v := range d.settings {
		out.settings[k] = v
	}
	return out
}
