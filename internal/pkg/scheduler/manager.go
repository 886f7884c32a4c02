package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

// Runner is the part of the batch runner the schedules trigger.
type Runner interface {
	RunAccruals(ctx context.Context, mode string, opts batch.Options) (*batch.Report, error)
	RunLeadership(ctx context.Context, cycleStart string, opts batch.Options) (*batch.Report, error)
}

// Config holds the cron expressions of the batch schedules. An empty expression disables the job.
type Config struct {
	DailyAccruals   string
	MonthlyAccruals string
	Leadership      string
	Timeout         time.Duration
}

// LoadConfig reads the schedules from the environment.
func LoadConfig() Config {
	return Config{
		DailyAccruals:   env.GetEnv("CRON_DAILY_ACCRUALS", "5 0 * * *"),
		MonthlyAccruals: env.GetEnv("CRON_MONTHLY_ACCRUALS", "15 0 * * *"),
		Leadership:      env.GetEnv("CRON_LEADERSHIP", "30 1 1 * *"),
		Timeout:         time.Duration(env.GetEnvInt("CRON_TIMEOUT_MINUTES", 30)) * time.Minute,
	}
}

// Manager owns the cron schedules of the batch jobs
type Manager struct {
	runner  Runner
	config  Config
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewManager creates a scheduler for runner.
func NewManager(runner Runner, cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &Manager{runner: runner, config: cfg}
}

// Start registers the schedules and starts the cron loop
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) (*batch.Report, error)
	}{
		{models.BatchKindDailyAccruals, m.config.DailyAccruals, func(ctx context.Context) (*batch.Report, error) {
			return m.runner.RunAccruals(ctx, models.PackageModeDaily, batch.Options{})
		}},
		{models.BatchKindMonthlyAccruals, m.config.MonthlyAccruals, func(ctx context.Context) (*batch.Report, error) {
			return m.runner.RunAccruals(ctx, models.PackageModeMonthly, batch.Options{})
		}},
		{models.BatchKindLeadership, m.config.Leadership, func(ctx context.Context) (*batch.Report, error) {
			// Leadership always settles the month that just ended.
			return m.runner.RunLeadership(ctx, "", batch.Options{})
		}},
	}

	for _, job := range jobs {
		if job.spec == "" {
			log.Infof("[Scheduler] %s schedule disabled", job.name)
			continue
		}
		if _, err := c.AddFunc(job.spec, func() { m.execute(job.name, job.run) }); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
		log.Infof("[Scheduler] %s scheduled at %q", job.name, job.spec)
	}

	m.cron = c
	m.cron.Start()
	m.running = true
	log.Info("[Scheduler] Started successfully")
	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Scheduler] Stopping, waiting for running jobs...")
	<-m.cron.Stop().Done()
	m.running = false
	log.Info("[Scheduler] Stopped successfully")
}

// IsRunning returns whether the scheduler is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Entries returns the number of registered schedules
func (m *Manager) Entries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron == nil {
		return 0
	}
	return len(m.cron.Entries())
}

func (m *Manager) execute(name string, run func(ctx context.Context) (*batch.Report, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
	defer cancel()

	rep, err := run(ctx)
	if err != nil {
		log.Errorf("[Scheduler] %s failed: %v", name, err)
		return
	}
	log.Infof("[Scheduler] %s run %s: %s", name, rep.RunID, rep.Outcome())
}
