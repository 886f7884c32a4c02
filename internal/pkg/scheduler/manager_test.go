package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu        sync.Mutex
	modes     []string
	cycles    []string
	accrueErr error
}

func (f *fakeRunner) RunAccruals(ctx context.Context, mode string, opts batch.Options) (*batch.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, mode)
	if f.accrueErr != nil {
		return nil, f.accrueErr
	}
	return &batch.Report{RunID: "run"}, nil
}

func (f *fakeRunner) RunLeadership(ctx context.Context, cycleStart string, opts batch.Options) (*batch.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = append(f.cycles, cycleStart)
	return &batch.Report{RunID: "run"}, nil
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(&fakeRunner{}, Config{
		DailyAccruals:   "5 0 * * *",
		MonthlyAccruals: "15 0 * * *",
		Leadership:      "",
	})

	assert.False(t, m.IsRunning())
	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())
	assert.Equal(t, 2, m.Entries())

	// Starting twice is a no-op
	require.NoError(t, m.Start())
	assert.Equal(t, 2, m.Entries())

	m.Stop()
	assert.False(t, m.IsRunning())
	m.Stop()
}

func TestManager_InvalidSchedule(t *testing.T) {
	m := NewManager(&fakeRunner{}, Config{DailyAccruals: "every tuesday"})
	err := m.Start()
	assert.Error(t, err)
	assert.False(t, m.IsRunning())
}

func TestManager_Execute(t *testing.T) {
	runner := &fakeRunner{}
	m := NewManager(runner, Config{})

	m.execute("leadership", func(ctx context.Context) (*batch.Report, error) {
		return m.runner.RunLeadership(ctx, "", batch.Options{})
	})
	assert.Equal(t, []string{""}, runner.cycles)

	runner.accrueErr = errors.New("lock held")
	m.execute("daily", func(ctx context.Context) (*batch.Report, error) {
		return m.runner.RunAccruals(ctx, "daily", batch.Options{})
	})
	assert.Equal(t, []string{"daily"}, runner.modes)
}
