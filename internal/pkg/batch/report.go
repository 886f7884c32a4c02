package batch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Unit outcomes.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// UnitResult reports one unit of work.
type UnitResult struct {
	Key    string          `json:"key"`
	UserID uint            `json:"user_id,omitempty"`
	Status string          `json:"status"`
	Amount decimal.Decimal `json:"amount"`
	Detail interface{}     `json:"detail,omitempty"`
	Error  string          `json:"error,omitempty"`

	err error
}

// Err returns the error the unit ended with, nil for successful units.
func (u *UnitResult) Err() error {
	return u.err
}

// Report is the outcome of one batch invocation.
type Report struct {
	RunID         string       `json:"run_id"`
	Kind          string       `json:"kind"`
	Scope         string       `json:"scope"`
	DryRun        bool         `json:"dry_run"`
	ConfigVersion int64        `json:"config_version"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
	Message       string       `json:"message,omitempty"`
	Units         []UnitResult `json:"units"`
	Succeeded     int          `json:"succeeded"`
	Skipped       int          `json:"skipped"`
	Failed        int          `json:"failed"`
	Total         string       `json:"total"`
	ArchiveKey    string       `json:"archive_key,omitempty"`
}

func (r *Report) add(u UnitResult) {
	switch u.Status {
	case StatusOK:
		r.Succeeded++
	case StatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Units = append(r.Units, u)
}

// Outcome summarizes the run for logs and metrics.
func (r *Report) Outcome() string {
	switch {
	case r.Message != "" && len(r.Units) == 0:
		return "short_circuit"
	case r.Failed > 0:
		return "partial"
	case r.DryRun:
		return "dry_run"
	default:
		return "completed"
	}
}

func (r *Report) sumAmounts() decimal.Decimal {
	total := decimal.Zero
	for _, u := range r.Units {
		if u.Status == StatusOK {
			total = total.Add(u.Amount)
		}
	}
	return total
}

// toModel converts the report into its audit row.
func (r *Report) toModel() (*models.BatchRun, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return &models.BatchRun{
		RunID:      r.RunID,
		Kind:       r.Kind,
		Scope:      r.Scope,
		DryRun:     r.DryRun,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		Report:     datatypes.JSON(body),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}, nil
}
