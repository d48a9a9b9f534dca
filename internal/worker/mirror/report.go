package mirror

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
)

// Report summarises one run.
type Report struct {
	RunID          string        `json:"runId"`
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
	DryRun         bool          `json:"dryRun"`
	Fetched        int           `json:"fetched"`
	Actionable     int           `json:"actionable"`
	Emitted        int           `json:"emitted"`
	Affiliates     []uint64      `json:"affiliates"`
	Added          []uint64      `json:"added"`
	Removed        []uint64      `json:"removed"`
	SendFailures   []ItemFailure `json:"sendFailures,omitempty"`
	RoleFailures   []RoleFailure `json:"roleFailures,omitempty"`
	SnapshotStored bool          `json:"snapshotStored"`
}

// ItemFailure records an announcement that could not be mirrored.
type ItemFailure struct {
	MessageID uint64 `json:"messageId"`
	Error     string `json:"error"`
}

// RoleFailure records a role change that did not go through.
type RoleFailure struct {
	UserID    uint64 `json:"userId"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// WriteFile encodes the report as JSON at path.
func (r *Report) WriteFile(path string) error {
	data, err := sonic.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
