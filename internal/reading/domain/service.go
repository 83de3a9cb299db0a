package domain

import (
	"context"
	"errors"
	"io"
)

type Service interface {
	Add(ctx context.Context, req AddRequest) (*MeterRecord, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]MeterRecord, error)
	Summaries(ctx context.Context) ([]MonthlySummary, error)
	PreviousReading(ctx context.Context) (float64, error)

	Import(ctx context.Context, r io.Reader) (*ImportResult, error)
	ImportFile(ctx context.Context, path string) (*ImportResult, error)
	Export(ctx context.Context, w io.Writer) error

	MigrateHistorical(ctx context.Context) (*MigrationStatus, error)
	SkipMigration(ctx context.Context) error
	ResetMigration(ctx context.Context) error
	MigrationStatus(ctx context.Context) (*MigrationStatus, error)
}

// AddRequest carries a typed-in reading. CurrentReading accepts a comma as
// the decimal separator; an empty Date stamps the current time.
type AddRequest struct {
	CurrentReading string `json:"current_reading"`
	Date           string `json:"date,omitempty"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped"`
	// Err joins the per-line parse errors, nil when every line was accepted.
	Err error `json:"-"`
}

type MigrationStatus struct {
	Completed bool `json:"completed"`
	Imported  int  `json:"imported"`
}

var (
	ErrInvalidReading    = errors.New("invalid_reading")
	ErrReadingNotGreater = errors.New("reading_not_greater")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrInvalidID         = errors.New("invalid_id")
	ErrBackupNotFound    = errors.New("backup_not_found")
	ErrEmptyBackup       = errors.New("empty_backup")
)
