package domain

import "context"

// Repository persists the ordered record list. Implementations do not lock;
// the service serializes mutations.
type Repository interface {
	Append(ctx context.Context, record MeterRecord) error
	RemoveByID(ctx context.Context, id string) (bool, error)
	LoadAll(ctx context.Context) ([]MeterRecord, error)
	ReplaceAll(ctx context.Context, records []MeterRecord) error

	PreviousReading(ctx context.Context) (float64, error)
	SetPreviousReading(ctx context.Context, value float64) error
	MigrationCompleted(ctx context.Context) (bool, error)
	SetMigrationCompleted(ctx context.Context, completed bool) error
}
