package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/meterbook/internal/backup"
	"github.com/smallbiznis/meterbook/internal/caldate"
	"github.com/smallbiznis/meterbook/internal/clock"
	"github.com/smallbiznis/meterbook/internal/lock"
	"github.com/smallbiznis/meterbook/internal/observability/metrics"
	"github.com/smallbiznis/meterbook/internal/observability/tracing"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/smallbiznis/meterbook/internal/seed"
	"github.com/smallbiznis/meterbook/internal/summary"
	"github.com/smallbiznis/meterbook/internal/tariff"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "meterbook/reading/service"

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Tariff  tariff.Provider
	Clock   clock.Clock
	Locker  lock.Locker
	GenID   *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	repo       domain.Repository
	tariff     tariff.Provider
	clock      clock.Clock
	locker     lock.Locker
	genID      *snowflake.Node
	metrics    *metrics.Metrics
	aggregator *summary.Aggregator
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("reading.service"),
		repo:       p.Repo,
		tariff:     p.Tariff,
		clock:      p.Clock,
		locker:     p.Locker,
		genID:      p.GenID,
		metrics:    p.Metrics,
		aggregator: summary.NewAggregator(p.Clock, p.Log),
	}
}

func (s *Service) Add(ctx context.Context, req domain.AddRequest) (_ *domain.MeterRecord, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "reading.add")
	defer func() { tracing.End(span, err) }()

	current, err := parseReading(req.CurrentReading)
	if err != nil {
		s.metrics.RecordReadingRejected(ctx, "invalid_reading")
		return nil, err
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = caldate.Format(s.clock.Now())
	} else if _, perr := caldate.Parse(date); perr != nil {
		s.metrics.RecordReadingRejected(ctx, "invalid_date")
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDate, perr)
	}

	release, err := s.locker.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	previous, err := s.repo.PreviousReading(ctx)
	if err != nil {
		return nil, err
	}
	if current <= previous {
		s.metrics.RecordReadingRejected(ctx, "reading_not_greater")
		s.log.Info("reading rejected",
			zap.Float64("current", current),
			zap.Float64("previous", previous),
		)
		return nil, domain.ErrReadingNotGreater
	}

	record := domain.NewRecord(s.genID.Generate().String(), date, previous, current, s.tariff.Policy())
	if err := s.repo.Append(ctx, record); err != nil {
		return nil, err
	}

	s.metrics.RecordReadingAdded(ctx, "manual")
	s.log.Info("reading added",
		zap.String("record_id", record.ID),
		zap.String("date", record.Date),
		zap.Float64("consumption", record.Consumption),
		zap.Float64("cost", record.Cost),
	)
	return &record, nil
}

func (s *Service) Remove(ctx context.Context, id string) (err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrInvalidID
	}

	ctx, span := tracing.Start(ctx, tracerName, "reading.remove", attribute.String("record_id", id))
	defer func() { tracing.End(span, err) }()

	release, err := s.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	wasLast := len(records) > 0 && records[len(records)-1].ID == id

	removed, err := s.repo.RemoveByID(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	s.metrics.RecordReadingRemoved(ctx)

	if wasLast {
		cursor := 0.0
		if len(records) > 1 {
			cursor = records[len(records)-2].CurrentReading
		}
		if err := s.repo.SetPreviousReading(ctx, cursor); err != nil {
			return err
		}
	}

	s.log.Info("reading removed", zap.String("record_id", id), zap.Bool("was_last", wasLast))
	return nil
}

func (s *Service) List(ctx context.Context) (_ []domain.MeterRecord, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "reading.list")
	defer func() { tracing.End(span, err) }()

	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Reprice(records, s.tariff.Policy()), nil
}

func (s *Service) Summaries(ctx context.Context) ([]domain.MonthlySummary, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.AggregateByMonth(records), nil
}

func (s *Service) PreviousReading(ctx context.Context) (float64, error) {
	return s.repo.PreviousReading(ctx)
}

func (s *Service) Import(ctx context.Context, r io.Reader) (_ *domain.ImportResult, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "reading.import")
	defer func() { tracing.End(span, err) }()

	records, parseErr := backup.Parse(r, s.tariff.Policy(), s.newID)
	if errors.Is(parseErr, backup.ErrRead) {
		return nil, parseErr
	}
	if len(records) == 0 {
		return nil, errors.Join(domain.ErrEmptyBackup, parseErr)
	}

	release, err := s.locker.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.repo.ReplaceAll(ctx, records); err != nil {
		return nil, err
	}

	result := &domain.ImportResult{
		Imported: len(records),
		Skipped:  skippedLines(parseErr),
		Err:      parseErr,
	}
	s.metrics.RecordImportSkipped(ctx, len(result.Skipped))
	s.log.Info("backup imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (s *Service) ImportFile(ctx context.Context, path string) (*domain.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBackupNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	return s.Import(ctx, f)
}

func (s *Service) Export(ctx context.Context, w io.Writer) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	return backup.Export(w, records)
}

func (s *Service) MigrateHistorical(ctx context.Context) (_ *domain.MigrationStatus, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "reading.migrate")
	defer func() { tracing.End(span, err) }()

	release, err := s.locker.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	completed, err := s.repo.MigrationCompleted(ctx)
	if err != nil {
		return nil, err
	}
	if completed {
		return &domain.MigrationStatus{Completed: true}, nil
	}

	records, err := seed.HistoricalRecords(s.tariff.Policy(), s.newID)
	if err != nil {
		return nil, fmt.Errorf("historical records: %w", err)
	}
	if err := s.repo.ReplaceAll(ctx, records); err != nil {
		return nil, err
	}
	if err := s.repo.SetMigrationCompleted(ctx, true); err != nil {
		return nil, err
	}

	s.log.Info("historical readings migrated", zap.Int("records", len(records)))
	return &domain.MigrationStatus{Completed: true, Imported: len(records)}, nil
}

func (s *Service) SkipMigration(ctx context.Context) error {
	release, err := s.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.repo.SetMigrationCompleted(ctx, true)
}

func (s *Service) ResetMigration(ctx context.Context) error {
	release, err := s.locker.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.repo.SetMigrationCompleted(ctx, false)
}

func (s *Service) MigrationStatus(ctx context.Context) (*domain.MigrationStatus, error) {
	completed, err := s.repo.MigrationCompleted(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.MigrationStatus{Completed: completed}, nil
}

func (s *Service) newID() string {
	return s.genID.Generate().String()
}

// parseReading accepts "123.4" and "123,4".
func parseReading(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if cleaned == "" {
		return 0, domain.ErrInvalidReading
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, domain.ErrInvalidReading
	}
	return value, nil
}

func skippedLines(err error) []string {
	if err == nil {
		return []string{}
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	errs := joined.Unwrap()
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
