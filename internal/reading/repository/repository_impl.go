package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/smallbiznis/meterbook/internal/kvstore"
	"github.com/smallbiznis/meterbook/internal/observability/metrics"
	"github.com/smallbiznis/meterbook/internal/observability/tracing"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "meterbook/reading/repository"

type Params struct {
	fx.In

	Store   kvstore.Store
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// slot is a decoded record and the index it was found under.
type slot struct {
	index  int
	record domain.MeterRecord
}

type repo struct {
	store   kvstore.Store
	log     *zap.Logger
	metrics *metrics.Metrics
}

func Provide(p Params) domain.Repository {
	return NewRecordStore(p.Store, p.Log, p.Metrics)
}

// NewRecordStore keeps records under record_{i}_* keys of store. Every
// mutation flushes its record keys first and writes records_count in a
// final batch.
func NewRecordStore(store kvstore.Store, log *zap.Logger, m *metrics.Metrics) domain.Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &repo{
		store:   store,
		log:     log.Named("reading.repository"),
		metrics: m,
	}
}

func (r *repo) Append(ctx context.Context, record domain.MeterRecord) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, "records.append")
	defer func(start time.Time) {
		r.observe(ctx, "append", start, err)
		tracing.End(span, err)
	}(time.Now())

	count, err := r.count(ctx)
	if err != nil {
		return err
	}

	batch := kvstore.NewBatch()
	for key, value := range encodeRecord(count, record) {
		batch.Set(key, value)
	}
	if err := r.store.Write(ctx, batch); err != nil {
		return fmt.Errorf("append record %d: %w", count, err)
	}

	tail := kvstore.NewBatch().
		Set(keyPreviousReading, formatFloat(record.CurrentReading)).
		Set(keyRecordsCount, strconv.Itoa(count+1))
	if err := r.store.Write(ctx, tail); err != nil {
		return fmt.Errorf("append count: %w", err)
	}

	r.log.Debug("record appended", zap.Int("index", count), zap.String("record_id", record.ID))
	return nil
}

func (r *repo) RemoveByID(ctx context.Context, id string) (removed bool, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "records.remove", attribute.String("record_id", id))
	defer func(start time.Time) {
		r.observe(ctx, "remove", start, err)
		tracing.End(span, err)
	}(time.Now())

	slots, count, err := r.load(ctx)
	if err != nil {
		return false, err
	}

	pos := -1
	for i, s := range slots {
		if s.record.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false, nil
	}

	// Records skipped on load leave gaps; those are closed too, so rewriting
	// begins at the first slot whose index no longer matches its position.
	start := pos
	for i := 0; i < pos; i++ {
		if slots[i].index != i {
			start = i
			break
		}
	}

	remaining := make([]slot, 0, len(slots)-1)
	remaining = append(remaining, slots[:pos]...)
	remaining = append(remaining, slots[pos+1:]...)

	batch := kvstore.NewBatch()
	for i := start; i < len(remaining); i++ {
		for key, value := range encodeRecord(i, remaining[i].record) {
			batch.Set(key, value)
		}
	}
	for i := len(remaining); i < count; i++ {
		batch.Delete(recordKeys(i)...)
	}
	if err := r.store.Write(ctx, batch); err != nil {
		return false, fmt.Errorf("reindex records: %w", err)
	}

	if err := r.store.Write(ctx, kvstore.NewBatch().Set(keyRecordsCount, strconv.Itoa(len(remaining)))); err != nil {
		return false, fmt.Errorf("remove count: %w", err)
	}

	r.log.Debug("record removed",
		zap.String("record_id", id),
		zap.Int("position", pos),
		zap.Int("count", len(remaining)),
	)
	return true, nil
}

func (r *repo) LoadAll(ctx context.Context) (records []domain.MeterRecord, err error) {
	ctx, span := tracing.Start(ctx, tracerName, "records.load")
	defer func(start time.Time) {
		r.observe(ctx, "load", start, err)
		tracing.End(span, err)
	}(time.Now())

	slots, _, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	records = make([]domain.MeterRecord, len(slots))
	for i, s := range slots {
		records[i] = s.record
	}
	return records, nil
}

func (r *repo) ReplaceAll(ctx context.Context, records []domain.MeterRecord) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, "records.replace", attribute.Int("records", len(records)))
	defer func(start time.Time) {
		r.observe(ctx, "replace", start, err)
		tracing.End(span, err)
	}(time.Now())

	count, err := r.count(ctx)
	if err != nil {
		return err
	}

	batch := kvstore.NewBatch()
	for i := len(records); i < count; i++ {
		batch.Delete(recordKeys(i)...)
	}
	for i, record := range records {
		for key, value := range encodeRecord(i, record) {
			batch.Set(key, value)
		}
	}
	if err := r.store.Write(ctx, batch); err != nil {
		return fmt.Errorf("replace records: %w", err)
	}

	tail := kvstore.NewBatch()
	if len(records) > 0 {
		tail.Set(keyPreviousReading, formatFloat(records[len(records)-1].CurrentReading))
	}
	tail.Set(keyRecordsCount, strconv.Itoa(len(records)))
	if err := r.store.Write(ctx, tail); err != nil {
		return fmt.Errorf("replace count: %w", err)
	}

	r.log.Info("records replaced", zap.Int("previous_count", count), zap.Int("count", len(records)))
	return nil
}

func (r *repo) PreviousReading(ctx context.Context) (float64, error) {
	raw, ok, err := r.store.Get(ctx, keyPreviousReading)
	if err != nil {
		return 0, fmt.Errorf("read previous reading: %w", err)
	}
	if !ok {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.log.Warn("unparseable previous reading", zap.String("value", raw))
		return 0, nil
	}
	return value, nil
}

func (r *repo) SetPreviousReading(ctx context.Context, value float64) error {
	return r.store.Write(ctx, kvstore.NewBatch().Set(keyPreviousReading, formatFloat(value)))
}

func (r *repo) MigrationCompleted(ctx context.Context) (bool, error) {
	raw, ok, err := r.store.Get(ctx, keyMigrationCompleted)
	if err != nil {
		return false, fmt.Errorf("read migration flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	completed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, nil
	}
	return completed, nil
}

func (r *repo) SetMigrationCompleted(ctx context.Context, completed bool) error {
	return r.store.Write(ctx, kvstore.NewBatch().Set(keyMigrationCompleted, strconv.FormatBool(completed)))
}

func (r *repo) count(ctx context.Context) (int, error) {
	raw, ok, err := r.store.Get(ctx, keyRecordsCount)
	if err != nil {
		return 0, fmt.Errorf("read records count: %w", err)
	}
	if !ok {
		return 0, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0, fmt.Errorf("read records count: invalid value %q", raw)
	}
	return count, nil
}

func (r *repo) load(ctx context.Context) ([]slot, int, error) {
	count, err := r.count(ctx)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, nil
	}

	keys := make([]string, 0, count*len(recordFields))
	for i := 0; i < count; i++ {
		keys = append(keys, recordKeys(i)...)
	}
	values, err := r.store.GetMany(ctx, keys)
	if err != nil {
		return nil, 0, fmt.Errorf("read records: %w", err)
	}

	slots := make([]slot, 0, count)
	for i := 0; i < count; i++ {
		record, ok := decodeRecord(i, values)
		if !ok {
			r.log.Warn("skipping incomplete record", zap.Int("index", i))
			continue
		}
		slots = append(slots, slot{index: i, record: record})
	}
	return slots, count, nil
}

func (r *repo) observe(ctx context.Context, operation string, start time.Time, err error) {
	r.metrics.RecordStoreOperation(ctx, operation, r.store.Backend(), time.Since(start), err)
}
