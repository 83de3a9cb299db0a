package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/meterbook/internal/kvstore"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func backends(t *testing.T) map[string]func(t *testing.T) kvstore.Store {
	t.Helper()
	return map[string]func(t *testing.T) kvstore.Store{
		kvstore.BackendSQL: func(t *testing.T) kvstore.Store {
			db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			sqlDB.SetMaxOpenConns(1)
			t.Cleanup(func() { _ = sqlDB.Close() })
			require.NoError(t, kvstore.AutoMigrate(db))
			return kvstore.NewSQLStore(db, zap.NewNop())
		},
		kvstore.BackendRedis: func(t *testing.T) kvstore.Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return kvstore.NewRedisStore(client, "test:", zap.NewNop())
		},
	}
}

func rec(id string, prev, curr float64) domain.MeterRecord {
	cons := 0.0
	if prev > 0 {
		cons = curr - prev
	}
	return domain.MeterRecord{
		ID:              id,
		Date:            "15.01.24",
		PreviousReading: prev,
		CurrentReading:  curr,
		Consumption:     cons,
		Cost:            cons * 4,
	}
}

func ids(records []domain.MeterRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func readCount(t *testing.T, store kvstore.Store) int {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), keyRecordsCount)
	require.NoError(t, err)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	require.NoError(t, err)
	return n
}

func TestRecordStore(t *testing.T) {
	for name, build := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("append then load", func(t *testing.T) {
				ctx := context.Background()
				store := build(t)
				repo := NewRecordStore(store, zap.NewNop(), nil)

				require.NoError(t, repo.Append(ctx, rec("a", 0, 100)))
				require.NoError(t, repo.Append(ctx, rec("b", 100, 150.5)))

				got, err := repo.LoadAll(ctx)
				require.NoError(t, err)
				assert.Equal(t, []domain.MeterRecord{rec("a", 0, 100), rec("b", 100, 150.5)}, got)

				prev, err := repo.PreviousReading(ctx)
				require.NoError(t, err)
				assert.Equal(t, 150.5, prev)
				assert.Equal(t, 2, readCount(t, store))
			})

			t.Run("remove reindexes without gaps", func(t *testing.T) {
				ctx := context.Background()
				store := build(t)
				repo := NewRecordStore(store, zap.NewNop(), nil)
				for i, id := range []string{"a", "b", "c", "d"} {
					require.NoError(t, repo.Append(ctx, rec(id, float64(i*10), float64(i*10+10))))
				}

				removed, err := repo.RemoveByID(ctx, "b")
				require.NoError(t, err)
				assert.True(t, removed)

				got, err := repo.LoadAll(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"a", "c", "d"}, ids(got))
				assert.Equal(t, 3, readCount(t, store))

				stale, ok, err := store.Get(ctx, recordKey(3, fieldID))
				require.NoError(t, err)
				assert.False(t, ok, "stale tail key %q left behind", stale)

				moved, ok, err := store.Get(ctx, recordKey(1, fieldID))
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, "c", moved)
			})

			t.Run("remove missing id is a no-op", func(t *testing.T) {
				ctx := context.Background()
				store := build(t)
				repo := NewRecordStore(store, zap.NewNop(), nil)
				require.NoError(t, repo.Append(ctx, rec("a", 0, 10)))

				removed, err := repo.RemoveByID(ctx, "zzz")
				require.NoError(t, err)
				assert.False(t, removed)
				assert.Equal(t, 1, readCount(t, store))
			})

			t.Run("remove last record", func(t *testing.T) {
				ctx := context.Background()
				store := build(t)
				repo := NewRecordStore(store, zap.NewNop(), nil)
				require.NoError(t, repo.Append(ctx, rec("a", 0, 10)))
				require.NoError(t, repo.Append(ctx, rec("b", 10, 20)))

				removed, err := repo.RemoveByID(ctx, "b")
				require.NoError(t, err)
				require.True(t, removed)

				got, err := repo.LoadAll(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"a"}, ids(got))
			})

			t.Run("replace all round trip", func(t *testing.T) {
				ctx := context.Background()
				store := build(t)
				repo := NewRecordStore(store, zap.NewNop(), nil)
				for i, id := range []string{"x", "y", "z"} {
					require.NoError(t, repo.Append(ctx, rec(id, float64(i), float64(i+1))))
				}

				next := []domain.MeterRecord{rec("a", 0, 223), rec("b", 223, 917)}
				require.NoError(t, repo.ReplaceAll(ctx, next))

				got, err := repo.LoadAll(ctx)
				require.NoError(t, err)
				assert.Equal(t, next, got)

				prev, err := repo.PreviousReading(ctx)
				require.NoError(t, err)
				assert.Equal(t, 917.0, prev)

				_, ok, err := store.Get(ctx, recordKey(2, fieldID))
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("replace with nothing keeps the cursor", func(t *testing.T) {
				ctx := context.Background()
				store := build(t)
				repo := NewRecordStore(store, zap.NewNop(), nil)
				require.NoError(t, repo.Append(ctx, rec("a", 0, 42)))

				require.NoError(t, repo.ReplaceAll(ctx, nil))

				got, err := repo.LoadAll(ctx)
				require.NoError(t, err)
				assert.Empty(t, got)
				prev, err := repo.PreviousReading(ctx)
				require.NoError(t, err)
				assert.Equal(t, 42.0, prev)
			})

			t.Run("migration flag", func(t *testing.T) {
				ctx := context.Background()
				repo := NewRecordStore(build(t), zap.NewNop(), nil)

				done, err := repo.MigrationCompleted(ctx)
				require.NoError(t, err)
				assert.False(t, done)

				require.NoError(t, repo.SetMigrationCompleted(ctx, true))
				done, err = repo.MigrationCompleted(ctx)
				require.NoError(t, err)
				assert.True(t, done)

				require.NoError(t, repo.SetMigrationCompleted(ctx, false))
				done, err = repo.MigrationCompleted(ctx)
				require.NoError(t, err)
				assert.False(t, done)
			})
		})
	}
}

func TestLoadAllSkipsIncompleteIndices(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	repo := NewRecordStore(store, zap.NewNop(), nil)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Append(ctx, rec(id, float64(i), float64(i+1))))
	}
	require.NoError(t, store.Write(ctx, kvstore.NewBatch().Delete(recordKey(1, fieldCost))))
	require.NoError(t, store.Write(ctx, kvstore.NewBatch().Set(recordKey(2, fieldCurr), "n/a")))

	got, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestLoadAllReturnsFreshSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordStore(newMemStore(), zap.NewNop(), nil)
	require.NoError(t, repo.Append(ctx, rec("a", 0, 10)))

	first, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	first[0].ID = "mutated"

	second, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", second[0].ID)
}

func TestRemoveClosesEarlierGaps(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	repo := NewRecordStore(store, zap.NewNop(), nil)
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Append(ctx, rec(id, float64(i), float64(i+1))))
	}
	require.NoError(t, store.Write(ctx, kvstore.NewBatch().Delete(recordKey(0, fieldDate))))

	removed, err := repo.RemoveByID(ctx, "d")
	require.NoError(t, err)
	require.True(t, removed)

	assert.Equal(t, 2, readCount(t, store))
	got, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(got))
}

func TestFailedWriteLeavesCountUntouched(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	repo := NewRecordStore(store, zap.NewNop(), nil)
	require.NoError(t, repo.Append(ctx, rec("a", 0, 10)))
	require.NoError(t, repo.Append(ctx, rec("b", 10, 20)))

	store.failNext(errors.New("disk full"))
	err := repo.Append(ctx, rec("c", 20, 30))
	require.Error(t, err)
	assert.Equal(t, 2, readCount(t, store))

	store.failNext(errors.New("disk full"))
	_, err = repo.RemoveByID(ctx, "a")
	require.Error(t, err)
	assert.Equal(t, 2, readCount(t, store))

	store.failNext(errors.New("disk full"))
	require.Error(t, repo.ReplaceAll(ctx, []domain.MeterRecord{rec("z", 0, 1)}))
	assert.Equal(t, 2, readCount(t, store))

	got, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestCountWrittenLast(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	repo := NewRecordStore(store, zap.NewNop(), nil)
	require.NoError(t, repo.Append(ctx, rec("a", 0, 10)))
	require.NoError(t, repo.Append(ctx, rec("b", 10, 20)))
	_, err := repo.RemoveByID(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceAll(ctx, []domain.MeterRecord{rec("z", 0, 1)}))

	sawCount := false
	for i, batch := range store.batches {
		hasCount := false
		hasRecord := false
		for _, op := range batch {
			if op.Key == keyRecordsCount {
				hasCount = true
			}
			if strings.HasPrefix(op.Key, "record_") {
				hasRecord = true
			}
		}
		assert.False(t, hasCount && hasRecord, "batch %d mixes record keys with the count", i)
		sawCount = sawCount || hasCount
	}
	assert.True(t, sawCount)

	last := store.batches[len(store.batches)-1]
	keys := make([]string, 0, len(last))
	for _, op := range last {
		keys = append(keys, op.Key)
	}
	assert.Contains(t, keys, keyRecordsCount)
}

// memStore is an in-process kvstore.Store that records every batch.
type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	batches [][]kvstore.Op
	fail    error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) failNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *memStore) Backend() string { return "memory" }

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) GetMany(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memStore) Write(_ context.Context, batch *kvstore.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		err := m.fail
		m.fail = nil
		return err
	}
	ops := batch.Ops()
	m.batches = append(m.batches, ops)
	for _, op := range ops {
		if op.Delete {
			delete(m.data, op.Key)
			continue
		}
		m.data[op.Key] = op.Value
	}
	return nil
}
