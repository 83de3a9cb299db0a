// Package kvstore is the flat key/value namespace meter records are kept in.
package kvstore

import (
	"context"
	"errors"
)

const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

var ErrEmptyKey = errors.New("empty_key")

// Store is a flat string key/value store. Write applies one batch atomically
// where the backend allows it; callers that need ordering between groups of
// keys issue separate Write calls.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Write(ctx context.Context, batch *Batch) error
	Backend() string
}

type Op struct {
	Key    string
	Value  string
	Delete bool
}

// Batch collects writes in the order they were added.
type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(key, value string) *Batch {
	b.ops = append(b.ops, Op{Key: key, Value: value})
	return b
}

func (b *Batch) Delete(keys ...string) *Batch {
	for _, key := range keys {
		b.ops = append(b.ops, Op{Key: key, Delete: true})
	}
	return b
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

func (b *Batch) Ops() []Op {
	if b == nil {
		return nil
	}
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

func (b *Batch) validate() error {
	for _, op := range b.ops {
		if op.Key == "" {
			return ErrEmptyKey
		}
	}
	return nil
}

// last write wins when a batch touches the same key twice
func (b *Batch) collapse() (sets map[string]string, deletes []string) {
	final := make(map[string]Op, len(b.ops))
	order := make([]string, 0, len(b.ops))
	for _, op := range b.ops {
		if _, seen := final[op.Key]; !seen {
			order = append(order, op.Key)
		}
		final[op.Key] = op
	}
	sets = make(map[string]string)
	for _, key := range order {
		op := final[key]
		if op.Delete {
			deletes = append(deletes, key)
			continue
		}
		sets[key] = op.Value
	}
	return sets, deletes
}

func chunk(keys []string, size int) [][]string {
	if len(keys) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		out = append(out, keys[start:end])
	}
	return out
}
