package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/askweb/internal/db"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists daily and monthly token counters (INCRBY + EXPIRE NX).
type Store struct {
	store    store
	prefix   string
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, prefix string, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		prefix:   prefix,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// AddDaily adds tokens to the counter of the day containing t.
func (s *Store) AddDaily(ctx context.Context, t time.Time, tokens int64) error {
	return s.add(ctx, s.dailyKey(t), tokens, s.dailyTTL)
}

// AddMonthly adds tokens to the counter of the month containing t.
func (s *Store) AddMonthly(ctx context.Context, t time.Time, tokens int64) error {
	return s.add(ctx, s.monthlyKey(t), tokens, s.monthTTL)
}

// Daily returns tokens recorded for the day containing t. Missing counters read as 0.
func (s *Store) Daily(ctx context.Context, t time.Time) (int64, error) {
	return s.get(ctx, s.dailyKey(t))
}

// Monthly returns tokens recorded for the month containing t. Missing counters read as 0.
func (s *Store) Monthly(ctx context.Context, t time.Time) (int64, error) {
	return s.get(ctx, s.monthlyKey(t))
}

func (s *Store) add(ctx context.Context, key string, tokens int64, ttl time.Duration) error {
	if _, err := s.store.IncrBy(ctx, key, tokens); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// Set TTL only if the key has no expiry yet, so repeated writes do not extend it.
	if err := s.store.Expire(ctx, key, ttl, true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

func (s *Store) dailyKey(t time.Time) string {
	return s.prefix + "budget:daily:" + t.UTC().Format("2006-01-02")
}

func (s *Store) monthlyKey(t time.Time) string {
	return s.prefix + "budget:monthly:" + t.UTC().Format("2006-01")
}
