package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aikalab/scouter/internal/data/pgxutil"
	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

// RateLimitRepo stores per-key sliding windows of admitted request timestamps.
// One row per key; the row lock serializes concurrent reservations so the
// window can never overshoot its limit.
type RateLimitRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// RateLimitRepoConfig holds configuration options for the rate limit repository.
type RateLimitRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// NewRateLimitRepo creates a new RateLimitRepo instance.
func NewRateLimitRepo(db *sql.DB, cfg RateLimitRepoConfig) *RateLimitRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &RateLimitRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

// Reserve prunes the key's window, then appends the current attempt when it
// fits under the limit. Prune, check, and append happen under one row lock.
func (r *RateLimitRepo) Reserve(ctx context.Context, req *model.RateLimitReservation) (*model.RateLimitResult, error) {
	if req == nil {
		return nil, errors.New("rate limit reservation is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := req.Now
	if now.IsZero() {
		now = r.timeProvider.Now()
	}
	now = now.UTC()
	windowStart := now.Add(-req.Window)

	var result *model.RateLimitResult
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rate_limits (id, request_times, updated_at)
				VALUES ($1, '[]'::jsonb, $2)
				ON CONFLICT (id) DO NOTHING
			`, req.Key, now); err != nil {
				return fmt.Errorf("ensure rate limit row: %w", err)
			}

			var raw []byte
			if err := tx.QueryRowContext(ctx, `
				SELECT request_times FROM rate_limits WHERE id = $1 FOR UPDATE
			`, req.Key).Scan(&raw); err != nil {
				return fmt.Errorf("lock rate limit row: %w", err)
			}

			times, err := decodeWindow(raw)
			if err != nil {
				// An unreadable window is replaced rather than blocking the user.
				if r.logger != nil {
					r.logger.WarnContext(ctx, "rate limit window unreadable, resetting",
						"key", req.Key, "error", err)
				}
				times = nil
			}

			times = pruneWindow(times, windowStart)

			res := &model.RateLimitResult{Count: len(times)}
			if len(times) > 0 {
				res.OldestEntry = times[0]
			}

			if len(times) < req.Limit {
				times = append(times, now)
				res.Reserved = true
				res.Count = len(times)
				if res.OldestEntry.IsZero() {
					res.OldestEntry = times[0]
				}
			}

			encoded, err := json.Marshal(times)
			if err != nil {
				return fmt.Errorf("encode rate limit window: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE rate_limits SET request_times = $2, updated_at = $3 WHERE id = $1
			`, req.Key, encoded, now); err != nil {
				return fmt.Errorf("write rate limit window: %w", err)
			}

			result = res
			return nil
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return result, nil
}

// Purge removes rate limit rows untouched for longer than maxAge.
func (r *RateLimitRepo) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	cutoff := r.timeProvider.Now().Add(-maxAge).UTC()
	res, err := r.DB.ExecContext(ctx, `DELETE FROM rate_limits WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("purge rate limits: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func decodeWindow(raw []byte) ([]time.Time, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var times []time.Time
	if err := json.Unmarshal(raw, &times); err != nil {
		return nil, err
	}
	return times, nil
}

// pruneWindow drops entries at or before windowStart and returns the rest in
// ascending order.
func pruneWindow(times []time.Time, windowStart time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Before(kept[j]) })
	return kept
}
