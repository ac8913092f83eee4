package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/metrics"
	"github.com/IoFMT/Inception/internal/model"
)

// cachePool is the slice of pgxpool.Pool the cache store uses.
type cachePool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresCacheStore implements CacheStore on PostgreSQL.
type PostgresCacheStore struct {
	pool    cachePool
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewPostgresCacheStore creates a cache store on an existing pool.
func NewPostgresCacheStore(pool *pgxpool.Pool, m *metrics.Metrics, logger *zap.Logger) *PostgresCacheStore {
	return &PostgresCacheStore{pool: pool, metrics: m, logger: logger}
}

// ReplacePartition deletes every record in the (userID, sharelinkID,
// scheduleID) partition and inserts the new set inside one transaction, so a
// concurrent reader sees either the old partition or the new one, never the
// gap in between. A failed call rolls the partition back to its prior state.
func (s *PostgresCacheStore) ReplacePartition(ctx context.Context, userID, sharelinkID, scheduleID string, rs model.RecordSet) error {
	written := make(map[string]int, len(rs))
	for typ, recs := range rs {
		written[string(typ)] = len(recs)
	}
	err := s.replacePartition(ctx, userID, sharelinkID, scheduleID, rs)
	s.metrics.ObservePartitionReplace(written, err)
	return err
}

func (s *PostgresCacheStore) replacePartition(ctx context.Context, userID, sharelinkID, scheduleID string, rs model.RecordSet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM cache_record WHERE user_id = $1 AND sharelink_id = $2 AND schedule_id = $3`,
		userID, sharelinkID, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to clear partition: %w", err)
	}

	records := rs.Flatten()
	for _, rec := range records {
		data, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("failed to encode record data: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO cache_record (user_id, sharelink_id, schedule_id, type, data)
			 VALUES ($1, $2, $3, $4, $5)`,
			rec.UserID, rec.SharelinkID, rec.ScheduleID, string(rec.Type), data)
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit partition replace: %w", err)
	}

	s.logger.Debug("partition replaced",
		zap.String("user_id", userID),
		zap.String("sharelink_id", sharelinkID),
		zap.String("schedule_id", scheduleID),
		zap.Int("records", len(records)))
	return nil
}

// List fetches records for the filter and applies the requested ordering.
// Filter precedence follows buildListQuery; ordering happens in memory over
// the decoded data column because order fields are schema fields, not
// storage columns.
func (s *PostgresCacheStore) List(ctx context.Context, f ListFilter) ([]model.CachedRecord, error) {
	query, args := buildListQuery(f)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	records := []model.CachedRecord{}
	for rows.Next() {
		var rec model.CachedRecord
		var typ string
		var data []byte
		if err := rows.Scan(&rec.UserID, &rec.SharelinkID, &rec.ScheduleID, &typ, &data); err != nil {
			return nil, fmt.Errorf("failed to scan cache record: %w", err)
		}
		rec.Type = model.EntityType(typ)
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, fmt.Errorf("failed to decode record data: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cache records: %w", err)
	}

	if err := OrderRecords(records, f.OrderField, f.OrderDirection); err != nil {
		return nil, err
	}
	return records, nil
}

// buildListQuery applies the filter precedence: schedule and a concrete type
// narrow by all four keys, schedule alone by three, otherwise the tenant and
// share link only.
func buildListQuery(f ListFilter) (string, []any) {
	base := `SELECT user_id, sharelink_id, schedule_id, type, data FROM cache_record WHERE user_id = $1 AND sharelink_id = $2`

	typeConstrained := f.Type != "" && f.Type != model.EntityAll
	switch {
	case f.ScheduleID != "" && typeConstrained:
		return base + ` AND schedule_id = $3 AND type = $4`,
			[]any{f.UserID, f.SharelinkID, f.ScheduleID, string(f.Type)}
	case f.ScheduleID != "":
		return base + ` AND schedule_id = $3`,
			[]any{f.UserID, f.SharelinkID, f.ScheduleID}
	default:
		return base, []any{f.UserID, f.SharelinkID}
	}
}

// ClearTenant deletes every cached record for a tenant.
func (s *PostgresCacheStore) ClearTenant(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cache_record WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear tenant cache: %w", err)
	}
	s.logger.Info("tenant cache cleared",
		zap.String("user_id", userID),
		zap.Int64("records", tag.RowsAffected()))
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresCacheStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
