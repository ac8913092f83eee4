package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/model"
)

type cacheRow struct {
	userID      string
	sharelinkID string
	scheduleID  string
	typ         string
}

// fakeCachePool backs ReplacePartition with staged transactions: deletes and
// inserts apply to rows only on Commit, so a failed transaction must leave
// the prior rows visible, as the real database would.
type fakeCachePool struct {
	rows         []cacheRow
	allowInserts int
	lastTx       *fakeCacheTx
}

func (p *fakeCachePool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.lastTx = &fakeCacheTx{pool: p, allowInserts: p.allowInserts}
	return p.lastTx, nil
}

func (p *fakeCachePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeCachePool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (p *fakeCachePool) Ping(ctx context.Context) error { return nil }

type fakeCacheTx struct {
	pool         *fakeCachePool
	allowInserts int
	inserts      int

	stagedDelete *cacheRow
	stagedRows   []cacheRow
	committed    bool
	rolledBack   bool
}

func (t *fakeCacheTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.HasPrefix(sql, "DELETE"):
		t.stagedDelete = &cacheRow{
			userID:      arguments[0].(string),
			sharelinkID: arguments[1].(string),
			scheduleID:  arguments[2].(string),
		}
	case strings.HasPrefix(sql, "INSERT"):
		t.inserts++
		if t.inserts > t.allowInserts {
			return pgconn.CommandTag{}, errors.New("connection reset mid-insert")
		}
		t.stagedRows = append(t.stagedRows, cacheRow{
			userID:      arguments[0].(string),
			sharelinkID: arguments[1].(string),
			scheduleID:  arguments[2].(string),
			typ:         arguments[3].(string),
		})
	default:
		return pgconn.CommandTag{}, errors.New("unexpected statement")
	}
	return pgconn.CommandTag{}, nil
}

func (t *fakeCacheTx) Commit(ctx context.Context) error {
	if d := t.stagedDelete; d != nil {
		kept := t.pool.rows[:0]
		for _, row := range t.pool.rows {
			if row.userID != d.userID || row.sharelinkID != d.sharelinkID || row.scheduleID != d.scheduleID {
				kept = append(kept, row)
			}
		}
		t.pool.rows = kept
	}
	t.pool.rows = append(t.pool.rows, t.stagedRows...)
	t.committed = true
	return nil
}

func (t *fakeCacheTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeCacheTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeCacheTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func (t *fakeCacheTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeCacheTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeCacheTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeCacheTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeCacheTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *fakeCacheTx) Conn() *pgx.Conn { return nil }

func replacementSet(userID, sharelinkID, scheduleID string) model.RecordSet {
	return model.RecordSet{
		model.EntitySchedules: {
			{UserID: userID, SharelinkID: sharelinkID, ScheduleID: scheduleID, Type: model.EntitySchedules, Data: map[string]any{"id": scheduleID}},
		},
		model.EntityTasks: {
			{UserID: userID, SharelinkID: sharelinkID, ScheduleID: scheduleID, Type: model.EntityTasks, Data: map[string]any{"id": "T1"}},
			{UserID: userID, SharelinkID: sharelinkID, ScheduleID: scheduleID, Type: model.EntityTasks, Data: map[string]any{"id": "T2"}},
		},
	}
}

func TestReplacePartitionFailureKeepsPriorRows(t *testing.T) {
	prior := []cacheRow{
		{userID: "U1", sharelinkID: "L1", scheduleID: "S1", typ: "schedules"},
		{userID: "U1", sharelinkID: "L1", scheduleID: "S1", typ: "tasks"},
	}
	pool := &fakeCachePool{rows: append([]cacheRow{}, prior...), allowInserts: 1}
	s := &PostgresCacheStore{pool: pool, logger: zap.NewNop()}

	err := s.ReplacePartition(context.Background(), "U1", "L1", "S1", replacementSet("U1", "L1", "S1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert record")

	// The delete already ran inside the transaction; the prior partition must
	// still be fully visible afterwards.
	assert.Equal(t, prior, pool.rows)
	require.NotNil(t, pool.lastTx)
	assert.True(t, pool.lastTx.rolledBack)
	assert.False(t, pool.lastTx.committed)
}

func TestReplacePartitionSwapsRowsAtomically(t *testing.T) {
	pool := &fakeCachePool{
		rows: []cacheRow{
			{userID: "U1", sharelinkID: "L1", scheduleID: "S1", typ: "schedules"},
			{userID: "U2", sharelinkID: "L9", scheduleID: "S9", typ: "tasks"},
		},
		allowInserts: 100,
	}
	s := &PostgresCacheStore{pool: pool, logger: zap.NewNop()}

	err := s.ReplacePartition(context.Background(), "U1", "L1", "S1", replacementSet("U1", "L1", "S1"))
	require.NoError(t, err)
	require.NotNil(t, pool.lastTx)
	assert.True(t, pool.lastTx.committed)

	// The other tenant's partition is untouched, the replaced one holds
	// exactly the new set.
	var mine, other int
	for _, row := range pool.rows {
		if row.userID == "U1" {
			mine++
		} else {
			other++
		}
	}
	assert.Equal(t, 3, mine)
	assert.Equal(t, 1, other)
}
