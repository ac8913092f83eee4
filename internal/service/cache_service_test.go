package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/model"
	"github.com/IoFMT/Inception/internal/store"
)

func rawSchedule(id string, taskTitles ...string) map[string]any {
	tasks := make([]any, 0, len(taskTitles))
	for i, title := range taskTitles {
		tasks = append(tasks, map[string]any{
			"id":             id + "-T" + string(rune('1'+i)),
			"title":          title,
			"classification": "Amber",
		})
	}
	return map[string]any{
		"id":    id,
		"code":  "C-" + id,
		"title": "Schedule " + id,
		"tasks": tasks,
	}
}

func newCacheFixture(t *testing.T) (*CacheService, *memCacheStore, *memTenantStore, *fakeUpstream) {
	t.Helper()
	cacheStore := &memCacheStore{}
	tenantStore := newMemTenantStore()
	fetcher := &fakeUpstream{}
	svc := NewCacheService(cacheStore, tenantStore, fetcher, zap.NewNop())
	return svc, cacheStore, tenantStore, fetcher
}

func TestNormalizeAndCacheEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, tenantStore, _ := newCacheFixture(t)

	require.NoError(t, tenantStore.AddTenant(ctx, model.TenantConfig{
		APIKey: "K1", CustomerName: "Acme", AccessToken: "T1", Environment: model.EnvironmentDemo,
	}))

	rs, err := svc.NormalizeAndCache(ctx, rawSchedule("S1", "Inspect impeller"), "U1", "L1")
	require.NoError(t, err)
	require.Len(t, rs[model.EntityTasks], 1)

	records, err := svc.Query(ctx, store.ListFilter{
		UserID: "U1", SharelinkID: "L1", ScheduleID: "S1", Type: model.EntityTasks,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Inspect impeller", records[0].Data["title"])
	assert.Equal(t, "S1-T1", records[0].Data["id"])

	require.NoError(t, svc.ClearTenant(ctx, "U1"))
	records, err = svc.Query(ctx, store.ListFilter{UserID: "U1", SharelinkID: "L1"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeAndCacheIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, cacheStore, _, _ := newCacheFixture(t)

	raw := rawSchedule("S1", "Task one", "Task two")
	_, err := svc.NormalizeAndCache(ctx, raw, "U1", "L1")
	require.NoError(t, err)
	first := len(cacheStore.records)

	_, err = svc.NormalizeAndCache(ctx, raw, "U1", "L1")
	require.NoError(t, err)

	assert.Equal(t, first, len(cacheStore.records), "replaying the same schedule must not grow the partition")
}

func TestQueryScheduleFilterIgnoresOtherSchedules(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newCacheFixture(t)

	_, err := svc.NormalizeAndCache(ctx, rawSchedule("S1", "Alpha"), "U1", "L1")
	require.NoError(t, err)
	_, err = svc.NormalizeAndCache(ctx, rawSchedule("S2", "Beta"), "U1", "L1")
	require.NoError(t, err)

	records, err := svc.Query(ctx, store.ListFilter{
		UserID: "U1", SharelinkID: "L1", ScheduleID: "S1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for _, rec := range records {
		assert.Equal(t, "S1", rec.ScheduleID)
	}
}

func TestQueryOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newCacheFixture(t)

	_, err := svc.NormalizeAndCache(ctx, rawSchedule("S1", "b", "a", "c"), "U1", "L1")
	require.NoError(t, err)

	asc, err := svc.Query(ctx, store.ListFilter{
		UserID: "U1", SharelinkID: "L1", ScheduleID: "S1", Type: model.EntityTasks,
		OrderField: "title",
	})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "a", asc[0].Data["title"])
	assert.Equal(t, "c", asc[2].Data["title"])

	desc, err := svc.Query(ctx, store.ListFilter{
		UserID: "U1", SharelinkID: "L1", ScheduleID: "S1", Type: model.EntityTasks,
		OrderField: "title", OrderDirection: "desc",
	})
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, "c", desc[0].Data["title"])
	assert.Equal(t, "a", desc[2].Data["title"])
}

func TestFetchAndCache(t *testing.T) {
	ctx := context.Background()
	svc, _, tenantStore, fetcher := newCacheFixture(t)

	require.NoError(t, tenantStore.AddTenant(ctx, model.TenantConfig{
		APIKey: "K1", CustomerName: "Acme", AccessToken: "T1", Environment: model.EnvironmentDemo,
	}))
	fetcher.schedules = []map[string]any{
		rawSchedule("S2", "Later"),
		rawSchedule("S1", "Earlier"),
	}

	schedules, err := svc.FetchAndCache(ctx, "K1", FetchRequest{
		UserID: "U1", SharelinkID: "L1", AccessToken: "T1",
		OrderField: "id",
	})
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "S1", schedules[0].Data["id"])
	assert.Equal(t, "S2", schedules[1].Data["id"])

	// Both partitions landed in the cache.
	tasks, err := svc.Query(ctx, store.ListFilter{UserID: "U1", SharelinkID: "L1"})
	require.NoError(t, err)
	assert.NotEmpty(t, tasks)
}

func TestFetchAndCacheUnknownTenant(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newCacheFixture(t)

	_, err := svc.FetchAndCache(ctx, "missing", FetchRequest{UserID: "U1", SharelinkID: "L1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNormalizeAndCacheStorageFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	svc, cacheStore, _, _ := newCacheFixture(t)
	cacheStore.failing = true

	_, err := svc.NormalizeAndCache(ctx, rawSchedule("S1", "Task"), "U1", "L1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated storage failure")
	assert.Empty(t, cacheStore.records, "failed replace must not leave partial rows")
}
