package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IoFMT/Inception/internal/model"
)

func recordsWithTitles(titles ...string) []model.CachedRecord {
	records := make([]model.CachedRecord, 0, len(titles))
	for _, title := range titles {
		records = append(records, model.CachedRecord{
			UserID: "U1", SharelinkID: "L1", ScheduleID: "S1",
			Type: model.EntityTasks,
			Data: map[string]any{"title": title},
		})
	}
	return records
}

func titles(records []model.CachedRecord) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Data["title"].(string))
	}
	return out
}

func TestOrderRecordsAscending(t *testing.T) {
	records := recordsWithTitles("b", "a", "c")
	require.NoError(t, OrderRecords(records, "title", ""))
	assert.Equal(t, []string{"a", "b", "c"}, titles(records))
}

func TestOrderRecordsDescending(t *testing.T) {
	records := recordsWithTitles("b", "a", "c")
	require.NoError(t, OrderRecords(records, "title", "DESC"))
	assert.Equal(t, []string{"c", "b", "a"}, titles(records))
}

func TestOrderRecordsNumeric(t *testing.T) {
	records := []model.CachedRecord{
		{Data: map[string]any{"minutes": float64(30)}},
		{Data: map[string]any{"minutes": float64(4)}},
	}
	require.NoError(t, OrderRecords(records, "minutes", ""))
	assert.Equal(t, float64(4), records[0].Data["minutes"])
}

func TestOrderRecordsMissingFieldFails(t *testing.T) {
	records := []model.CachedRecord{
		{Data: map[string]any{"title": "a"}},
		{Data: map[string]any{"label": "b"}},
	}
	err := OrderRecords(records, "title", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order field")
}

func TestOrderRecordsNoFieldKeepsOrder(t *testing.T) {
	records := recordsWithTitles("b", "a")
	require.NoError(t, OrderRecords(records, "", "desc"))
	assert.Equal(t, []string{"b", "a"}, titles(records))
}

func TestBuildListQueryPrecedence(t *testing.T) {
	base := ListFilter{UserID: "U1", SharelinkID: "L1"}

	t.Run("schedule and type filter by four keys", func(t *testing.T) {
		f := base
		f.ScheduleID = "S1"
		f.Type = model.EntityTasks
		query, args := buildListQuery(f)
		assert.Contains(t, query, "type = $4")
		assert.Equal(t, []any{"U1", "L1", "S1", "tasks"}, args)
	})

	t.Run("all sentinel leaves type unconstrained", func(t *testing.T) {
		f := base
		f.ScheduleID = "S1"
		f.Type = model.EntityAll
		query, args := buildListQuery(f)
		assert.NotContains(t, query, "type")
		assert.Equal(t, []any{"U1", "L1", "S1"}, args)
	})

	t.Run("schedule alone filters by three keys", func(t *testing.T) {
		f := base
		f.ScheduleID = "S1"
		query, args := buildListQuery(f)
		assert.Contains(t, query, "schedule_id = $3")
		assert.Equal(t, []any{"U1", "L1", "S1"}, args)
	})

	t.Run("tenant and share link only", func(t *testing.T) {
		query, args := buildListQuery(base)
		assert.NotContains(t, query, "schedule_id")
		assert.Equal(t, []any{"U1", "L1"}, args)
	})
}
