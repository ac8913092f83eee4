package normalize

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/IoFMT/Inception/internal/apierrors"
	"github.com/IoFMT/Inception/internal/model"
	"github.com/IoFMT/Inception/internal/schema"
)

// Schedule converts one raw schedule node (the schedule itself plus its
// nested skills/tasks/assets/frequencies arrays) into per-type record
// sequences tagged with the tenant and share link. The tasks array is
// projected twice, once under the tasks schema and once under the
// classifications schema; that dual typing mirrors the upstream data model.
//
// Structurally identical records are collapsed to one. The operation is
// pure: persistence is the caller's next step.
func Schedule(raw map[string]any, userID, sharelinkID string) (model.RecordSet, error) {
	scheduleID, ok := raw["id"].(string)
	if !ok || scheduleID == "" {
		return nil, apierrors.Validation("schedule node has no string id")
	}

	sources := map[model.EntityType][]map[string]any{
		model.EntitySchedules: {raw},
	}
	for typ, field := range map[model.EntityType]string{
		model.EntitySkills:      "skills",
		model.EntityTasks:       "tasks",
		model.EntityAssets:      "assets",
		model.EntityFrequencies: "frequencies",
	} {
		rows, err := objectRows(raw, field)
		if err != nil {
			return nil, err
		}
		sources[typ] = rows
	}
	// Classifications reuse the tasks rows under their own schema.
	sources[model.EntityClassifications] = sources[model.EntityTasks]

	out := make(model.RecordSet, len(sources))
	for _, typ := range model.StorableTypes() {
		paths, err := schema.FieldPaths(typ)
		if err != nil {
			return nil, err
		}
		records := make([]model.CachedRecord, 0, len(sources[typ]))
		for _, row := range sources[typ] {
			data, err := Project(row, paths)
			if err != nil {
				return nil, fmt.Errorf("normalize %s of schedule %s: %w", typ, scheduleID, err)
			}
			records = append(records, model.CachedRecord{
				UserID:      userID,
				SharelinkID: sharelinkID,
				ScheduleID:  scheduleID,
				Type:        typ,
				Data:        data,
			})
		}
		out[typ] = dedup(records)
	}
	return out, nil
}

// objectRows reads raw[field] as a list of objects. A missing or null field
// is an empty list; a present non-list or a non-object element is malformed.
func objectRows(raw map[string]any, field string) ([]map[string]any, error) {
	v := raw[field]
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, apierrors.Validation("field %q: expected array, got %T", field, v)
	}
	rows := make([]map[string]any, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, apierrors.Validation("field %q[%d]: expected object, got %T", field, i, item)
		}
		rows = append(rows, obj)
	}
	return rows, nil
}

// dedup collapses structurally identical records using a canonical JSON
// serialization, so map iteration order cannot produce false negatives.
func dedup(records []model.CachedRecord) []model.CachedRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, rec := range records {
		key := canonicalKey(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}

func canonicalKey(rec model.CachedRecord) string {
	keys := make([]string, 0, len(rec.Data))
	for k := range rec.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf, _ := json.Marshal(rec.UserID)
	key := string(buf)
	for _, part := range []string{rec.SharelinkID, rec.ScheduleID, string(rec.Type)} {
		b, _ := json.Marshal(part)
		key += "|" + string(b)
	}
	for _, k := range keys {
		b, _ := json.Marshal(rec.Data[k])
		key += "|" + k + "=" + string(b)
	}
	return key
}
