package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/IoFMT/Inception/internal/apierrors"
	"github.com/IoFMT/Inception/internal/model"
)

// OrderRecords sorts records in place by data[field]. An empty field leaves
// the order untouched. A record missing the field is a caller error and is
// reported explicitly rather than sorted to an arbitrary position. The sort
// is not stable; ties keep arbitrary relative order.
func OrderRecords(records []model.CachedRecord, field, direction string) error {
	if field == "" {
		return nil
	}
	for _, rec := range records {
		if _, ok := rec.Data[field]; !ok {
			return apierrors.Validation("order field %q not present on every record", field)
		}
	}

	desc := strings.EqualFold(direction, "desc")
	sort.Slice(records, func(i, j int) bool {
		less := lessValue(records[i].Data[field], records[j].Data[field])
		if desc {
			return !less && !equalValue(records[i].Data[field], records[j].Data[field])
		}
		return less
	})
	return nil
}

// lessValue compares two JSON scalars: numerically when both are numbers,
// otherwise by string rendering. Nil sorts before everything.
func lessValue(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func equalValue(a, b any) bool {
	return !lessValue(a, b) && !lessValue(b, a)
}
