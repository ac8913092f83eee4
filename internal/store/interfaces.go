// Package store provides the persistence layer: tenant directory and cache
// record stores backed by PostgreSQL, plus an in-memory TTL cache for tenant
// lookups on the hot authorization path.
package store

import (
	"context"
	"errors"

	"github.com/IoFMT/Inception/internal/model"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ErrDuplicateKey is returned when an insert violates a uniqueness constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// TenantStore is the tenant directory: tenant configs and their shared links.
type TenantStore interface {
	AddTenant(ctx context.Context, cfg model.TenantConfig) error
	DeleteTenant(ctx context.Context, apiKey string) error
	// GetTenants returns the config for apiKey, or every config when apiKey
	// is the "all" sentinel. A miss is an empty slice, not an error.
	GetTenants(ctx context.Context, apiKey string) ([]model.TenantConfig, error)
	GetEnvironment(ctx context.Context, apiKey string) (model.Environment, error)

	AddLink(ctx context.Context, link model.SharedLink) error
	UpdateLink(ctx context.Context, link model.SharedLink) error
	UpsertLink(ctx context.Context, link model.SharedLink) error
	DeleteLink(ctx context.Context, apiKey, id string) error
	ListLinks(ctx context.Context, apiKey string) ([]model.SharedLink, error)
	LinkExists(ctx context.Context, apiKey, id string) (bool, error)

	Ping(ctx context.Context) error
}

// CacheStore persists normalized records partitioned by
// (user_id, sharelink_id, schedule_id).
type CacheStore interface {
	// ReplacePartition atomically deletes the partition and inserts every
	// record in rs. Calling it twice with the same input is idempotent.
	ReplacePartition(ctx context.Context, userID, sharelinkID, scheduleID string, rs model.RecordSet) error
	// List returns records filtered per ListFilter, ordered per its
	// order parameters.
	List(ctx context.Context, f ListFilter) ([]model.CachedRecord, error)
	// ClearTenant deletes every record for the tenant.
	ClearTenant(ctx context.Context, userID string) error

	Ping(ctx context.Context) error
}

// ListFilter carries the cache read parameters. ScheduleID and Type narrow
// the partition scan; an empty Type or the "all" sentinel leaves the type
// unconstrained. OrderField sorts the result by that data field, descending
// when OrderDirection is "desc" (case-insensitive).
type ListFilter struct {
	UserID         string
	SharelinkID    string
	ScheduleID     string
	Type           model.EntityType
	OrderField     string
	OrderDirection string
}
