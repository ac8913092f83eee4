// Package model defines the core data types shared across the facade:
// tenant configurations, shared links, and cached normalized records.
package model

import "fmt"

// Environment identifies which SFG20 backend a tenant targets.
type Environment string

const (
	EnvironmentDemo Environment = "DEMO"
	EnvironmentProd Environment = "PROD"
)

// ParseEnvironment validates a raw environment string.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvironmentDemo, EnvironmentProd:
		return Environment(s), nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// TenantConfig is one customer's registration. The API key is the primary
// identifier; there is no update operation, replacement is delete+add.
type TenantConfig struct {
	APIKey       string      `json:"api_key"`
	CustomerName string      `json:"customer_name"`
	AccessToken  string      `json:"access_token"`
	Environment  Environment `json:"environment"`
}

// SharedLink is an upstream-issued share link owned by a tenant.
// Composite identity is (APIKey, ID).
type SharedLink struct {
	APIKey   string `json:"api_key"`
	ID       string `json:"id"`
	LinkName string `json:"link_name"`
	URL      string `json:"url"`
}

// EntityType is the closed set of record types the normalizer produces.
type EntityType string

const (
	EntityAll             EntityType = "all"
	EntitySchedules       EntityType = "schedules"
	EntitySkills          EntityType = "skills"
	EntityTasks           EntityType = "tasks"
	EntityAssets          EntityType = "assets"
	EntityFrequencies     EntityType = "frequencies"
	EntityClassifications EntityType = "classifications"
)

// StorableTypes lists every entity type that is persisted in the cache,
// in the order the normalizer emits them. EntityAll is a query sentinel
// only and is never stored.
func StorableTypes() []EntityType {
	return []EntityType{
		EntitySchedules,
		EntitySkills,
		EntityTasks,
		EntityAssets,
		EntityFrequencies,
		EntityClassifications,
	}
}

// ParseEntityType validates a raw type string, including the "all" sentinel.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityAll, EntitySchedules, EntitySkills, EntityTasks,
		EntityAssets, EntityFrequencies, EntityClassifications:
		return EntityType(s), nil
	default:
		return "", fmt.Errorf("unknown entity type %q", s)
	}
}

// CachedRecord is one flat, independently addressable row in the cache.
// (UserID, SharelinkID, ScheduleID) identify the partition that is replaced
// atomically on refresh; Type partitions rows within it. Data holds exactly
// the fields declared for Type in the projection schema.
type CachedRecord struct {
	UserID      string         `json:"user_id"`
	SharelinkID string         `json:"sharelink_id"`
	ScheduleID  string         `json:"schedule_id"`
	Type        EntityType     `json:"type"`
	Data        map[string]any `json:"data"`
}

// RecordSet groups the normalizer's output per entity type for one schedule.
type RecordSet map[EntityType][]CachedRecord

// Flatten returns every record across all types, iterating types in the
// canonical StorableTypes order so inserts are deterministic.
func (rs RecordSet) Flatten() []CachedRecord {
	var out []CachedRecord
	for _, t := range StorableTypes() {
		out = append(out, rs[t]...)
	}
	return out
}
