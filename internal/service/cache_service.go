// Package service implements the facade's operations over the stores and the
// upstream client: fetch-and-cache, cache reads, tenant and shared-link
// management.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/model"
	"github.com/IoFMT/Inception/internal/normalize"
	"github.com/IoFMT/Inception/internal/store"
	"github.com/IoFMT/Inception/internal/upstream"
)

// ScheduleFetcher is the upstream call the cache service depends on.
type ScheduleFetcher interface {
	FetchSchedules(ctx context.Context, env model.Environment, sharelinkID, accessToken string) ([]map[string]any, error)
}

var _ ScheduleFetcher = (*upstream.Client)(nil)

// FetchRequest identifies what to pull from SFG20 and how to report it back.
type FetchRequest struct {
	UserID         string
	SharelinkID    string
	AccessToken    string
	OrderField     string
	OrderDirection string
}

// CacheService owns normalization and the cache store.
type CacheService struct {
	cache    store.CacheStore
	tenants  store.TenantStore
	upstream ScheduleFetcher
	logger   *zap.Logger
}

// NewCacheService creates a cache service.
func NewCacheService(cache store.CacheStore, tenants store.TenantStore, fetcher ScheduleFetcher, logger *zap.Logger) *CacheService {
	return &CacheService{
		cache:    cache,
		tenants:  tenants,
		upstream: fetcher,
		logger:   logger,
	}
}

// FetchAndCache pulls every schedule for the share link from the tenant's
// environment, normalizes each one, and replaces its cache partition. It
// returns the schedule-type records, sorted per the request.
func (s *CacheService) FetchAndCache(ctx context.Context, apiKey string, req FetchRequest) ([]model.CachedRecord, error) {
	env, err := s.tenants.GetEnvironment(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("fetch schedules: %w", err)
	}

	rawSchedules, err := s.upstream.FetchSchedules(ctx, env, req.SharelinkID, req.AccessToken)
	if err != nil {
		return nil, err
	}

	schedules := []model.CachedRecord{}
	for _, raw := range rawSchedules {
		rs, err := s.NormalizeAndCache(ctx, raw, req.UserID, req.SharelinkID)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, rs[model.EntitySchedules]...)
	}

	s.logger.Info("schedules fetched and cached",
		zap.String("user_id", req.UserID),
		zap.String("sharelink_id", req.SharelinkID),
		zap.String("environment", string(env)),
		zap.Int("schedules", len(schedules)))

	if err := store.OrderRecords(schedules, req.OrderField, req.OrderDirection); err != nil {
		return nil, err
	}
	return schedules, nil
}

// NormalizeAndCache normalizes one raw schedule graph and replaces its cache
// partition. Normalization is pure; only after it succeeds does the single
// atomic store write happen.
func (s *CacheService) NormalizeAndCache(ctx context.Context, raw map[string]any, userID, sharelinkID string) (model.RecordSet, error) {
	rs, err := normalize.Schedule(raw, userID, sharelinkID)
	if err != nil {
		return nil, err
	}

	scheduleID := rs[model.EntitySchedules][0].ScheduleID
	if err := s.cache.ReplacePartition(ctx, userID, sharelinkID, scheduleID, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// Query serves a filtered, ordered cache read.
func (s *CacheService) Query(ctx context.Context, f store.ListFilter) ([]model.CachedRecord, error) {
	return s.cache.List(ctx, f)
}

// ClearTenant drops every cached record for a tenant.
func (s *CacheService) ClearTenant(ctx context.Context, userID string) error {
	return s.cache.ClearTenant(ctx, userID)
}
