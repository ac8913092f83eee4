package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/IoFMT/Inception/internal/model"
	"github.com/IoFMT/Inception/internal/store"
	"github.com/IoFMT/Inception/internal/upstream"
)

// memCacheStore is an in-memory CacheStore with the same partition-replace
// and filter-precedence semantics as the Postgres store.
type memCacheStore struct {
	mu      sync.Mutex
	records []model.CachedRecord
	failing bool
}

func (s *memCacheStore) ReplacePartition(_ context.Context, userID, sharelinkID, scheduleID string, rs model.RecordSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return fmt.Errorf("replace partition: simulated storage failure")
	}

	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.UserID == userID && rec.SharelinkID == sharelinkID && rec.ScheduleID == scheduleID {
			continue
		}
		kept = append(kept, rec)
	}
	s.records = append(kept, rs.Flatten()...)
	return nil
}

func (s *memCacheStore) List(_ context.Context, f store.ListFilter) ([]model.CachedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	typeConstrained := f.Type != "" && f.Type != model.EntityAll
	out := []model.CachedRecord{}
	for _, rec := range s.records {
		if rec.UserID != f.UserID || rec.SharelinkID != f.SharelinkID {
			continue
		}
		if f.ScheduleID != "" && rec.ScheduleID != f.ScheduleID {
			continue
		}
		if f.ScheduleID != "" && typeConstrained && rec.Type != f.Type {
			continue
		}
		out = append(out, rec)
	}
	if err := store.OrderRecords(out, f.OrderField, f.OrderDirection); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *memCacheStore) ClearTenant(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.UserID != userID {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	return nil
}

func (s *memCacheStore) Ping(context.Context) error { return nil }

// memTenantStore is an in-memory TenantStore.
type memTenantStore struct {
	mu      sync.Mutex
	tenants map[string]model.TenantConfig
	links   map[string]model.SharedLink
}

func newMemTenantStore() *memTenantStore {
	return &memTenantStore{
		tenants: make(map[string]model.TenantConfig),
		links:   make(map[string]model.SharedLink),
	}
}

func linkKey(apiKey, id string) string { return apiKey + "\x00" + id }

func (s *memTenantStore) AddTenant(_ context.Context, cfg model.TenantConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[cfg.APIKey]; ok {
		return fmt.Errorf("tenant %q: %w", cfg.APIKey, store.ErrDuplicateKey)
	}
	s.tenants[cfg.APIKey] = cfg
	return nil
}

func (s *memTenantStore) DeleteTenant(_ context.Context, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, apiKey)
	return nil
}

func (s *memTenantStore) GetTenants(_ context.Context, apiKey string) ([]model.TenantConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if apiKey == store.AllTenantsSentinel {
		out := []model.TenantConfig{}
		for _, cfg := range s.tenants {
			out = append(out, cfg)
		}
		return out, nil
	}
	if cfg, ok := s.tenants[apiKey]; ok {
		return []model.TenantConfig{cfg}, nil
	}
	return []model.TenantConfig{}, nil
}

func (s *memTenantStore) GetEnvironment(_ context.Context, apiKey string) (model.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.tenants[apiKey]
	if !ok {
		return "", fmt.Errorf("tenant %q: %w", apiKey, store.ErrNotFound)
	}
	return cfg.Environment, nil
}

func (s *memTenantStore) AddLink(_ context.Context, link model.SharedLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey(link.APIKey, link.ID)
	if _, ok := s.links[key]; ok {
		return fmt.Errorf("shared link: %w", store.ErrDuplicateKey)
	}
	s.links[key] = link
	return nil
}

func (s *memTenantStore) UpdateLink(_ context.Context, link model.SharedLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey(link.APIKey, link.ID)
	if _, ok := s.links[key]; !ok {
		return fmt.Errorf("shared link: %w", store.ErrNotFound)
	}
	s.links[key] = link
	return nil
}

func (s *memTenantStore) UpsertLink(_ context.Context, link model.SharedLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[linkKey(link.APIKey, link.ID)] = link
	return nil
}

func (s *memTenantStore) DeleteLink(_ context.Context, apiKey, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, linkKey(apiKey, id))
	return nil
}

func (s *memTenantStore) ListLinks(_ context.Context, apiKey string) ([]model.SharedLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.SharedLink{}
	for _, link := range s.links {
		if link.APIKey == apiKey {
			out = append(out, link)
		}
	}
	return out, nil
}

func (s *memTenantStore) LinkExists(_ context.Context, apiKey, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.links[linkKey(apiKey, id)]
	return ok, nil
}

func (s *memTenantStore) Ping(context.Context) error { return nil }

// fakeUpstream returns canned schedule graphs and share links.
type fakeUpstream struct {
	schedules []map[string]any
	links     []upstream.ShareLink
	err       error
}

func (f *fakeUpstream) FetchSchedules(context.Context, model.Environment, string, string) ([]map[string]any, error) {
	return f.schedules, f.err
}

func (f *fakeUpstream) FetchShareLinks(context.Context, model.Environment, string) ([]upstream.ShareLink, error) {
	return f.links, f.err
}
