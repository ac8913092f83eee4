package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/model"
	"github.com/IoFMT/Inception/internal/store"
	"github.com/IoFMT/Inception/internal/upstream"
)

// ShareLinkFetcher is the upstream call the tenant service depends on.
type ShareLinkFetcher interface {
	FetchShareLinks(ctx context.Context, env model.Environment, accessToken string) ([]upstream.ShareLink, error)
}

var _ ShareLinkFetcher = (*upstream.Client)(nil)

// TenantService owns the tenant directory and shared-link lifecycle.
type TenantService struct {
	tenants  store.TenantStore
	cache    *store.TenantCache
	upstream ShareLinkFetcher
	logger   *zap.Logger
}

// NewTenantService creates a tenant service.
func NewTenantService(tenants store.TenantStore, cache *store.TenantCache, fetcher ShareLinkFetcher, logger *zap.Logger) *TenantService {
	return &TenantService{
		tenants:  tenants,
		cache:    cache,
		upstream: fetcher,
		logger:   logger,
	}
}

// AddTenant registers a tenant. There is no update: replacement is
// delete + add.
func (s *TenantService) AddTenant(ctx context.Context, cfg model.TenantConfig) error {
	if _, err := model.ParseEnvironment(string(cfg.Environment)); err != nil {
		return fmt.Errorf("add tenant: %w", err)
	}
	if err := s.tenants.AddTenant(ctx, cfg); err != nil {
		return err
	}
	s.cache.Set(cfg)
	s.logger.Info("tenant added",
		zap.String("customer_name", cfg.CustomerName),
		zap.String("environment", string(cfg.Environment)))
	return nil
}

// DeleteTenant removes a tenant registration and evicts it from the cache.
func (s *TenantService) DeleteTenant(ctx context.Context, apiKey string) error {
	if err := s.tenants.DeleteTenant(ctx, apiKey); err != nil {
		return err
	}
	s.cache.Delete(apiKey)
	s.logger.Info("tenant deleted")
	return nil
}

// GetTenants reads one tenant config, or all of them for the "all" sentinel.
func (s *TenantService) GetTenants(ctx context.Context, apiKey string) ([]model.TenantConfig, error) {
	return s.tenants.GetTenants(ctx, apiKey)
}

// AccessToken returns the upstream token registered for apiKey.
func (s *TenantService) AccessToken(ctx context.Context, apiKey string) (string, error) {
	configs, err := s.tenants.GetTenants(ctx, apiKey)
	if err != nil {
		return "", err
	}
	if len(configs) == 0 {
		return "", fmt.Errorf("tenant %q: %w", apiKey, store.ErrNotFound)
	}
	return configs[0].AccessToken, nil
}

// SaveLink routes between add and update based on an existence check, which
// is the contract callers expect; both land on the store's native upsert so
// two concurrent saves of the same link cannot double-insert.
func (s *TenantService) SaveLink(ctx context.Context, link model.SharedLink) error {
	exists, err := s.tenants.LinkExists(ctx, link.APIKey, link.ID)
	if err != nil {
		return err
	}
	if err := s.tenants.UpsertLink(ctx, link); err != nil {
		return err
	}
	if exists {
		s.logger.Debug("shared link updated", zap.String("link_id", link.ID))
	} else {
		s.logger.Debug("shared link added", zap.String("link_id", link.ID))
	}
	return nil
}

// AddLink inserts a shared link, rejecting duplicates.
func (s *TenantService) AddLink(ctx context.Context, link model.SharedLink) error {
	return s.tenants.AddLink(ctx, link)
}

// DeleteLink removes one shared link.
func (s *TenantService) DeleteLink(ctx context.Context, apiKey, id string) error {
	return s.tenants.DeleteLink(ctx, apiKey, id)
}

// ListLinks returns the tenant's shared links.
func (s *TenantService) ListLinks(ctx context.Context, apiKey string) ([]model.SharedLink, error) {
	return s.tenants.ListLinks(ctx, apiKey)
}

// SyncShareLinks pulls the tenant's share links from SFG20 and upserts each
// into the directory, returning the refreshed set.
func (s *TenantService) SyncShareLinks(ctx context.Context, apiKey string) ([]model.SharedLink, error) {
	env, err := s.tenants.GetEnvironment(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("sync share links: %w", err)
	}
	token, err := s.AccessToken(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("sync share links: %w", err)
	}

	remote, err := s.upstream.FetchShareLinks(ctx, env, token)
	if err != nil {
		return nil, err
	}

	links := make([]model.SharedLink, 0, len(remote))
	for _, rl := range remote {
		link := model.SharedLink{
			APIKey:   apiKey,
			ID:       rl.ID,
			LinkName: rl.Name,
			URL:      rl.URL,
		}
		if err := s.SaveLink(ctx, link); err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	s.logger.Info("share links synced", zap.Int("links", len(links)))
	return links, nil
}
