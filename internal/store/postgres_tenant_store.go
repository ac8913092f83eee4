package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/model"
)

// AllTenantsSentinel requests a bulk listing from GetTenants.
const AllTenantsSentinel = "all"

// tenantPool is the slice of pgxpool.Pool the tenant store uses.
type tenantPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresTenantStore implements TenantStore on PostgreSQL.
type PostgresTenantStore struct {
	pool   tenantPool
	logger *zap.Logger
}

// NewPostgresTenantStore creates a tenant store on an existing pool.
func NewPostgresTenantStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresTenantStore {
	return &PostgresTenantStore{pool: pool, logger: logger}
}

// AddTenant inserts a tenant config. A duplicate api_key is rejected.
func (s *PostgresTenantStore) AddTenant(ctx context.Context, cfg model.TenantConfig) error {
	query := `
		INSERT INTO tenant_config (api_key, customer_name, access_token, environment)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, query, cfg.APIKey, cfg.CustomerName, cfg.AccessToken, string(cfg.Environment))
	if isUniqueViolation(err) {
		return fmt.Errorf("tenant %q: %w", cfg.APIKey, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to add tenant: %w", err)
	}
	return nil
}

// DeleteTenant removes a tenant config. Deleting an absent key is a no-op.
func (s *PostgresTenantStore) DeleteTenant(ctx context.Context, apiKey string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tenant_config WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return nil
}

// GetTenants returns the config for apiKey, or every config for the "all"
// sentinel. A lookup miss is an empty slice so callers can tell "no data"
// from a storage failure.
func (s *PostgresTenantStore) GetTenants(ctx context.Context, apiKey string) ([]model.TenantConfig, error) {
	query := `
		SELECT api_key, customer_name, access_token, environment
		FROM tenant_config
		WHERE api_key = $1
	`
	args := []any{apiKey}
	if apiKey == AllTenantsSentinel {
		query = `SELECT api_key, customer_name, access_token, environment FROM tenant_config`
		args = nil
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	configs := []model.TenantConfig{}
	for rows.Next() {
		var cfg model.TenantConfig
		var env string
		if err := rows.Scan(&cfg.APIKey, &cfg.CustomerName, &cfg.AccessToken, &env); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		cfg.Environment = model.Environment(env)
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tenants: %w", err)
	}
	return configs, nil
}

// GetEnvironment returns the target environment for a tenant.
func (s *PostgresTenantStore) GetEnvironment(ctx context.Context, apiKey string) (model.Environment, error) {
	var env string
	err := s.pool.QueryRow(ctx,
		`SELECT environment FROM tenant_config WHERE api_key = $1`, apiKey,
	).Scan(&env)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("tenant %q: %w", apiKey, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get environment: %w", err)
	}
	return model.Environment(env), nil
}

// AddLink inserts a shared link.
func (s *PostgresTenantStore) AddLink(ctx context.Context, link model.SharedLink) error {
	query := `
		INSERT INTO shared_link (api_key, id, link_name, url)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.pool.Exec(ctx, query, link.APIKey, link.ID, link.LinkName, link.URL)
	if isUniqueViolation(err) {
		return fmt.Errorf("shared link (%s, %s): %w", link.APIKey, link.ID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to add shared link: %w", err)
	}
	return nil
}

// UpdateLink rewrites an existing shared link's name and url.
func (s *PostgresTenantStore) UpdateLink(ctx context.Context, link model.SharedLink) error {
	query := `
		UPDATE shared_link SET link_name = $3, url = $4
		WHERE api_key = $1 AND id = $2
	`
	tag, err := s.pool.Exec(ctx, query, link.APIKey, link.ID, link.LinkName, link.URL)
	if err != nil {
		return fmt.Errorf("failed to update shared link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shared link (%s, %s): %w", link.APIKey, link.ID, ErrNotFound)
	}
	return nil
}

// UpsertLink inserts or updates in one statement, avoiding the
// check-then-act race between concurrent syncs of the same link.
func (s *PostgresTenantStore) UpsertLink(ctx context.Context, link model.SharedLink) error {
	query := `
		INSERT INTO shared_link (api_key, id, link_name, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (api_key, id)
		DO UPDATE SET link_name = EXCLUDED.link_name, url = EXCLUDED.url
	`
	if _, err := s.pool.Exec(ctx, query, link.APIKey, link.ID, link.LinkName, link.URL); err != nil {
		return fmt.Errorf("failed to upsert shared link: %w", err)
	}
	return nil
}

// DeleteLink removes one shared link.
func (s *PostgresTenantStore) DeleteLink(ctx context.Context, apiKey, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM shared_link WHERE api_key = $1 AND id = $2`, apiKey, id)
	if err != nil {
		return fmt.Errorf("failed to delete shared link: %w", err)
	}
	return nil
}

// ListLinks returns every shared link owned by a tenant.
func (s *PostgresTenantStore) ListLinks(ctx context.Context, apiKey string) ([]model.SharedLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT api_key, id, link_name, url FROM shared_link WHERE api_key = $1`, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query shared links: %w", err)
	}
	defer rows.Close()

	links := []model.SharedLink{}
	for rows.Next() {
		var link model.SharedLink
		if err := rows.Scan(&link.APIKey, &link.ID, &link.LinkName, &link.URL); err != nil {
			return nil, fmt.Errorf("failed to scan shared link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shared links: %w", err)
	}
	return links, nil
}

// LinkExists reports whether (apiKey, id) is present.
func (s *PostgresTenantStore) LinkExists(ctx context.Context, apiKey, id string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(1) FROM shared_link WHERE api_key = $1 AND id = $2`, apiKey, id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check shared link: %w", err)
	}
	return count > 0, nil
}

// Ping verifies database connectivity.
func (s *PostgresTenantStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
