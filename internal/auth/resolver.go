// Package auth resolves presented API keys to tenant identities. Resolution
// is stateless per call and fails closed: no candidate, or a candidate that
// matches neither the master key nor a registered tenant, is rejected.
package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/IoFMT/Inception/internal/apierrors"
	"github.com/IoFMT/Inception/internal/model"
	"github.com/IoFMT/Inception/internal/store"
)

// KeyName is the credential field name across all three channels.
const KeyName = "X-Access-Token"

// Identity is a successful resolution. Admin identities bypass the tenant
// directory and carry no tenant config.
type Identity struct {
	APIKey string
	Admin  bool
	Tenant *model.TenantConfig
}

// Resolver checks candidates against the master key and the tenant directory.
type Resolver struct {
	tenants   store.TenantStore
	cache     *store.TenantCache
	masterKey string
	logger    *zap.Logger
}

// NewResolver creates a key resolver. masterKey is the stored obfuscated
// digest, not the plain key.
func NewResolver(tenants store.TenantStore, cache *store.TenantCache, masterKey string, logger *zap.Logger) *Resolver {
	return &Resolver{
		tenants:   tenants,
		cache:     cache,
		masterKey: masterKey,
		logger:    logger,
	}
}

// ExtractKey pulls the candidate key from the request, honoring the channel
// precedence query > header > cookie. The first non-empty channel wins; the
// others are ignored even when present.
func ExtractKey(r *http.Request) string {
	if key := r.URL.Query().Get(KeyName); key != "" {
		return key
	}
	if key := r.Header.Get(KeyName); key != "" {
		return key
	}
	if cookie, err := r.Cookie(KeyName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// Resolve maps a candidate key to an identity. The master-key branch is the
// only privileged path and is kept explicit so it stays auditable.
func (r *Resolver) Resolve(ctx context.Context, candidate string) (Identity, error) {
	if candidate == "" {
		return Identity{}, apierrors.Authorization("could not validate credentials: no api key presented")
	}

	if r.isMasterKey(candidate) {
		r.logger.Debug("master key resolved")
		return Identity{APIKey: candidate, Admin: true}, nil
	}

	// The directory treats this value as the list-everything sentinel, so it
	// can never name a single tenant. Reject it before the lookup.
	if candidate == store.AllTenantsSentinel {
		r.logger.Warn("rejected sentinel presented as api key")
		return Identity{}, apierrors.Authorization("could not validate credentials")
	}

	if cfg, ok := r.cache.Get(candidate); ok {
		return Identity{APIKey: candidate, Tenant: &cfg}, nil
	}

	configs, err := r.tenants.GetTenants(ctx, candidate)
	if err != nil {
		return Identity{}, apierrors.Storage("resolve api key", err)
	}
	if len(configs) == 0 {
		return Identity{}, apierrors.Authorization("could not validate credentials")
	}

	r.cache.Set(configs[0])
	return Identity{APIKey: candidate, Tenant: &configs[0]}, nil
}

// isMasterKey reports whether the candidate, once run through the key
// obfuscation transform, equals the configured master key.
func (r *Resolver) isMasterKey(candidate string) bool {
	return r.masterKey != "" && Obfuscate(candidate) == r.masterKey
}
