// Package verification resolves the per-service declarative verification
// configuration consumed by the wizard's step graph engine.
package verification

import (
	"context"
	"time"

	"govdoc/pkg/cache"
	"govdoc/pkg/domain"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"
)

const configCacheTTL = 15 * time.Minute

// Resolver returns the verification descriptor for a service identifier.
// Pure lookup over an immutable catalog; a Redis read-through cache keeps
// cross-instance reads cheap.
type Resolver struct {
	catalog map[string]ServiceDescriptor
	cache   *cache.RedisCache
	logger  logger.Logger
}

// NewResolver builds a Resolver over the default catalog. The cache is
// optional; a nil cache degrades to in-memory lookups only.
func NewResolver(redisCache *cache.RedisCache, log logger.Logger) *Resolver {
	return &Resolver{
		catalog: defaultCatalog(),
		cache:   redisCache,
		logger:  log,
	}
}

// Resolve returns the full service descriptor for serviceID.
func (r *Resolver) Resolve(ctx context.Context, serviceID string) (*ServiceDescriptor, error) {
	if r.cache != nil {
		var cached ServiceDescriptor
		if err := r.cache.Get(ctx, cacheKey(serviceID), &cached); err == nil {
			return &cached, nil
		} else if !cache.IsMiss(err) {
			r.logger.Warn("verification config cache read failed", map[string]interface{}{
				"service_id": serviceID,
				"error":      err.Error(),
			})
		}
	}

	desc, ok := r.catalog[serviceID]
	if !ok {
		return nil, govdocerrors.ErrUnknownService
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey(serviceID), desc, configCacheTTL); err != nil {
			r.logger.Warn("verification config cache write failed", map[string]interface{}{
				"service_id": serviceID,
				"error":      err.Error(),
			})
		}
	}

	return &desc, nil
}

// Config returns only the verification configuration for serviceID.
func (r *Resolver) Config(ctx context.Context, serviceID string) (domain.VerificationConfig, error) {
	desc, err := r.Resolve(ctx, serviceID)
	if err != nil {
		return domain.VerificationConfig{}, err
	}
	return desc.Config, nil
}

func cacheKey(serviceID string) string {
	return "verification:config:" + serviceID
}
