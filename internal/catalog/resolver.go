package catalog

import (
	"context"
	"errors"
	"fmt"

	"auxdeck/internal/logx"
)

// ErrUnsupportedPlatform reports that neither the remote catalog nor the
// built-in table carries a release for the running platform.
var ErrUnsupportedPlatform = errors.New("no release available for platform")

// Resolver picks the release descriptor for a tool on the current platform:
// remote catalog entry first, built-in fallback table second.
type Resolver struct {
	cache    *Cache
	platform string
	logger   logx.Logger
}

// NewResolver builds a resolver over the given catalog cache.
func NewResolver(cache *Cache, logger logx.Logger) *Resolver {
	if logger == nil {
		logger = logx.Nop{}
	}
	return &Resolver{cache: cache, platform: PlatformKey(), logger: logger}
}

// Resolve returns the release descriptor for the tool. A remote entry is only
// accepted when it structurally validates; a malformed remote entry degrades
// to the built-in table rather than failing the lookup.
func (r *Resolver) Resolve(ctx context.Context, tool string) (Release, error) {
	if r.cache != nil {
		if cat := r.cache.Get(ctx); cat != nil {
			if rel, ok := cat.Tools[tool][r.platform]; ok {
				if err := ValidateRelease(rel); err == nil {
					return rel, nil
				} else {
					r.logger.Printf("catalog entry for %s/%s rejected: %v", tool, r.platform, err)
				}
			}
		}
	}

	if rel, ok := lookupBuiltinRelease(tool, r.platform); ok {
		return rel, nil
	}
	return Release{}, fmt.Errorf("%s on %s: %w", tool, r.platform, ErrUnsupportedPlatform)
}
