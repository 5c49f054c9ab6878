package match

import (
	"context"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/cache"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
)

type parsedVersion struct {
	version model.Version
	ok      bool
}

// VersionParser parses semantic versions, memoising results (failures included)
// in an optional in-memory cache. Targeting rules compare the same few
// version strings on every call.
type VersionParser struct {
	cache *cache.MemoryCache[string, parsedVersion]
}

// NewVersionParser returns a parser caching up to capacity strings.
// A capacity of zero or less disables caching.
func NewVersionParser(capacity int) (*VersionParser, error) {
	if capacity <= 0 {
		return &VersionParser{}, nil
	}
	c, err := cache.NewMemoryCache[string, parsedVersion]("version", capacity, 0)
	if err != nil {
		return nil, err
	}
	return &VersionParser{cache: c}, nil
}

// Parse parses v, which must be a string.
func (p *VersionParser) Parse(v any) (model.Version, bool) {
	s, ok := v.(string)
	if !ok {
		return model.Version{}, false
	}
	if p == nil || p.cache == nil {
		return model.ParseVersion(s)
	}

	if hit, found := p.cache.Get(s); found {
		return hit.version, hit.ok
	}
	version, ok := model.ParseVersion(s)
	p.cache.Set(s, parsedVersion{version: version, ok: ok})
	return version, ok
}

// Close releases the cache.
func (p *VersionParser) Close() {
	if p != nil && p.cache != nil {
		p.cache.Close()
	}
}

// RunMetricsCollector publishes cache size and evictions until ctx is done.
// It returns immediately when caching is disabled.
func (p *VersionParser) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	if p == nil || p.cache == nil {
		return
	}
	p.cache.RunMetricsCollector(ctx, interval)
}
