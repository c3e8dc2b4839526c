package quadbatch

import "github.com/gogpu/quadbatch/internal/cache"

// DefaultProxyCacheCapacity is the per-shard capacity of a ProxyProvider.
const DefaultProxyCacheCapacity = 64

// ProxyProvider shares texture proxies by a caller-chosen unique key, so
// that repeated draws of one image reference a single proxy and batch
// together. The provider holds one reference on every cached proxy and
// drops it when the proxy is evicted or removed.
//
// ProxyProvider is safe for concurrent use.
type ProxyProvider struct {
	proxies *cache.Sharded[string, *TextureProxy]
}

// NewProxyProvider creates a provider caching up to capacity proxies per
// shard. A capacity <= 0 selects DefaultProxyCacheCapacity.
func NewProxyProvider(capacity int) *ProxyProvider {
	if capacity <= 0 {
		capacity = DefaultProxyCacheCapacity
	}
	return &ProxyProvider{
		proxies: cache.NewSharded(capacity, cache.StringHasher, func(key string, p *TextureProxy) {
			Logger().Debug("quadbatch: proxy evicted", "key", key, "proxy", p.ID())
			p.Unref()
		}),
	}
}

// FindOrCreate returns the proxy cached under key, creating it from desc
// on a miss. The caller receives its own reference. desc is ignored when
// key is already cached.
func (pp *ProxyProvider) FindOrCreate(key string, desc ProxyDesc) *TextureProxy {
	p, _ := pp.proxies.GetOrCreate(key, func() (*TextureProxy, error) {
		if desc.Label == "" {
			desc.Label = key
		}
		return NewTextureProxy(desc), nil
	})
	p.Ref()
	return p
}

// Find returns the proxy cached under key with a reference for the
// caller.
func (pp *ProxyProvider) Find(key string) (*TextureProxy, bool) {
	p, ok := pp.proxies.Get(key)
	if ok {
		p.Ref()
	}
	return p, ok
}

// Remove drops the provider's reference on key's proxy.
func (pp *ProxyProvider) Remove(key string) bool { return pp.proxies.Delete(key) }

// Purge drops every cached proxy.
func (pp *ProxyProvider) Purge() { pp.proxies.Clear() }

// Len returns the number of cached proxies.
func (pp *ProxyProvider) Len() int { return pp.proxies.Len() }
