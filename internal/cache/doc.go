// Package cache provides a small generic LRU cache whose entries own
// resources that must be released when they leave the cache.
//
//	c := cache.New[Key, *Program](64, func(k Key, p *Program) { p.Destroy() })
//	p, err := c.GetOrCreate(key, func() (*Program, error) { return compile(key) })
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
