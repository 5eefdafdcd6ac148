// Package enrich resolves reverse DNS names for probed addresses.
package enrich

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// RDNSResolver performs cached reverse DNS lookups.
type RDNSResolver struct {
	timeout time.Duration
	cache   *Cache
}

// RDNSConfig holds configuration for the rDNS resolver.
type RDNSConfig struct {
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// DefaultRDNSConfig returns default rDNS configuration.
func DefaultRDNSConfig() RDNSConfig {
	return RDNSConfig{
		Timeout:   2 * time.Second,
		CacheSize: 1000,
		CacheTTL:  5 * time.Minute,
	}
}

// NewRDNSResolver creates a new reverse DNS resolver.
func NewRDNSResolver(config RDNSConfig) *RDNSResolver {
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Second
	}
	var cache *Cache
	if config.CacheSize > 0 {
		cache = NewCache(config.CacheSize, config.CacheTTL)
	}
	return &RDNSResolver{timeout: config.Timeout, cache: cache}
}

// Lookup resolves the PTR name for ip. Lookup failures come back as an
// empty name, not an error; missing reverse DNS is the common case and
// should never fail a ping run.
func (r *RDNSResolver) Lookup(ctx context.Context, ip net.IP) string {
	if ip == nil {
		return ""
	}
	ipStr := ip.String()

	if r.cache != nil {
		if cached, ok := r.cache.Get(ipStr); ok {
			return cached
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	hostname := ""
	if names, err := net.DefaultResolver.LookupAddr(lookupCtx, ipStr); err == nil && len(names) > 0 {
		hostname = strings.TrimSuffix(names[0], ".")
	}

	if r.cache != nil {
		r.cache.Set(ipStr, hostname)
	}
	return hostname
}

// LookupBatch resolves multiple IPs concurrently, keyed by IP string.
func (r *RDNSResolver) LookupBatch(ctx context.Context, ips []net.IP) map[string]string {
	results := make(map[string]string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, 10)
	for _, ip := range ips {
		if ip == nil {
			continue
		}
		wg.Add(1)
		go func(ip net.IP) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			hostname := r.Lookup(ctx, ip)
			mu.Lock()
			results[ip.String()] = hostname
			mu.Unlock()
		}(ip)
	}
	wg.Wait()
	return results
}

// Close releases the resolver's cache.
func (r *RDNSResolver) Close() error {
	if r.cache != nil {
		r.cache.Clear()
	}
	return nil
}
