// Package discovery resolves DNS seeds into candidate peer addresses
// and merges them with the persisted peer registry, falling back to
// the compiled-in seed list when nothing else is available (spec
// §4.C).
package discovery

import (
	"context"
	"net"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hnsresolver/hns-spv/pkg/addrmgr"
	"github.com/hnsresolver/hns-spv/pkg/chaincfg"
)

// fallbackCap bounds the persisted fallback list returned when DNS
// yields nothing (spec §4.C).
const fallbackCap = 50

// Discoverer resolves the compiled-in DNS seed list and merges it
// with the peer registry's verified set.
type Discoverer struct {
	seeds    []string
	port     int
	resolver *net.Resolver
	addrs    *addrmgr.Manager
	log      *zap.Logger
}

// New builds a Discoverer over the given seed list (typically
// chaincfg.MainnetSeeds) and peer registry.
func New(seeds []string, port int, addrs *addrmgr.Manager, log *zap.Logger) *Discoverer {
	return &Discoverer{
		seeds:    seeds,
		port:     port,
		resolver: net.DefaultResolver,
		addrs:    addrs,
		log:      log.With(zap.String("component", "discovery")),
	}
}

// Discover resolves every configured DNS seed within budget, merges
// the result with the persisted verified-peer list, and falls back to
// the persisted fallback list and then the compiled-in seed list if
// DNS yields nothing. A budget timeout is non-fatal: it returns
// whatever was resolved before the deadline (spec §4.C).
func (d *Discoverer) Discover(ctx context.Context, budget time.Duration) []string {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	resolved := d.resolveSeeds(ctx)
	merged := dedupe(append(resolved, d.addrs.VerifiedPeers()...))
	if len(merged) > 0 {
		return merged
	}

	fallback := d.addrs.FallbackPeers(fallbackCap)
	if len(fallback) > 0 {
		d.log.Info("dns discovery empty, using persisted fallback peers", zap.Int("count", len(fallback)))
		return fallback
	}

	d.log.Warn("dns discovery and fallback both empty, using compiled-in seeds")
	return dedupe(chaincfg.FallbackSeeds)
}

func (d *Discoverer) resolveSeeds(ctx context.Context) []string {
	var out []string
	for _, seed := range d.seeds {
		select {
		case <-ctx.Done():
			d.log.Warn("dns discovery budget expired", zap.String("seed", seed))
			return out
		default:
		}

		ips, err := d.resolver.LookupHost(ctx, seed)
		if err != nil {
			d.log.Debug("seed lookup failed", zap.String("seed", seed), zap.Error(err))
			continue
		}
		for _, ip := range ips {
			out = append(out, net.JoinHostPort(ip, portString(d.port)))
		}
	}
	return out
}

func dedupe(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func portString(port int) string {
	return strconv.Itoa(port)
}
