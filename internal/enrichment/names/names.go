// Package names resolves friendly display names for device addresses
// via reverse DNS, used to prefill the name field when a device is
// added to a map by IP.
package names

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Config selects the resolver. When Server is empty the system
// resolver stack is used, which on many LANs also surfaces
// mDNS-style names.
type Config struct {
	Server  string // "host:53"; empty = system resolver
	Timeout time.Duration
}

type Resolver struct {
	cfg Config
	dns *dns.Client
}

func NewResolver(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Resolver{
		cfg: cfg,
		dns: &dns.Client{Timeout: cfg.Timeout},
	}
}

// LookupAddr returns deduplicated candidate names for an address, in
// answer order, with trailing dots stripped.
func (r *Resolver) LookupAddr(ctx context.Context, address string) ([]string, error) {
	if r.cfg.Server == "" {
		names, err := net.DefaultResolver.LookupAddr(ctx, address)
		if err != nil {
			return nil, err
		}
		return dedupe(names), nil
	}

	rev, err := dns.ReverseAddr(address)
	if err != nil {
		return nil, err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(rev, dns.TypePTR)
	msg.RecursionDesired = true

	resp, _, err := r.dns.ExchangeContext(ctx, msg, r.cfg.Server)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}
	return dedupe(names), nil
}

func dedupe(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(strings.TrimSuffix(r, "."))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
