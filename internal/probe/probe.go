// Package probe checks whether the hosts behind the location and search
// endpoints answer ICMP echo, to tell network trouble from service trouble.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ch00k/cvs-compass/internal/logging"
)

const (
	protocolICMP   = 1
	protocolICMPv6 = 58
)

// Pinger sends ICMP echo requests
type Pinger interface {
	// Ping returns the latency in milliseconds, or nil on timeout, failure
	// or cancellation
	Ping(ctx context.Context, ipAddr string, timeout time.Duration) *float64
	Close() error
}

// PingerFactory creates Pinger instances
type PingerFactory interface {
	CreatePinger(ipv6 bool) (Pinger, error)
}

type defaultPingerFactory struct{}

// NewDefaultPingerFactory returns the factory backed by real sockets
func NewDefaultPingerFactory() PingerFactory {
	return defaultPingerFactory{}
}

func (defaultPingerFactory) CreatePinger(ipv6 bool) (Pinger, error) {
	return createPlatformPinger(ipv6)
}

// Resolver looks up the addresses of a host
type Resolver func(ctx context.Context, network, host string) ([]net.IP, error)

// Target is a named host to probe
type Target struct {
	Name string
	Host string
}

// Result is the outcome of probing one target
type Result struct {
	Target  Target
	Addr    string
	Latency *float64
	Err     error
}

// Options configures Run
type Options struct {
	Timeout  time.Duration
	Workers  int
	IPv6     bool
	Factory  PingerFactory
	Resolver Resolver
	Logger   *logrus.Entry
}

// TargetsFromURLs builds targets from named endpoint URLs, skipping empty
// and unparsable ones. Targets are sorted by name.
func TargetsFromURLs(endpoints map[string]string) []Target {
	var targets []Target
	for name, raw := range endpoints {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		targets = append(targets, Target{Name: name, Host: u.Hostname()})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets
}

// Run resolves and probes targets concurrently. Results keep the order of
// targets.
func Run(ctx context.Context, targets []Target, opts Options) ([]Result, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Factory == nil {
		opts.Factory = NewDefaultPingerFactory()
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver.LookupIP
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	logger.Infof("Probing %d hosts with %d workers (timeout: %v)", len(targets), opts.Workers, opts.Timeout)

	pinger, err := opts.Factory.CreatePinger(opts.IPv6)
	if err != nil {
		return nil, fmt.Errorf("failed to create ICMP socket: %w", err)
	}
	defer func() { _ = pinger.Close() }()

	results := make([]Result, len(targets))
	work := make(chan int, len(targets))
	for i := range targets {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < min(opts.Workers, len(targets)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					results[i] = Result{Target: targets[i], Err: ctx.Err()}
					continue
				}
				results[i] = probeOne(ctx, targets[i], pinger, opts)
			}
		}()
	}
	wg.Wait()

	var ok int
	for _, r := range results {
		if r.Latency != nil {
			ok++
		}
	}
	logger.Infof("Probe completed: %d reachable out of %d", ok, len(results))

	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

func probeOne(ctx context.Context, target Target, pinger Pinger, opts Options) Result {
	result := Result{Target: target}

	addr := target.Host
	if net.ParseIP(addr) == nil {
		network := "ip4"
		if opts.IPv6 {
			network = "ip6"
		}
		ips, err := opts.Resolver(ctx, network, target.Host)
		if err != nil {
			result.Err = fmt.Errorf("failed to resolve %s: %w", target.Host, err)
			return result
		}
		if len(ips) == 0 {
			result.Err = fmt.Errorf("no %s address for %s", network, target.Host)
			return result
		}
		addr = ips[0].String()
	}

	result.Addr = addr
	result.Latency = pinger.Ping(ctx, addr, opts.Timeout)
	return result
}
