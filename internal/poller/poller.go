// Package poller keeps the graph store consistent with the upstream store.
//
// A map-wide interval triggers server-side reachability checks and re-fetches
// the canonical device/edge lists; single-device pings run out of band. Both
// may be in flight at once; the last write to a node wins. A failed bulk
// refresh never clears existing state: stale-but-present beats blank.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"topomap/engine-go/internal/backend"
	"topomap/engine-go/internal/graph"
	"topomap/engine-go/internal/metrics"
	"topomap/engine-go/internal/model"
)

// Options configures a Poller. Zero values get defaults.
type Options struct {
	Interval   time.Duration // map-wide refresh cadence
	BackoffCap time.Duration // upper bound for failure backoff
}

// Poller drives canonical refreshes for one mounted map view.
type Poller struct {
	log        zerolog.Logger
	store      *graph.Store
	client     backend.Client
	metrics    *metrics.Metrics
	cap        model.Capability
	mapID      string
	interval   time.Duration
	backoffCap time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timers  map[string]*deviceTimer
	running bool
}

type deviceTimer struct {
	interval time.Duration
	cancel   context.CancelFunc
}

// New builds a poller for one map.
func New(log zerolog.Logger, store *graph.Store, client backend.Client, capability model.Capability, m *metrics.Metrics, mapID string, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	backoffCap := opts.BackoffCap
	if backoffCap <= 0 {
		backoffCap = 5 * time.Minute
	}
	return &Poller{
		log:        log.With().Str("map_id", mapID).Logger(),
		store:      store,
		client:     client,
		metrics:    m,
		cap:        capability,
		mapID:      mapID,
		interval:   interval,
		backoffCap: backoffCap,
		timers:     make(map[string]*deviceTimer),
	}
}

// Start launches the map-wide refresh loop. Calling Start on a running
// poller is a no-op; one interval per mounted map view.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(runCtx)
}

// Stop cancels the interval and every per-device timer, then waits for
// in-flight work to finish. Results of calls already in flight are dropped
// on the floor by their goroutines exiting.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	for id, t := range p.timers {
		t.cancel()
		delete(p.timers, id)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := p.RefreshOnce(ctx); err != nil {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}

		timer.Reset(backoffDuration(p.interval, p.backoffCap, consecutiveFailures))
	}
}

// backoffDuration stretches the refresh cadence after consecutive failures:
// base * 2^failures, capped.
func backoffDuration(base, maxDelay time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 30 * time.Second
	}
	if failures <= 0 {
		return base
	}
	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// RefreshOnce triggers server-side checks for the whole map, then fetches the
// canonical device and edge lists and replaces store contents. A successful
// fetch is authoritative even when empty; any fetch error leaves the store
// untouched.
func (p *Poller) RefreshOnce(ctx context.Context) error {
	start := time.Now()

	if err := p.client.PingAllDevices(ctx, p.mapID); err != nil {
		// The canonical lists are still worth fetching; statuses will just
		// be as fresh as the store's own last checks.
		p.log.Warn().Err(err).Msg("reachability trigger failed")
	}

	devices, err := p.client.GetDevices(ctx, p.mapID)
	if err != nil {
		p.metrics.ObserveRefresh(err, 0)
		p.log.Error().Err(err).Msg("bulk refresh failed, keeping prior graph state")
		return fmt.Errorf("fetching devices: %w", err)
	}
	edges, err := p.client.GetEdges(ctx, p.mapID)
	if err != nil {
		p.metrics.ObserveRefresh(err, 0)
		p.log.Error().Err(err).Msg("bulk refresh failed, keeping prior graph state")
		return fmt.Errorf("fetching edges: %w", err)
	}

	p.store.ReplaceAll(devices, edges)
	p.metrics.ObserveRefresh(nil, time.Since(start))
	p.log.Debug().Int("devices", len(devices)).Int("edges", len(edges)).Msg("canonical refresh applied")

	p.syncAutoPoll(devices)
	return nil
}

// PingOne runs a single out-of-band check and patches just that node.
// A transport error leaves the node's prior status alone; only an explicit
// unreachable answer marks it offline.
func (p *Poller) PingOne(ctx context.Context, deviceID string) (backend.PingResult, error) {
	res, err := p.client.PingOneDevice(ctx, deviceID)
	if err != nil {
		p.metrics.IncPing("error")
		return backend.PingResult{}, err
	}

	now := time.Now()
	if !res.Reachable {
		p.metrics.IncPing("unreachable")
		p.store.UpdateNode(deviceID, func(d *model.Device) {
			d.Status = model.StatusOffline
		})
		return res, nil
	}

	p.metrics.IncPing("reachable")
	p.store.UpdateNode(deviceID, func(d *model.Device) {
		d.Status = model.StatusOnline
		d.LastSeen = &now
		if res.LatencyMs != nil {
			v := *res.LatencyMs
			d.LastAvgLatency = &v
		}
		if res.TTL != nil {
			v := *res.TTL
			d.LastTTL = &v
		}
	})
	return res, nil
}

// syncAutoPoll reconciles per-device ping timers with the canonical device
// list. Auto-poll writes status upstream, so it only runs for callers with
// mutation capability.
func (p *Poller) syncAutoPoll(devices []model.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	want := make(map[string]time.Duration)
	if p.cap.CanMutate() {
		for _, d := range devices {
			if d.PingInterval == nil || *d.PingInterval <= 0 || d.IPAddress == "" {
				continue
			}
			want[d.ID] = time.Duration(*d.PingInterval) * time.Second
		}
	}

	for id, t := range p.timers {
		interval, ok := want[id]
		if !ok || interval != t.interval {
			t.cancel()
			delete(p.timers, id)
		}
	}

	for id, interval := range want {
		if _, ok := p.timers[id]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		p.timers[id] = &deviceTimer{interval: interval, cancel: cancel}

		p.wg.Add(1)
		go p.runDeviceTimer(ctx, id, interval)
	}
}

func (p *Poller) runDeviceTimer(ctx context.Context, deviceID string, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PingOne(ctx, deviceID); err != nil {
				p.log.Debug().Err(err).Str("device_id", deviceID).Msg("auto-poll ping failed")
			}
		}
	}
}
