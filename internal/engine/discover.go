package engine

import (
	"context"

	"github.com/jpalmerr/labboard/internal/discovery"
	"github.com/jpalmerr/labboard/internal/model"
	"github.com/jpalmerr/labboard/internal/store"
)

// Discoveries returns the pending discovered hosts. With refresh set they
// are reloaded from the backend first.
func (e *Engine) Discoveries(ctx context.Context, refresh bool) ([]model.DiscoveredHost, error) {
	if !refresh {
		return e.discovery.Pending(), nil
	}
	hosts, err := e.discovery.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	e.board.Publish(store.KindDiscoveries, hosts)
	return hosts, nil
}

// Scan runs an active discovery of subnet (blank for the default) and
// replaces the pending hosts.
func (e *Engine) Scan(ctx context.Context, subnet string) ([]model.DiscoveredHost, error) {
	hosts, err := e.discovery.Scan(ctx, subnet)
	if err != nil {
		return nil, err
	}
	e.logger.Info("scan completed", "subnet", subnet, "hosts", len(hosts))
	e.board.Publish(store.KindDiscoveries, hosts)
	return hosts, nil
}

// MergeDiscovered stages the pending host with ip into the buffer's
// "Discovered" group. Nothing is rendered or persisted until the buffer is
// applied.
func (e *Engine) MergeDiscovered(ip string, withLinks bool) error {
	host, err := e.discovery.Lookup(ip)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return discovery.Merge(e.buffer, host, withLinks)
}

// Schedule returns the recurring scan configuration.
func (e *Engine) Schedule(ctx context.Context) (model.Schedule, error) {
	return e.discovery.Schedule(ctx)
}

// SetSchedule stores a recurring scan configuration and returns it with
// defaults applied.
func (e *Engine) SetSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	return e.discovery.SetSchedule(ctx, s)
}
