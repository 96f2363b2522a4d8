package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/jpalmerr/labboard/internal/model"
)

// DefaultSubnet is scanned when the operator leaves the subnet blank.
const DefaultSubnet = "192.168.0.0/24"

const (
	defaultTopPorts = 100
	maxTopPorts     = 1000
)

var (
	// ErrUnknownHost is returned when merging an address that is not pending.
	ErrUnknownHost = errors.New("host is not in the pending discoveries")

	// ErrInvalidSchedule wraps every subnet and schedule bound violation.
	ErrInvalidSchedule = errors.New("invalid scan settings")
)

// Backend is the subset of the API client used for discovery.
type Backend interface {
	Discoveries(ctx context.Context) ([]model.DiscoveredHost, error)
	Scan(ctx context.Context, subnet string, topPorts int) ([]model.DiscoveredHost, error)
	Schedule(ctx context.Context) (model.Schedule, error)
	SetSchedule(ctx context.Context, s model.Schedule) error
}

// Service tracks pending discoveries between scans.
type Service struct {
	backend Backend

	mu      sync.RWMutex
	pending []model.DiscoveredHost
}

// NewService creates a discovery service.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// Refresh loads previously found hosts from the backend.
func (s *Service) Refresh(ctx context.Context) ([]model.DiscoveredHost, error) {
	hosts, err := s.backend.Discoveries(ctx)
	if err != nil {
		return nil, err
	}
	s.setPending(hosts)
	return s.Pending(), nil
}

// Scan runs an active discovery of subnet and replaces the pending list.
func (s *Service) Scan(ctx context.Context, subnet string) ([]model.DiscoveredHost, error) {
	if subnet == "" {
		subnet = DefaultSubnet
	}
	if _, err := netip.ParsePrefix(subnet); err != nil {
		return nil, fmt.Errorf("%w: subnet %q: %v", ErrInvalidSchedule, subnet, err)
	}

	hosts, err := s.backend.Scan(ctx, subnet, 0)
	if err != nil {
		return nil, err
	}
	s.setPending(hosts)
	return s.Pending(), nil
}

// Pending returns a copy of the pending hosts.
func (s *Service) Pending() []model.DiscoveredHost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.DiscoveredHost{}, s.pending...)
}

// Lookup returns the pending host with ip.
func (s *Service) Lookup(ip string) (model.DiscoveredHost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.pending {
		if h.IP == ip {
			return h, nil
		}
	}
	return model.DiscoveredHost{}, fmt.Errorf("%s: %w", ip, ErrUnknownHost)
}

// Schedule returns the backend's recurring scan configuration.
func (s *Service) Schedule(ctx context.Context) (model.Schedule, error) {
	return s.backend.Schedule(ctx)
}

// SetSchedule validates and stores a recurring scan configuration.
// A blank subnet defaults to [DefaultSubnet] and zero top ports to 100.
func (s *Service) SetSchedule(ctx context.Context, sched model.Schedule) (model.Schedule, error) {
	sched, err := NormalizeSchedule(sched)
	if err != nil {
		return model.Schedule{}, err
	}
	if err := s.backend.SetSchedule(ctx, sched); err != nil {
		return model.Schedule{}, err
	}
	return sched, nil
}

// NormalizeSchedule applies defaults and bounds to sched.
func NormalizeSchedule(sched model.Schedule) (model.Schedule, error) {
	if sched.Subnet == "" {
		sched.Subnet = DefaultSubnet
	}
	if sched.TopPorts == 0 {
		sched.TopPorts = defaultTopPorts
	}
	if _, err := netip.ParsePrefix(sched.Subnet); err != nil {
		return model.Schedule{}, fmt.Errorf("%w: subnet %q: %v", ErrInvalidSchedule, sched.Subnet, err)
	}
	if sched.IntervalMin < 0 {
		return model.Schedule{}, fmt.Errorf("%w: interval_min cannot be negative, got %d", ErrInvalidSchedule, sched.IntervalMin)
	}
	if sched.TopPorts < 1 || sched.TopPorts > maxTopPorts {
		return model.Schedule{}, fmt.Errorf("%w: top_ports must be between 1 and %d, got %d", ErrInvalidSchedule, maxTopPorts, sched.TopPorts)
	}
	return sched, nil
}

func (s *Service) setPending(hosts []model.DiscoveredHost) {
	s.mu.Lock()
	s.pending = append([]model.DiscoveredHost{}, hosts...)
	s.mu.Unlock()
}
