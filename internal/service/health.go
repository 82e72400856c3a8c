package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger, e.g. (*sql.DB).PingContext.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthReport lists every dependency and whether it answered.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthService checks the service dependencies.
type HealthService interface {
	Check(ctx context.Context) (*HealthReport, bool)
}

type healthService struct {
	deps    map[string]Pinger
	timeout time.Duration
}

// NewHealthService checks every dependency in deps. Nil entries are skipped.
func NewHealthService(deps map[string]Pinger, timeout time.Duration) HealthService {
	clean := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			clean[name] = p
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &healthService{deps: clean, timeout: timeout}
}

// Check pings every dependency concurrently. The bool is false when any of them failed.
func (s *healthService) Check(ctx context.Context) (*HealthReport, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names := make([]string, 0, len(s.deps))
	for name := range s.deps {
		names = append(names, name)
	}
	results := make([]error, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = s.deps[name].Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	report := &HealthReport{Status: "healthy", Checks: make(map[string]string, len(names))}
	healthy := true
	for i, name := range names {
		if results[i] != nil {
			report.Checks[name] = "unavailable"
			healthy = false
			continue
		}
		report.Checks[name] = "ok"
	}
	if !healthy {
		report.Status = "unhealthy"
	}
	return report, healthy
}
