// Package health runs readiness checks against the server's dependencies and publishes the result
// to the gRPC health service.
package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check reports a dependency as healthy by returning nil.
type Check func(ctx context.Context) error

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingCheck adapts a Pinger.
func PingCheck(p Pinger) Check {
	return p.PingContext
}

type namedCheck struct {
	name  string
	check Check
}

// Checker runs named checks. Each check gets its own timeout.
type Checker struct {
	mu      sync.RWMutex
	checks  []namedCheck
	timeout time.Duration
}

// NewChecker returns a Checker. timeout <= 0 uses 2s.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{timeout: timeout}
}

// Add registers a check. nil checks are ignored.
func (c *Checker) Add(name string, check Check) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, namedCheck{name: name, check: check})
}

// Report is the outcome of one run. Failures maps check names to their error text.
type Report struct {
	Ready    bool              `json:"ready"`
	Failures map[string]string `json:"failures,omitempty"`
}

// Run executes every check and returns the report.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]namedCheck(nil), c.checks...)
	c.mu.RUnlock()

	report := Report{Ready: true}
	for _, nc := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := nc.check(checkCtx)
		cancel()
		if err != nil {
			if report.Failures == nil {
				report.Failures = make(map[string]string)
			}
			report.Failures[nc.name] = err.Error()
			report.Ready = false
		}
	}
	return report
}

// Watch runs the checks every interval until ctx is done and sets the serving status of service on srv.
// The first run happens immediately.
func (c *Checker) Watch(ctx context.Context, clock clockwork.Clock, srv *grpchealth.Server, service string, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if report := c.Run(ctx); !report.Ready {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if last != status {
				log.Printf("health: not ready: %v", report.Failures)
			}
		}
		if status != last {
			srv.SetServingStatus(service, status)
			last = status
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
