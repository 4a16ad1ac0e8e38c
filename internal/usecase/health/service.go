package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the search engine is unreachable; records stay readable.
	Degraded Status = "degraded"
	// Unhealthy indicates the primary store is unavailable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	storage Pinger
	search  Pinger
}

// New creates a Service. search can be nil.
func New(storage, search Pinger) *Service {
	return &Service{storage: storage, search: search}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{"storage": probe(ctx, s.storage)}
	if s.search != nil {
		checks["search"] = probe(ctx, s.search)
	}

	status := Healthy
	switch {
	case checks["storage"] == CheckError:
		status = Unhealthy
	case checks["search"] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func probe(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
