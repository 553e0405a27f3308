package health

import "context"

// IndexPinger checks search-backend availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ExtractionChecker checks extraction provider availability.
type ExtractionChecker interface {
	HealthCheck(ctx context.Context) error
}
