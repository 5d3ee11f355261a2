package interfaces

import "context"

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks -source=collaborators.go

// ReplayCache remembers resolved idempotency keys. Misses are reported as ok=false.
type ReplayCache interface {
	Get(ctx context.Context, key string) (txnID string, ok bool, err error)
	Set(ctx context.Context, key, txnID string) error
}

// PostingMetrics records posting outcomes.
type PostingMetrics interface {
	ObservePosting(operation, outcome string, seconds float64)
	IncReplay(operation string)
	IncRetry()
	IncPublishFailure()
}
