package failures

import "context"

// Repository defines persistence for provider failures
type Repository interface {
	Save(ctx context.Context, f *ProviderFailure) error
	ListByRequest(ctx context.Context, requestID string, limit int) ([]*ProviderFailure, error)
	Ping(ctx context.Context) error
}
