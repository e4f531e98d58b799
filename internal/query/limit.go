package query

import "context"

// FetchLimiter bounds concurrent upstream fetches. runtime.Controller
// satisfies it.
type FetchLimiter interface {
	AcquireFetch(ctx context.Context) error
	ReleaseFetch()
}

// LimitFetcher wraps a Fetcher so every upstream call holds a fetch slot
// for its duration. Coalescing in the facade already keeps one flight per
// key; the limiter caps flights across keys.
func LimitFetcher(f Fetcher, l FetchLimiter) Fetcher {
	return &limitedFetcher{fetcher: f, limiter: l}
}

type limitedFetcher struct {
	fetcher Fetcher
	limiter FetchLimiter
}

func (lf *limitedFetcher) FetchMembers(ctx context.Context) ([]byte, error) {
	if err := lf.limiter.AcquireFetch(ctx); err != nil {
		return nil, err
	}
	defer lf.limiter.ReleaseFetch()
	return lf.fetcher.FetchMembers(ctx)
}

func (lf *limitedFetcher) FetchSheet(ctx context.Context, sheetID int) ([]byte, error) {
	if err := lf.limiter.AcquireFetch(ctx); err != nil {
		return nil, err
	}
	defer lf.limiter.ReleaseFetch()
	return lf.fetcher.FetchSheet(ctx, sheetID)
}
