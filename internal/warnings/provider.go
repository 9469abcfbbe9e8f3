package warnings

import "context"

// Fetcher retrieves the raw feed document from upstream. Implementations
// should return once ctx is done; the cache stops waiting at the deadline but
// will not start another fetch until the previous one has returned.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetcherFunc adapts a plain GET function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Observer is called with every successfully published snapshot.
// Observers run on the refresh path and must return quickly.
type Observer func(Snapshot)

// Reporter is the display surface a RegionView writes its state to.
type Reporter interface {
	Report(state RegionState)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(state RegionState)

func (f ReporterFunc) Report(state RegionState) {
	f(state)
}

// Reporters fans a state out to several display surfaces in order.
type Reporters []Reporter

func (rs Reporters) Report(state RegionState) {
	for _, r := range rs {
		r.Report(state)
	}
}
