package sources

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/models"
)

// FallbackFetcher tries a primary fetcher and, on any error, a fallback
// producing posts of the same shape so downstream stages are
// transport-agnostic. Failures are reported through the returned error, not
// propagated as panics or shared state.
type FallbackFetcher struct {
	primary  Fetcher
	fallback Fetcher
}

// Ensure FallbackFetcher implements Fetcher
var _ Fetcher = (*FallbackFetcher)(nil)

// NewFallbackFetcher creates a two-strategy fetcher.
func NewFallbackFetcher(primary, fallback Fetcher) *FallbackFetcher {
	return &FallbackFetcher{primary: primary, fallback: fallback}
}

func (f *FallbackFetcher) GetName() string {
	return "reddit"
}

func (f *FallbackFetcher) IsEnabled() bool {
	return f.primary.IsEnabled() || f.fallback.IsEnabled()
}

// FetchPosts fetches through the primary strategy, falling back on any
// failure (auth, network, rate limit). Both failing yields an error that
// covers both attempts.
func (f *FallbackFetcher) FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.Post, error) {
	var primaryErr error

	if f.primary.IsEnabled() {
		posts, err := f.primary.FetchPosts(ctx, subreddit, limit)
		if err == nil {
			return posts, nil
		}
		primaryErr = err
		logrus.Warnf("%s failed for r/%s, falling back to %s: %v",
			f.primary.GetName(), subreddit, f.fallback.GetName(), err)
	} else {
		primaryErr = fmt.Errorf("%s disabled", f.primary.GetName())
		logrus.Debugf("%s disabled, using %s for r/%s", f.primary.GetName(), f.fallback.GetName(), subreddit)
	}

	posts, err := f.fallback.FetchPosts(ctx, subreddit, limit)
	if err != nil {
		return nil, fmt.Errorf("both fetch strategies failed for r/%s: primary: %v; fallback: %w",
			subreddit, primaryErr, err)
	}

	return posts, nil
}
