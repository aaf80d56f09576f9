package sources

import (
	"context"

	"github.com/tacticus-tools/tacticus-codes-bot/internal/models"
)

// Fetcher retrieves the newest posts for a single subreddit, most recent
// first.
type Fetcher interface {
	GetName() string
	IsEnabled() bool
	FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.Post, error)
}
