package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/models"
)

const redditPublicBase = "https://www.reddit.com"

// PublicSource fetches subreddit listings from the unauthenticated public
// .json endpoint. It needs no credentials and serves as the fallback when
// the OAuth API is unavailable.
type PublicSource struct {
	userAgent string
	client    *resty.Client
}

// Ensure PublicSource implements Fetcher
var _ Fetcher = (*PublicSource)(nil)

// NewPublicSource creates a new unauthenticated Reddit source.
func NewPublicSource(userAgent string) *PublicSource {
	return &PublicSource{
		userAgent: userAgent,
		client:    resty.New().SetTimeout(15 * time.Second),
	}
}

func (p *PublicSource) GetName() string {
	return "reddit-public"
}

func (p *PublicSource) IsEnabled() bool {
	return true
}

// FetchPosts returns the newest posts of the subreddit, most recent first.
func (p *PublicSource) FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.Post, error) {
	listingURL := fmt.Sprintf("%s/r/%s/new.json", p.baseURL(), subreddit)

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", p.userAgent).
		SetQueryParams(map[string]string{
			"limit":    fmt.Sprintf("%d", limit),
			"raw_json": "1",
		}).
		Get(listingURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("public reddit endpoint returned status %d for r/%s", resp.StatusCode(), subreddit)
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to decode public listing for r/%s: %w", subreddit, err)
	}

	posts := listing.toPosts()
	logrus.Debugf("Fetched %d posts from r/%s via public endpoint", len(posts), subreddit)
	return posts, nil
}

func (p *PublicSource) baseURL() string {
	if p.client.BaseURL != "" {
		return p.client.BaseURL
	}
	return redditPublicBase
}
