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

const (
	redditTokenURL  = "https://www.reddit.com/api/v1/access_token"
	redditOAuthBase = "https://oauth.reddit.com"
)

// RedditSource fetches subreddit listings through the authenticated OAuth
// API using application-only (client credentials) auth.
type RedditSource struct {
	clientID     string
	clientSecret string
	userAgent    string
	client       *resty.Client
	accessToken  string
}

// Ensure RedditSource implements Fetcher
var _ Fetcher = (*RedditSource)(nil)

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewRedditSource creates a new authenticated Reddit source.
func NewRedditSource(clientID, clientSecret, userAgent string) *RedditSource {
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		client:       resty.New().SetTimeout(15 * time.Second),
	}
}

func (r *RedditSource) GetName() string {
	return "reddit-api"
}

func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

// FetchPosts returns the newest posts of the subreddit, most recent first.
func (r *RedditSource) FetchPosts(ctx context.Context, subreddit string, limit int) ([]models.Post, error) {
	if !r.IsEnabled() {
		return nil, fmt.Errorf("reddit API source disabled: missing credentials")
	}

	if err := r.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	listingURL := fmt.Sprintf("%s/r/%s/new.json", r.baseURL(), subreddit)

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+r.accessToken).
		SetHeader("User-Agent", r.userAgent).
		SetQueryParams(map[string]string{
			"limit":    fmt.Sprintf("%d", limit),
			"raw_json": "1",
		}).
		Get(listingURL)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d for r/%s", resp.StatusCode(), subreddit)
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to decode reddit API listing for r/%s: %w", subreddit, err)
	}

	posts := listing.toPosts()
	logrus.Debugf("Fetched %d posts from r/%s via reddit API", len(posts), subreddit)
	return posts, nil
}

func (r *RedditSource) authenticate(ctx context.Context) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(r.tokenURL())

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return err
	}
	if authResp.AccessToken == "" {
		return fmt.Errorf("token endpoint returned no access token")
	}

	r.accessToken = authResp.AccessToken
	return nil
}

func (r *RedditSource) baseURL() string {
	if r.client.BaseURL != "" {
		return r.client.BaseURL
	}
	return redditOAuthBase
}

func (r *RedditSource) tokenURL() string {
	if r.client.BaseURL != "" {
		return r.client.BaseURL + "/api/v1/access_token"
	}
	return redditTokenURL
}
