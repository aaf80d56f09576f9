package monitoring

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/config"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/models"
)

func testConfig() *config.Config {
	persist := true
	cfg := &config.Config{
		Reddit: config.RedditConfig{
			Subreddits: map[string]config.SubredditRule{
				"TacticusCodes": {},
			},
		},
		Application: config.ApplicationConfig{
			PostLimit: 25,
		},
		Notifications: config.NotificationsConfig{
			NtfyTopicURL:     "https://ntfy.sh/test",
			NtfyTitle:        "New Tacticus Code!",
			PersistOnFailure: &persist,
		},
		Filtering: config.FilteringConfig{
			TrustedUsers: []string{"reliable_user"},
			IgnoredWords: []string{"NEW", "CODE", "CODES", "THE", "REDDIT"},
			BodyScan:     config.BodyScanAlways,
		},
	}
	// The candidate class includes dashes so referral-shaped tokens surface
	// as single candidates for the referral filter to reject.
	cfg.CandidateCodeRegexp = regexp.MustCompile(`\b[A-Z0-9-]{3,25}\b`)
	cfg.ReferralCodeRegexp = regexp.MustCompile(`^[A-Z]{3}-[0-9]{2,3}-[A-Z]{3}$`)
	return cfg
}

func newTestService(cfg *config.Config) *Service {
	return NewService(cfg, nil, nil, nil, nil)
}

func TestService_extractCodes(t *testing.T) {
	service := newTestService(testConfig())

	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "Simple code in text",
			text:     "Grab the code FREEBLACKSTONE22 before it expires",
			expected: []string{"GRAB", "FREEBLACKSTONE22", "BEFORE", "EXPIRES"},
		},
		{
			name:     "Referral code shape excluded",
			text:     "Use my referral ABC-12-DEF for bonuses",
			expected: []string{"USE", "REFERRAL", "FOR", "BONUSES"},
		},
		{
			name:     "Three digit referral excluded",
			text:     "XYZ-123-QWE",
			expected: nil,
		},
		{
			name:     "Ignored words excluded regardless of case",
			text:     "new CODE codes Reddit",
			expected: nil,
		},
		{
			name:     "Numeric only token is a candidate",
			text:     "code 4815162342 works",
			expected: []string{"4815162342", "WORKS"},
		},
		{
			name:     "Tokens canonicalized to uppercase",
			text:     "freeStuff99",
			expected: []string{"FREESTUFF99"},
		},
		{
			name:     "Too short and too long tokens excluded",
			text:     "AB ABCDEFGHIJ0123456789ABCDEFGHIJ",
			expected: nil,
		},
		{
			name:     "Token bounded by punctuation",
			text:     "(WINTER24!)",
			expected: []string{"WINTER24"},
		},
		{
			name:     "Empty text",
			text:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, service.extractCodes(tt.text))
		})
	}
}

func TestService_extractFromPost_DeduplicatesWithinPost(t *testing.T) {
	service := newTestService(testConfig())

	post := models.Post{
		ID:    "p1",
		Title: "FREEBLACKSTONE22 is live",
		Body:  "Confirming FREEBLACKSTONE22 works",
	}

	codes := service.extractFromPost(post)
	assert.Equal(t, []string{"FREEBLACKSTONE22", "LIVE", "CONFIRMING", "WORKS"}, codes)
}

func TestService_extractFromPost_BodyScanModes(t *testing.T) {
	post := models.Post{
		ID:    "p1",
		Title: "Some ordinary title here",
		Body:  "The code is FREEBLACKSTONE22",
	}
	hintedPost := models.Post{
		ID:    "p2",
		Title: "New codes!",
		Body:  "FREEBLACKSTONE22",
	}

	t.Run("Always scans body", func(t *testing.T) {
		service := newTestService(testConfig())
		assert.Contains(t, service.extractFromPost(post), "FREEBLACKSTONE22")
	})

	t.Run("Hinted skips body without hint", func(t *testing.T) {
		cfg := testConfig()
		cfg.Filtering.BodyScan = config.BodyScanHinted
		service := newTestService(cfg)
		assert.NotContains(t, service.extractFromPost(post), "FREEBLACKSTONE22")
	})

	t.Run("Hinted scans body when title hints", func(t *testing.T) {
		cfg := testConfig()
		cfg.Filtering.BodyScan = config.BodyScanHinted
		service := newTestService(cfg)
		assert.Contains(t, service.extractFromPost(hintedPost), "FREEBLACKSTONE22")
	})

	t.Run("Hinted prefers title codes over body", func(t *testing.T) {
		cfg := testConfig()
		cfg.Filtering.BodyScan = config.BodyScanHinted
		service := newTestService(cfg)
		codes := service.extractFromPost(models.Post{
			Title: "TITLECODE77",
			Body:  "BODYCODE88",
		})
		assert.Contains(t, codes, "TITLECODE77")
		assert.NotContains(t, codes, "BODYCODE88")
	})
}

func TestTitleHintsBody(t *testing.T) {
	tests := []struct {
		title    string
		expected bool
	}{
		{"New codes!", true},
		{"Another code", true},
		{"The code is in the body", true},
		{"Look inside", true},
		{"Check the post for code", true},
		{"Weekly discussion thread", false},
		{"Best roster advice?", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, titleHintsBody(tt.title))
		})
	}
}

func TestService_confirmCodes(t *testing.T) {
	service := newTestService(testConfig())

	tests := []struct {
		name        string
		occurrences []models.Occurrence
		expected    []string
	}{
		{
			name: "Single post by untrusted author not confirmed",
			occurrences: []models.Occurrence{
				{Code: "LONECODE1", Author: "random_user", PostID: "p1"},
			},
			expected: nil,
		},
		{
			name: "Two distinct posts confirm",
			occurrences: []models.Occurrence{
				{Code: "TWICE22", Author: "user_a", PostID: "p1"},
				{Code: "TWICE22", Author: "user_b", PostID: "p2"},
			},
			expected: []string{"TWICE22"},
		},
		{
			name: "Same post counted once",
			occurrences: []models.Occurrence{
				{Code: "REPEAT33", Author: "user_a", PostID: "p1"},
				{Code: "REPEAT33", Author: "user_a", PostID: "p1"},
			},
			expected: nil,
		},
		{
			name: "Trusted author confirms immediately",
			occurrences: []models.Occurrence{
				{Code: "TRUSTED44", Author: "reliable_user", PostID: "p1"},
			},
			expected: []string{"TRUSTED44"},
		},
		{
			name: "Confirmed codes sorted",
			occurrences: []models.Occurrence{
				{Code: "ZED99", Author: "reliable_user", PostID: "p1"},
				{Code: "ALPHA11", Author: "reliable_user", PostID: "p2"},
			},
			expected: []string{"ALPHA11", "ZED99"},
		},
		{
			name:        "No occurrences",
			occurrences: nil,
			expected:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, service.confirmCodes(tt.occurrences))
		})
	}
}

func TestService_collectOccurrences(t *testing.T) {
	service := newTestService(testConfig())

	posts := []models.Post{
		{ID: "p1", Author: "user_a", Title: "WINTER24 dropped", Body: "WINTER24 again"},
		{ID: "p2", Author: "user_b", Title: "WINTER24"},
	}

	occurrences := service.collectOccurrences(posts)

	var winter []models.Occurrence
	for _, occ := range occurrences {
		if occ.Code == "WINTER24" {
			winter = append(winter, occ)
		}
	}
	assert.Len(t, winter, 2)
	assert.Equal(t, "p1", winter[0].PostID)
	assert.Equal(t, "p2", winter[1].PostID)
}
