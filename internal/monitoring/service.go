package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/config"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/models"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/notifications"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/sources"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/storage"
)

// LedgerBackup mirrors ledger snapshots to off-host storage.
type LedgerBackup interface {
	Backup(ctx context.Context, data []byte) error
}

// Service runs the fetch -> filter -> extract -> confirm -> notify cycle.
// Confirmation state is rebuilt every cycle; the ledger is the only state
// that survives between cycles.
type Service struct {
	config   *config.Config
	fetcher  sources.Fetcher
	ledger   storage.Ledger
	notifier notifications.Notifier
	backup   LedgerBackup // nil when no backup is configured

	trustedUsers map[string]struct{}
	ignoredWords map[string]struct{}

	// cycleMu serializes RunCycle: the scheduler, the startup cycle and the
	// manual trigger endpoint may all request a cycle, but only one runs at a
	// time. The ledger and the fetcher are only touched under this lock.
	cycleMu sync.Mutex

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds per-cycle counters, exposed on /metrics.
type Metrics struct {
	CyclesRun       int            `json:"cycles_run"`
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	PostsFetched    int            `json:"posts_fetched"`
	PostsAccepted   int            `json:"posts_accepted"`
	CodesConfirmed  int            `json:"codes_confirmed"`
	CodesNotified   int            `json:"codes_notified"`
	TotalNotified   int            `json:"total_notified"`
	FetchErrors     int            `json:"fetch_errors"`
	SubredditPosts  map[string]int `json:"subreddit_posts"`
}

// NewService creates a new monitoring service. backup may be nil.
func NewService(cfg *config.Config, fetcher sources.Fetcher, ledger storage.Ledger, notifier notifications.Notifier, backup LedgerBackup) *Service {
	trusted := make(map[string]struct{}, len(cfg.Filtering.TrustedUsers))
	for _, user := range cfg.Filtering.TrustedUsers {
		trusted[user] = struct{}{}
	}

	ignored := make(map[string]struct{}, len(cfg.Filtering.IgnoredWords))
	for _, word := range cfg.Filtering.IgnoredWords {
		ignored[strings.ToUpper(word)] = struct{}{}
	}

	return &Service{
		config:       cfg,
		fetcher:      fetcher,
		ledger:       ledger,
		notifier:     notifier,
		backup:       backup,
		trustedUsers: trusted,
		ignoredWords: ignored,
		metrics: &Metrics{
			SubredditPosts: make(map[string]int),
		},
	}
}

// RunCycle executes one full fetch-to-notify pass over every configured
// subreddit. Concurrent callers are serialized, one cycle at a time.
// Per-subreddit and per-code failures are logged and isolated; the only
// error returned is the degenerate case where no subreddit could be fetched
// at all.
func (s *Service) RunCycle(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	logrus.Info("Starting fetch cycle")

	var accepted []models.Post
	totalFetched := 0
	fetchErrors := 0
	subredditPosts := make(map[string]int)

	for subreddit, rule := range s.config.Reddit.Subreddits {
		posts, err := s.fetcher.FetchPosts(ctx, subreddit, s.config.Application.PostLimit)
		if err != nil {
			logrus.Errorf("Skipping r/%s for this cycle: %v", subreddit, err)
			fetchErrors++
			continue
		}

		totalFetched += len(posts)
		subredditPosts[subreddit] = len(posts)

		for _, post := range posts {
			if !flairAllowed(post.Flair, rule.AllowedFlairs) {
				logrus.Debugf("Skipping post %s from r/%s due to flair %q", post.ID, subreddit, post.Flair)
				continue
			}
			accepted = append(accepted, post)
		}
	}

	logrus.Infof("Fetched %d posts, %d accepted after flair filtering", totalFetched, len(accepted))

	occurrences := s.collectOccurrences(accepted)
	confirmed := s.confirmCodes(occurrences)

	if len(confirmed) > 0 {
		logrus.Infof("Confirmed codes this cycle: %s", strings.Join(confirmed, ", "))
	} else {
		logrus.Info("No confirmed codes this cycle")
	}

	notified := s.notifyNewCodes(ctx, confirmed)

	if notified > 0 && s.backup != nil {
		s.backupLedger(ctx)
	}

	s.updateMetrics(totalFetched, len(accepted), len(confirmed), notified, fetchErrors, subredditPosts, time.Since(start))

	logrus.Infof("Cycle completed in %v, %d new codes notified", time.Since(start), notified)

	if fetchErrors > 0 && fetchErrors == len(s.config.Reddit.Subreddits) {
		return fmt.Errorf("all %d subreddit fetches failed this cycle", fetchErrors)
	}
	return nil
}

// flairAllowed reports whether a post flair passes the subreddit allow-list.
// An empty allow-list accepts everything; otherwise the flair must match an
// entry exactly, case and whitespace included.
func flairAllowed(flair string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, entry := range allowed {
		if flair == entry {
			return true
		}
	}
	return false
}

// notifyNewCodes sends notifications for confirmed codes not yet in the
// ledger and persists them according to the persist-on-failure policy.
// Returns the number of codes that entered the ledger.
func (s *Service) notifyNewCodes(ctx context.Context, confirmed []string) int {
	persisted := 0

	for _, code := range confirmed {
		if s.ledger.Contains(code) {
			logrus.Debugf("Code %s already notified", code)
			continue
		}

		err := s.notifier.NotifyCode(ctx, code)
		if err != nil {
			logrus.Warnf("Delivery incomplete for code %s: %v", code, err)
		}

		if err != nil && !*s.config.Notifications.PersistOnFailure {
			logrus.Warnf("Not persisting %s; it will be re-attempted next cycle if still confirmed", code)
			continue
		}

		if addErr := s.ledger.Add(code); addErr != nil {
			// The in-memory ledger still has the code, so this process will
			// not repeat the notification, but a restart would.
			logrus.Errorf("LEDGER WRITE FAILED for %s: %v", code, addErr)
		}
		persisted++
	}

	return persisted
}

func (s *Service) backupLedger(ctx context.Context) {
	codes := s.ledger.Codes()
	if len(codes) == 0 {
		return
	}
	data := []byte(strings.Join(codes, "\n") + "\n")
	if err := s.backup.Backup(ctx, data); err != nil {
		logrus.Errorf("Ledger backup failed: %v", err)
	}
}

func (s *Service) updateMetrics(fetched, accepted, confirmed, notified, fetchErrors int, subredditPosts map[string]int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.CyclesRun++
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.PostsFetched = fetched
	s.metrics.PostsAccepted = accepted
	s.metrics.CodesConfirmed = confirmed
	s.metrics.CodesNotified = notified
	s.metrics.TotalNotified += notified
	s.metrics.FetchErrors = fetchErrors
	s.metrics.SubredditPosts = subredditPosts
}

// GetMetrics returns current metrics as JSON.
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
