package monitoring

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tacticus-tools/tacticus-codes-bot/internal/config"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/models"
)

// Title shapes that suggest the code lives in the post body rather than the
// title. Only consulted in "hinted" body-scan mode.
var bodyHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(another|just a|one more|a new|some|more)\s+code\s*(!|\.|here|below|inside|for you)?\s*$`),
	regexp.MustCompile(`(?i)^\s*new\s+code\s*-\s*\d+.*blackstone.*`),
	regexp.MustCompile(`(?i)^\s*(the|latest|current|today'?s?)\s+code\s+is\s+(in|below|here|in the body|in post).*`),
	regexp.MustCompile(`(?i)^\s*check\s+(the\s+)?(body|post|description|comments)\s+(for|for the)\s+code\s*$`),
	regexp.MustCompile(`(?i)^\s*code\s+(in|inside)\s+(the\s+)?(post|body|description|comments)\s*(!|\.)?\s*$`),
	regexp.MustCompile(`(?i)^\s*(new|latest|fresh|recent)\s+codes?\s*(!|\.)?\s*$`),
	regexp.MustCompile(`(?i)^\s*found\s+a\s+(new\s+)?code\s*(!|\.)?\s*$`),
	regexp.MustCompile(`(?i)^\s*anyone\s+(got|have|know)\s+(a|any)\s+(new\s+)?code`),
	regexp.MustCompile(`(?i)^\s*title\s*(says|has)\s*it\s*all\s*$`),
	regexp.MustCompile(`(?i)^\s*look\s*inside\s*$`),
}

// extractCodes returns the candidate codes found in text, canonical
// uppercase. Tokens matching the referral-code shape or the ignored-word set
// are never candidates.
func (s *Service) extractCodes(text string) []string {
	if text == "" {
		return nil
	}

	words := s.config.CandidateCodeRegexp.FindAllString(strings.ToUpper(text), -1)

	var codes []string
	for _, word := range words {
		if s.config.ReferralCodeRegexp.MatchString(word) {
			continue
		}
		if _, ignored := s.ignoredWords[word]; ignored {
			continue
		}
		codes = append(codes, word)
	}
	return codes
}

// extractFromPost returns the unique candidate codes of one post. In
// "always" mode both title and body are scanned; in "hinted" mode the body
// is scanned only when the title yields nothing but looks like a
// code-in-the-body announcement.
func (s *Service) extractFromPost(post models.Post) []string {
	codes := s.extractCodes(post.Title)

	switch s.config.Filtering.BodyScan {
	case config.BodyScanHinted:
		if len(codes) == 0 && titleHintsBody(post.Title) {
			codes = append(codes, s.extractCodes(post.Body)...)
		}
	default:
		codes = append(codes, s.extractCodes(post.Body)...)
	}

	seen := make(map[string]struct{}, len(codes))
	var unique []string
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		unique = append(unique, code)
	}
	return unique
}

func titleHintsBody(title string) bool {
	for _, pattern := range bodyHintPatterns {
		if pattern.MatchString(title) {
			return true
		}
	}
	return false
}

// collectOccurrences builds the per-cycle occurrence list from the accepted
// posts. A post repeating the same code contributes a single occurrence.
func (s *Service) collectOccurrences(posts []models.Post) []models.Occurrence {
	var occurrences []models.Occurrence
	for _, post := range posts {
		for _, code := range s.extractFromPost(post) {
			occurrences = append(occurrences, models.Occurrence{
				Code:   code,
				Author: post.Author,
				PostID: post.ID,
			})
		}
	}
	return occurrences
}

// confirmCodes applies the confirmation rule to one cycle's occurrences: a
// code is confirmed when a trusted user posted it, or when it appeared in at
// least two distinct posts. Returned codes are sorted for a deterministic
// notification order.
func (s *Service) confirmCodes(occurrences []models.Occurrence) []string {
	postsByCode := make(map[string]map[string]struct{})
	trustedByCode := make(map[string]bool)

	for _, occ := range occurrences {
		if postsByCode[occ.Code] == nil {
			postsByCode[occ.Code] = make(map[string]struct{})
		}
		postsByCode[occ.Code][occ.PostID] = struct{}{}

		if _, trusted := s.trustedUsers[occ.Author]; trusted {
			trustedByCode[occ.Code] = true
		}
	}

	var confirmed []string
	for code, posts := range postsByCode {
		if trustedByCode[code] || len(posts) >= 2 {
			confirmed = append(confirmed, code)
		}
	}

	sort.Strings(confirmed)
	return confirmed
}
