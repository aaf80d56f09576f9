package models

// Post represents a single Reddit submission as seen by one fetch cycle.
// Posts are read-only and discarded once the cycle that fetched them ends.
type Post struct {
	ID        string `json:"id"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Author    string `json:"author"`
	Flair     string `json:"flair"` // empty when the post carries no flair
}

// Occurrence records one candidate code found in one post. Occurrences are
// rebuilt from scratch every cycle; confirmation never accumulates across
// cycles.
type Occurrence struct {
	Code   string `json:"code"`
	Author string `json:"author"`
	PostID string `json:"post_id"`
}
