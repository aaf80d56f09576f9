package sources

import (
	"github.com/tacticus-tools/tacticus-codes-bot/internal/models"
)

// redditListing is the wire shape shared by the OAuth API and the public
// .json endpoint, so both transports produce identical posts downstream.
type redditListing struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Selftext      string `json:"selftext"`
	Author        string `json:"author"`
	Subreddit     string `json:"subreddit"`
	LinkFlairText string `json:"link_flair_text"`
}

func (l *redditListing) toPosts() []models.Post {
	var posts []models.Post
	for _, child := range l.Data.Children {
		// t3 is a link/submission; anything else in the listing is noise.
		if child.Kind != "t3" {
			continue
		}
		post := child.Data
		author := post.Author
		if author == "" {
			author = "[deleted]"
		}
		posts = append(posts, models.Post{
			ID:        post.ID,
			Subreddit: post.Subreddit,
			Title:     post.Title,
			Body:      post.Selftext,
			Author:    author,
			Flair:     post.LinkFlairText,
		})
	}
	return posts
}
