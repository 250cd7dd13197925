package model

import "time"

// NewsItem represents one row of the front page listing. Every field here is
// refreshed on each run.
type NewsItem struct {
	Rank         int     `json:"rank" yaml:"rank"`
	Title        string  `json:"title" yaml:"title"`
	URL          string  `json:"url" yaml:"url"`
	Comhead      string  `json:"comhead" yaml:"comhead"`
	Score        *int    `json:"score,omitempty" yaml:"score,omitempty"`
	Author       *string `json:"author,omitempty" yaml:"author,omitempty"`
	AuthorLink   *string `json:"author_link,omitempty" yaml:"author_link,omitempty"`
	SubmitTime   string  `json:"submit_time" yaml:"submit_time"`
	CommentCount *int    `json:"comment_cnt,omitempty" yaml:"comment_cnt,omitempty"`
	CommentURL   *string `json:"comment_url,omitempty" yaml:"comment_url,omitempty"`
}

// Enrichment holds the content derived from the article page. It is computed
// once, when the item is first seen, and never overwritten by updates.
type Enrichment struct {
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Favicon string `json:"favicon,omitempty" yaml:"favicon,omitempty"`
	ImageID string `json:"img_id,omitempty" yaml:"img_id,omitempty"`
}

// Item is a stored news item.
type Item struct {
	NewsItem   `yaml:",inline"`
	Enrichment `yaml:",inline"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// Image is a binary blob referenced by Enrichment.ImageID.
type Image struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
