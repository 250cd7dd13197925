package api

import (
	"fmt"
	"time"

	"hn-mirror/internal/model"

	"github.com/gorilla/feeds"
)

// GenerateRSSFeed creates an RSS feed from the mirrored items, in rank order.
func GenerateRSSFeed(items []model.Item, info FeedInfo, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       info.Title,
		Link:        &feeds.Link{Href: info.Link},
		Description: info.Description,
		Created:     now,
	}

	feed.Items = make([]*feeds.Item, 0, len(items))
	for _, it := range items {
		item := &feeds.Item{
			Title:       it.Title,
			Link:        &feeds.Link{Href: it.URL},
			Id:          it.URL,
			Description: it.Summary,
			Created:     it.CreatedAt,
		}
		if it.Author != nil {
			item.Author = &feeds.Author{Name: *it.Author}
		}
		if it.CommentURL != nil {
			item.Source = &feeds.Link{Href: *it.CommentURL}
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to generate RSS: %w", err)
	}
	return rss, nil
}
