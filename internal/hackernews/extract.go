package hackernews

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"hn-mirror/internal/model"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	digitsRe     = regexp.MustCompile(`\d+`)
	submitTimeRe = regexp.MustCompile(`\d+ \w+ ago`)
)

// extractItem builds a NewsItem (without rank) from the title cell and the
// subtext cell of one item group.
func extractItem(title, subtext *goquery.Selection, base *url.URL, opts ParseOptions) (model.NewsItem, error) {
	var it model.NewsItem

	link := title.Find("a[href]").First()
	if link.Length() == 0 {
		return it, errors.New("no title link")
	}
	it.Title = strings.TrimSpace(link.Text())
	if it.Title == "" {
		return it, errors.New("empty title")
	}
	href, _ := link.Attr("href")
	abs, err := resolve(base, href)
	if err != nil {
		return it, fmt.Errorf("title href: %w", err)
	}
	it.URL = abs
	if it.Comhead, err = opts.Hosts.Classify(abs); err != nil {
		return it, err
	}

	children := subtextChildren(subtext)
	if len(children) == 0 {
		return it, errors.New("empty subtext")
	}

	// Job postings only carry the submit time.
	if len(children) == 1 {
		st := submitTimeRe.FindString(children[0].Text())
		if st == "" {
			return it, errors.New("no submit time")
		}
		it.SubmitTime = st
		return it, nil
	}

	if len(children) < 4 {
		return it, fmt.Errorf("subtext has %d children", len(children))
	}
	score := digitsRe.FindString(children[0].Text())
	if score == "" {
		return it, errors.New("no score")
	}
	n, _ := strconv.Atoi(score)
	it.Score = model.IntPtr(n)

	it.Author = model.StringPtr(strings.TrimSpace(children[2].Text()))
	if h, ok := children[2].Attr("href"); ok && h != "" {
		al, err := resolve(base, h)
		if err != nil {
			return it, fmt.Errorf("author href: %w", err)
		}
		it.AuthorLink = model.StringPtr(al)
	}

	it.SubmitTime = submitTimeRe.FindString(children[3].Text())
	if it.SubmitTime == "" {
		return it, errors.New("no submit time")
	}

	if len(children) > 4 {
		comments := children[4]
		cnt := 0
		if d := digitsRe.FindString(comments.Text()); d != "" {
			cnt, _ = strconv.Atoi(d)
		}
		it.CommentCount = model.IntPtr(cnt)
		h, _ := comments.Attr("href")
		id := digitsRe.FindString(h)
		if id == "" {
			return it, fmt.Errorf("no item id in comment link %q", h)
		}
		it.CommentURL = model.StringPtr(fmt.Sprintf(opts.CommentURLTemplate, id))
	}
	return it, nil
}

// subtextChildren returns the child nodes of the subtext cell, skipping
// comments and whitespace-only text between tags.
func subtextChildren(cell *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	cell.Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		switch n.Type {
		case html.CommentNode:
			return
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				return
			}
		}
		out = append(out, s)
	})
	return out
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
