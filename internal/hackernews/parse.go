package hackernews

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"hn-mirror/internal/model"

	"github.com/PuerkitoBio/goquery"
)

// DefaultCommentURLTemplate is the external viewer used for comment permalinks.
const DefaultCommentURLTemplate = "http://cheeaun.github.io/hackerweb/#/item/%s"

// ErrNoListing means the page did not contain any item rows at all, i.e. the
// markup no longer looks like the front page.
var ErrNoListing = errors.New("hackernews: no listing rows found")

// ParseError describes an item row group that could not be extracted. URL is
// set when the title link was resolved before extraction failed.
type ParseError struct {
	Rank   int
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("hackernews: item %d: %s", e.Rank, e.Reason)
}

// Listing is the result of parsing one front page.
type Listing struct {
	Items  []model.NewsItem
	Errors []error // per-item *ParseError values
}

// URLs returns the identity keys of every item on the page, including items
// whose remaining fields could not be extracted.
func (l Listing) URLs() []string {
	out := make([]string, 0, len(l.Items)+len(l.Errors))
	for _, it := range l.Items {
		out = append(out, it.URL)
	}
	for _, err := range l.Errors {
		var pe *ParseError
		if errors.As(err, &pe) && pe.URL != "" {
			out = append(out, pe.URL)
		}
	}
	return out
}

// ParseOptions configures listing extraction.
type ParseOptions struct {
	Hosts              *HostClassifier
	CommentURLTemplate string
}

type role int

const (
	roleOther role = iota
	roleTitle
	roleSubtext
	roleSpacer
)

// rowRole is the only place that knows how a row looks in the listing layout.
func rowRole(row *goquery.Selection) role {
	if style, ok := row.Attr("style"); ok && normalizeStyle(style) == "height:5px" {
		return roleSpacer
	}
	if row.ChildrenFiltered("td.subtext").Length() > 0 {
		return roleSubtext
	}
	if titleCell(row).Length() > 0 {
		return roleTitle
	}
	return roleOther
}

func titleCell(row *goquery.Selection) *goquery.Selection {
	return row.ChildrenFiltered("td.title").Not("[align]").First()
}

func normalizeStyle(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	return strings.TrimRight(s, ";")
}

// ParseListing extracts the ordered news items from front page markup. Item
// groups are three consecutive rows (title, subtext, spacer); the spacer is
// the only boundary marker, so each group is found by walking back from it.
func ParseListing(r io.Reader, base *url.URL, opts ParseOptions) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Listing{}, fmt.Errorf("hackernews: parse html: %w", err)
	}
	if opts.Hosts == nil {
		opts.Hosts = NewHostClassifier(nil)
	}
	if opts.CommentURLTemplate == "" {
		opts.CommentURLTemplate = DefaultCommentURLTemplate
	}

	// Spacer rows only count inside the table holding the item rows.
	container := doc.Find("td.subtext").First().Closest("table")
	if container.Length() == 0 {
		container = doc.Selection
	}
	var spacers []*goquery.Selection
	container.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if rowRole(row) == roleSpacer {
			spacers = append(spacers, row)
		}
	})
	if len(spacers) == 0 {
		return Listing{}, ErrNoListing
	}

	var out Listing
	for rank, spacer := range spacers {
		subtext := spacer.PrevAllFiltered("tr").First()
		if subtext.Length() == 0 || rowRole(subtext) != roleSubtext {
			out.Errors = append(out.Errors, &ParseError{Rank: rank, Reason: "missing subtext row"})
			continue
		}
		title := subtext.PrevAllFiltered("tr").First()
		if title.Length() == 0 || rowRole(title) != roleTitle {
			out.Errors = append(out.Errors, &ParseError{Rank: rank, Reason: "missing title row"})
			continue
		}
		item, err := extractItem(titleCell(title), subtext.ChildrenFiltered("td.subtext").First(), base, opts)
		if err != nil {
			out.Errors = append(out.Errors, &ParseError{Rank: rank, URL: item.URL, Reason: err.Error()})
			continue
		}
		item.Rank = rank
		slog.Debug("hackernews: parsed item", "rank", rank, "title", item.Title)
		out.Items = append(out.Items, item)
	}
	return out, nil
}
