package hackernews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientFrontPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "testdata/frontpage.html")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", time.Second, ParseOptions{})
	require.NoError(t, err)
	listing, err := c.FrontPage(context.Background())
	require.NoError(t, err)
	require.Len(t, listing.Items, 3)
	// Relative links resolve against the listing page itself.
	require.Equal(t, srv.URL+"/item?id=1003", listing.Items[2].URL)
	require.Equal(t, srv.URL+"/user?id=alice", *listing.Items[0].AuthorLink)
}

func TestClientFrontPageStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, ParseOptions{})
	require.NoError(t, err)
	_, err = c.FrontPage(context.Background())
	require.ErrorContains(t, err, "status 503")
}
