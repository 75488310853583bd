// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.astrophena.name/feedbot/internal/testutil"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <link>https://example.com/</link>
  <item>
    <title>Second</title>
    <link>https://example.com/2</link>
    <description>Newest first.</description>
  </item>
  <item>
    <title>First</title>
    <link>/1</link>
    <description>&lt;p&gt;Older.&lt;/p&gt;</description>
  </item>
</channel>
</rss>
`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example</title>
  <id>urn:example</id>
  <updated>2025-01-01T00:00:00Z</updated>
  <entry>
    <title>Atom entry</title>
    <id>urn:example:1</id>
    <link href="https://example.com/atom/1"/>
    <updated>2025-01-01T00:00:00Z</updated>
    <summary>Summary.</summary>
  </entry>
</feed>
`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("request has no User-Agent")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body       string
		wantTitles []string
		wantLinks  []string
	}{
		"rss": {
			body:       rssFeed,
			wantTitles: []string{"Second", "First"},
			wantLinks:  []string{"https://example.com/2", "/1"},
		},
		"atom": {
			body:       atomFeed,
			wantTitles: []string{"Atom entry"},
			wantLinks:  []string{"https://example.com/atom/1"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tc.body)
			items, err := New(srv.URL+"/feed.xml", srv.Client()).Fetch(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			var titles, links []string
			for _, item := range items {
				titles = append(titles, item.Title)
				links = append(links, item.Link)
			}
			testutil.AssertEqual(t, titles, tc.wantTitles)
			testutil.AssertEqual(t, links, tc.wantLinks)
		})
	}
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		status  int
		body    string
		wantErr string
	}{
		"bad status": {status: http.StatusTeapot, body: "I'm a teapot.", wantErr: "want 200, got 418: I'm a teapot."},
		"not a feed": {status: http.StatusOK, body: "<html>nope</html>"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, tc.status, tc.body)
			_, err := New(srv.URL, srv.Client()).Fetch(context.Background())
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("want *FetchError, got %T (%v)", err, err)
			}
			testutil.AssertEqual(t, fetchErr.URL, srv.URL)
			if tc.wantErr != "" && !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q doesn't contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).Fetch(context.Background())
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("want *FetchError, got %T (%v)", err, err)
	}
}

func TestIdentify(t *testing.T) {
	t.Parallel()

	const feedURL = "https://example.com/feeds/rss.xml"

	cases := map[string]struct {
		feedURL string
		link    string
		want    string
	}{
		"absolute":         {feedURL: feedURL, link: "https://other.org/a?b=c", want: "https://other.org/a?b=c"},
		"root relative":    {feedURL: feedURL, link: "/news/1", want: "https://example.com/news/1"},
		"path relative":    {feedURL: feedURL, link: "item/2", want: "https://example.com/feeds/item/2"},
		"whitespace":       {feedURL: feedURL, link: "  https://example.com/a \n", want: "https://example.com/a"},
		"trailing slash":   {feedURL: feedURL, link: "https://example.com/a/", want: "https://example.com/a/"},
		"empty":            {feedURL: feedURL, link: "", want: feedURL},
		"bad link":         {feedURL: feedURL, link: " http://[::1 ", want: "http://[::1"},
		"host case":        {feedURL: feedURL, link: "https://Example.COM/Posts/1", want: "https://example.com/Posts/1"},
		"empty path":       {feedURL: feedURL, link: "http://example.com", want: "http://example.com/"},
		"empty path query": {feedURL: feedURL, link: "https://example.com?p=1", want: "https://example.com/?p=1"},
		"default port":     {feedURL: feedURL, link: "https://example.com:443/a", want: "https://example.com/a"},
		"other port":       {feedURL: feedURL, link: "http://example.com:8080/a", want: "http://example.com:8080/a"},
		"not http":         {feedURL: feedURL, link: "mailto:Someone@Example.COM", want: "mailto:Someone@Example.COM"},
		"bad feed URL":     {feedURL: "http://[::1", link: "/a", want: "/a"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, Identify(tc.feedURL, tc.link), tc.want)
		})
	}
}
