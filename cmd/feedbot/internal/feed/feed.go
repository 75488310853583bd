// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package feed fetches and parses the RSS or Atom feed being watched.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"go.astrophena.name/feedbot/internal/request"
	"go.astrophena.name/feedbot/internal/version"

	"github.com/mmcdole/gofeed"
)

// FetchError reports a failed attempt to fetch or parse the feed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetching feed %q: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher fetches a single feed.
type Fetcher struct {
	url   string
	httpc *http.Client
	fp    *gofeed.Parser
}

// New returns a Fetcher for the feed at url. If httpc is nil,
// [request.DefaultClient] is used.
func New(url string, httpc *http.Client) *Fetcher {
	if httpc == nil {
		httpc = request.DefaultClient
	}
	return &Fetcher{
		url:   url,
		httpc: httpc,
		fp:    gofeed.NewParser(),
	}
}

// URL returns the feed URL.
func (f *Fetcher) URL() string { return f.url }

// Fetch downloads and parses the feed, returning its items in document order.
// Any failure is reported as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) ([]*gofeed.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := f.httpc.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		const readLimit = 1024 // enough to tell what went wrong
		body, _ := io.ReadAll(io.LimitReader(res.Body, readLimit))
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("want 200, got %d: %s", res.StatusCode, strings.TrimSpace(string(body)))}
	}

	feed, err := f.fp.Parse(res.Body)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	return feed.Items, nil
}

// Identify returns the identifier of an item with the given link: the link
// resolved against the feed URL. If either can't be parsed, the trimmed link
// is returned as is.
//
// HTTP and HTTPS URLs are written the way browsers serialize them: the host
// is lowercased, a default port is dropped and an empty path becomes "/".
// Nothing else is normalized, so URLs differing in path case, trailing
// slash or query are different items. An empty link resolves to the feed URL
// itself.
func Identify(feedURL, link string) string {
	link = strings.TrimSpace(link)
	base, err := urlpkg.Parse(feedURL)
	if err != nil {
		return link
	}
	ref, err := urlpkg.Parse(link)
	if err != nil {
		return link
	}
	u := base.ResolveReference(ref)
	if port, ok := defaultPorts[u.Scheme]; ok && u.Host != "" {
		u.Host = strings.ToLower(strings.TrimSuffix(u.Host, ":"+port))
		if u.Path == "" && u.RawPath == "" {
			u.Path = "/"
		}
	}
	return u.String()
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}
