// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.astrophena.name/feedbot/cmd/feedbot/internal/format"
	"go.astrophena.name/feedbot/internal/testutil"

	"github.com/mmcdole/gofeed"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := Default()
	testutil.AssertEqual(t, c.ReadMore, format.DefaultReadMore)
	testutil.AssertEqual(t, c.Footer, format.DefaultFooter)
	testutil.AssertEqual(t, c.HasBlockRule(), false)

	blocked, err := c.Blocked(&gofeed.Item{Title: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, blocked, false)
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		src          string
		wantReadMore string
		wantFooter   []format.Link
		wantErr      string
	}{
		"empty": {
			src:          "",
			wantReadMore: format.DefaultReadMore,
			wantFooter:   format.DefaultFooter,
		},
		"everything": {
			src: `
read_more = "Read more"
footer = [
    link(name = "Site", url = "https://example.com"),
    link(name = "X", url = "https://x.com/example"),
]
`,
			wantReadMore: "Read more",
			wantFooter: []format.Link{
				{Name: "Site", URL: "https://example.com"},
				{Name: "X", URL: "https://x.com/example"},
			},
		},
		"no footer": {
			src:          "footer = []",
			wantReadMore: format.DefaultReadMore,
			wantFooter:   []format.Link{},
		},
		"top level control": {
			src: `
footer = []
for name in ["A", "B"]:
    footer.append(link(name = name, url = "https://example.com/" + name.lower()))
`,
			wantReadMore: format.DefaultReadMore,
			wantFooter: []format.Link{
				{Name: "A", URL: "https://example.com/a"},
				{Name: "B", URL: "https://example.com/b"},
			},
		},
		"syntax error": {
			src:     "read_more = ",
			wantErr: "config.star:1:",
		},
		"read_more not a string": {
			src:     "read_more = 1",
			wantErr: "read_more must be a non-empty string",
		},
		"footer not a list": {
			src:     `footer = "nope"`,
			wantErr: "footer must be a list",
		},
		"footer element not a link": {
			src:     `footer = ["nope"]`,
			wantErr: "footer[0] must be a link",
		},
		"link without url": {
			src:     `footer = [link(name = "Site")]`,
			wantErr: "missing argument for url",
		},
		"link with relative url": {
			src:     `footer = [link(name = "Site", url = "/about")]`,
			wantErr: `invalid URL "/about"`,
		},
		"link with positional args": {
			src:     `footer = [link("Site", "https://example.com")]`,
			wantErr: "unexpected positional arguments",
		},
		"block_rule not callable": {
			src:     "block_rule = 42",
			wantErr: "block_rule must be a function",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Parse("config.star", []byte(tc.src), nil)
			if tc.wantErr != "" {
				if err == nil {
					t.Fatalf("want error containing %q, got nil", tc.wantErr)
				}
				if !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("want error containing %q, got %q", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, c.ReadMore, tc.wantReadMore)
			testutil.AssertEqual(t, c.Footer, tc.wantFooter)
		})
	}
}

func TestBlocked(t *testing.T) {
	t.Parallel()

	const src = `
def block_rule(item):
    if "ad" in item.categories:
        return True
    return "sponsored" in item.title.lower()
`
	c, err := Parse("config.star", []byte(src), nil)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, c.HasBlockRule(), true)

	cases := map[string]struct {
		item *gofeed.Item
		want bool
	}{
		"plain":    {item: &gofeed.Item{Title: "News"}, want: false},
		"title":    {item: &gofeed.Item{Title: "SPONSORED: buy now"}, want: true},
		"category": {item: &gofeed.Item{Title: "News", Categories: []string{"politics", "ad"}}, want: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := c.Blocked(tc.item)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

func TestBlockedLambda(t *testing.T) {
	t.Parallel()

	c, err := Parse("config.star", []byte(`block_rule = lambda item: item.url.endswith("/ad")`), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Blocked(&gofeed.Item{Link: "https://example.com/ad"})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, true)
}

func TestBlockedErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		src     string
		wantErr string
	}{
		"non-boolean": {src: `block_rule = lambda item: "yes"`, wantErr: "non-boolean"},
		"fails":       {src: `block_rule = lambda item: item.nope`, wantErr: "nope"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Parse("config.star", []byte(tc.src), nil)
			if err != nil {
				t.Fatal(err)
			}
			_, err = c.Blocked(&gofeed.Item{Title: "x"})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	t.Parallel()

	var printed []string
	c, err := Parse("config.star", []byte(`
print("loading")
def block_rule(item):
    print("checking", item.title)
    return False
`), func(msg string) { printed = append(printed, msg) })
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Blocked(&gofeed.Item{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, printed, []string{"loading", "checking x"})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.star")
	if err := os.WriteFile(path, []byte(`read_more = "More"`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, c.ReadMore, "More")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.star"), nil); !os.IsNotExist(err) {
		t.Fatalf("want not exist error, got %v", err)
	}
}
