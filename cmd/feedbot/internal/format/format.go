// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package format renders feed items as Telegram MarkdownV2 messages.
package format

import (
	"strings"

	"github.com/mmcdole/gofeed"
)

// DefaultReadMore is the label of the link to the full article.
const DefaultReadMore = "مطالعه خبر"

// Link is a named hyperlink shown in the message footer.
type Link struct {
	Name string
	URL  string
}

// DefaultFooter is the footer used when no other is configured.
var DefaultFooter = []Link{
	{Name: "Telegram", URL: "https://t.me/ANF_FarsiChannel"},
	{Name: "Instagram", URL: "http://www.instagram.com/anf_persian"},
	{Name: "Facebook", URL: "http://facebook.com/anfpersianofficial"},
	{Name: "X", URL: "http://twitter.com/ANF_persian"},
	{Name: "webSite", URL: "http://anfpersian.com/"},
}

// reserved lists every character that MarkdownV2 treats as markup.
const reserved = "_*[]()~`>#+-=|{}.!"

var escaper = func() *strings.Replacer {
	var oldnew []string
	for _, r := range reserved {
		oldnew = append(oldnew, string(r), `\`+string(r))
	}
	return strings.NewReplacer(oldnew...)
}()

// Escape escapes MarkdownV2 markup characters in s with a backslash.
func Escape(s string) string { return escaper.Replace(s) }

// Inside the (...) part of an inline link only ")" and "\" need escaping.
var linkEscaper = strings.NewReplacer(`\`, `\\`, `)`, `\)`)

func link(label, url string) string {
	return "[" + Escape(label) + "](" + linkEscaper.Replace(url) + ")"
}

// Formatter renders messages. It is safe for concurrent use.
type Formatter struct {
	readMore string
	footer   string
}

// New returns a Formatter that labels article links with readMore and ends
// each message with links, separated by pipes. The footer is rendered once
// here, not per message.
func New(readMore string, links []Link) *Formatter {
	rendered := make([]string, 0, len(links))
	for _, l := range links {
		rendered = append(rendered, link(l.Name, l.URL))
	}
	return &Formatter{
		readMore: readMore,
		footer:   strings.Join(rendered, ` \| `),
	}
}

// Format renders item as a message linking to url, which is the resolved
// item identifier.
func (f *Formatter) Format(item *gofeed.Item, url string) string {
	var sb strings.Builder
	sb.WriteString("*" + Escape(strings.TrimSpace(item.Title)) + "*")
	sb.WriteString("\n\n")
	sb.WriteString(Escape(FirstSentence(Normalize(Snippet(item)))))
	sb.WriteString("\n\n")
	sb.WriteString(link(f.readMore, url))
	if f.footer != "" {
		sb.WriteString("\n\n")
		sb.WriteString(f.footer)
	}
	return sb.String()
}

// Snippet returns the raw summary of item: the description if present,
// otherwise the full content.
func Snippet(item *gofeed.Item) string {
	if strings.TrimSpace(item.Description) != "" {
		return item.Description
	}
	return item.Content
}

// FirstSentence returns the text of s up to the first sentence terminator
// (".", "!", "?" or the Arabic question mark "؟"), trimmed. If s has no
// terminator, all of s is returned.
func FirstSentence(s string) string {
	if i := strings.IndexAny(s, ".!?؟"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
