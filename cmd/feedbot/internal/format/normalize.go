// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package format

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	decimalEntityRe = regexp.MustCompile(`&#(\d+);`)
	hexEntityRe     = regexp.MustCompile(`&#x([0-9a-fA-F]+);`)
	tagRe           = regexp.MustCompile(`<[^>]+>`)
)

// Named entities are replaced one after another, in this order, so
// "&amp;lt;" ends up as "<".
var namedEntities = [...][2]string{
	{"&quot;", `"`},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&apos;", "'"},
	{"&nbsp;", " "},
}

// Normalize turns an HTML fragment into a single line of plain text.
//
// Entities are decoded first, then every tag is replaced by a space, runs of
// whitespace are collapsed to one space and the result is trimmed. Because
// decoding happens before stripping, an escaped "&lt;b&gt;" is stripped like
// a real tag.
func Normalize(s string) string {
	s = DecodeEntities(s)
	s = tagRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// DecodeEntities decodes numeric character references and the named entities
// &quot; &amp; &lt; &gt; &apos; and &nbsp;. Other entities are left as is.
// Code points that aren't valid Unicode decode to U+FFFD.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	s = decimalEntityRe.ReplaceAllStringFunc(s, func(m string) string {
		return decodeCodePoint(m[2:len(m)-1], 10)
	})
	s = hexEntityRe.ReplaceAllStringFunc(s, func(m string) string {
		return decodeCodePoint(m[3:len(m)-1], 16)
	})
	for _, e := range namedEntities {
		s = strings.ReplaceAll(s, e[0], e[1])
	}
	return s
}

func decodeCodePoint(digits string, base int) string {
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil || !utf8.ValidRune(rune(n)) {
		return string(utf8.RuneError)
	}
	return string(rune(n))
}
