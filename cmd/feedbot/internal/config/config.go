// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config loads the optional Starlark configuration file.
//
// The file may define the following globals, all optional:
//
//	read_more = "Read more"
//	footer = [
//	    link(name = "Site", url = "https://example.com"),
//	]
//	block_rule = lambda item: "sponsored" in item.title.lower()
//
// read_more is the label of the link to the item. footer replaces the
// default footer links; an empty list removes the footer. block_rule is
// called with every new item and must return a bool: items it returns True
// for are skipped and never recorded.
//
// Items passed to block_rule have the fields title, url, description,
// content, guid and categories.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"go.astrophena.name/feedbot/cmd/feedbot/internal/format"

	"github.com/mmcdole/gofeed"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Config is the result of evaluating a configuration file.
type Config struct {
	ReadMore string
	Footer   []format.Link

	blockRule starlark.Callable
	print     func(string)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ReadMore: format.DefaultReadMore,
		Footer:   format.DefaultFooter,
	}
}

// Load reads and evaluates the configuration file at path. Messages printed
// by the file are passed to print, which may be nil.
func Load(path string, print func(string)) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src, print)
}

// Parse evaluates a configuration file with the given source. filename is
// used only in error messages.
func Parse(filename string, src []byte, print func(string)) (*Config, error) {
	if print == nil {
		print = func(string) {}
	}
	c := Default()
	c.print = print

	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		c.thread("config"),
		filename,
		src,
		starlark.StringDict{
			"link": starlark.NewBuiltin("link", linkBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	if v, ok := globals["read_more"]; ok {
		s, ok := starlark.AsString(v)
		if !ok || s == "" {
			return nil, fmt.Errorf("read_more must be a non-empty string, got %s", v.Type())
		}
		c.ReadMore = s
	}

	if v, ok := globals["footer"]; ok {
		c.Footer, err = parseFooter(v)
		if err != nil {
			return nil, err
		}
	}

	if v, ok := globals["block_rule"]; ok && v != starlark.None {
		fn, ok := v.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("block_rule must be a function, got %s", v.Type())
		}
		c.blockRule = fn
	}

	return c, nil
}

func parseFooter(v starlark.Value) ([]format.Link, error) {
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("footer must be a list, got %s", v.Type())
	}

	links := []format.Link{}
	iter := list.Iterate()
	defer iter.Done()
	var elem starlark.Value
	for i := 0; iter.Next(&elem); i++ {
		l, ok := elem.(*link)
		if !ok {
			return nil, fmt.Errorf("footer[%d] must be a link, got %s", i, elem.Type())
		}
		links = append(links, format.Link{Name: l.name, URL: l.url})
	}
	return links, nil
}

// HasBlockRule reports whether the configuration defines block_rule.
func (c *Config) HasBlockRule() bool { return c.blockRule != nil }

// Blocked reports whether block_rule rejects item. Without a rule nothing is
// blocked.
func (c *Config) Blocked(item *gofeed.Item) (bool, error) {
	if c.blockRule == nil {
		return false, nil
	}

	var categories []starlark.Value
	for _, category := range item.Categories {
		categories = append(categories, starlark.String(category))
	}
	val, err := starlark.Call(
		c.thread("block_rule"),
		c.blockRule,
		starlark.Tuple{starlarkstruct.FromStringDict(
			starlarkstruct.Default,
			starlark.StringDict{
				"title":       starlark.String(item.Title),
				"url":         starlark.String(item.Link),
				"description": starlark.String(item.Description),
				"content":     starlark.String(item.Content),
				"guid":        starlark.String(item.GUID),
				"categories":  starlark.NewList(categories),
			},
		)},
		nil,
	)
	if err != nil {
		return false, err
	}

	ret, ok := val.(starlark.Bool)
	if !ok {
		return false, errors.New("block_rule returned non-boolean value")
	}
	return bool(ret), nil
}

func (c *Config) thread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name:  name,
		Print: func(_ *starlark.Thread, msg string) { c.print(msg) },
	}
}

type link struct {
	name string
	url  string
}

func (l *link) String() string        { return fmt.Sprintf("<link name=%q url=%q>", l.name, l.url) }
func (l *link) Type() string          { return "link" }
func (l *link) Freeze()               {} // immutable
func (l *link) Truth() starlark.Bool  { return starlark.Bool(l.url != "") }
func (l *link) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", l.Type()) }

func linkBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%s: unexpected positional arguments", b.Name())
	}
	l := new(link)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &l.name,
		"url", &l.url,
	); err != nil {
		return nil, err
	}
	if l.name == "" {
		return nil, fmt.Errorf("%s: name must not be empty", b.Name())
	}
	u, err := url.Parse(l.url)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%s: invalid URL %q", b.Name(), l.url)
	}
	return l, nil
}
