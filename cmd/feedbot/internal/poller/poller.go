// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package poller runs the fetch, format and publish cycle.
package poller

import (
	"context"
	"log/slog"
	"time"

	"go.astrophena.name/feedbot/cmd/feedbot/internal/dedup"
	"go.astrophena.name/feedbot/cmd/feedbot/internal/feed"
	"go.astrophena.name/feedbot/cmd/feedbot/internal/sender"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// DefaultInterval is the default time between two cycles.
const DefaultInterval = 60 * time.Second

// Fetcher returns the current items of a feed.
type Fetcher interface {
	URL() string
	Fetch(ctx context.Context) ([]*gofeed.Item, error)
}

// Formatter turns an item into message text. url is the item identifier.
type Formatter interface {
	Format(item *gofeed.Item, url string) string
}

// Config configures a [Poller].
type Config struct {
	Fetcher   Fetcher
	Formatter Formatter
	Sender    sender.Sender
	Store     *dedup.Store
	// Interval is the time between two cycles. Defaults to DefaultInterval.
	Interval time.Duration
	Logger   *slog.Logger
	// BlockRule, if not nil, is asked about every new item. Items it returns
	// true for are neither published nor recorded.
	BlockRule func(*gofeed.Item) (bool, error)
	// Dry makes the poller log messages instead of publishing them. Nothing
	// is recorded in dry-run mode.
	Dry bool
}

// Poller owns the dedup store and runs cycles one after another.
type Poller struct {
	fetcher   Fetcher
	formatter Formatter
	sender    sender.Sender
	store     *dedup.Store
	interval  time.Duration
	slog      *slog.Logger
	blockRule func(*gofeed.Item) (bool, error)
	dry       bool
}

// New returns a Poller. The store must already be loaded.
func New(cfg Config) *Poller {
	p := &Poller{
		fetcher:   cfg.Fetcher,
		formatter: cfg.Formatter,
		sender:    cfg.Sender,
		store:     cfg.Store,
		interval:  cfg.Interval,
		slog:      cfg.Logger,
		blockRule: cfg.BlockRule,
		dry:       cfg.Dry,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.slog == nil {
		p.slog = slog.Default()
	}
	return p
}

// Stats describes the outcome of a cycle.
type Stats struct {
	Items   int // items in the feed
	Posted  int // published, or logged in dry-run mode
	Skipped int // already posted
	Blocked int // rejected by the block rule
	Failed  int // publishing failed
	// FetchErr is the error that abandoned the cycle, if any.
	FetchErr error
}

// Run runs a cycle right away and then one per interval until ctx is
// canceled. A cycle that takes longer than the interval delays the next one;
// cycles never overlap. Run returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.slog.Info("polling", slog.String("feed", p.fetcher.URL()), slog.Duration("interval", p.interval))

	p.Cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Cycle(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Cycle fetches the feed once and publishes every item that wasn't posted
// before, in feed order. Failures are logged and counted in the returned
// Stats; a failed publish leaves the item unrecorded so that the next cycle
// retries it.
func (p *Poller) Cycle(ctx context.Context) Stats {
	var (
		start = time.Now()
		log   = p.slog.With(slog.String("cycle", uuid.NewString()))
		st    Stats
	)

	items, err := p.fetcher.Fetch(ctx)
	if err != nil {
		log.Error("fetching feed failed", slog.Any("err", err))
		st.FetchErr = err
		return st
	}
	st.Items = len(items)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		p.handle(ctx, log, item, &st)
	}

	log.Info("cycle finished",
		slog.Int("fetched", st.Items),
		slog.Int("posted", st.Posted),
		slog.Int("skipped", st.Skipped),
		slog.Int("blocked", st.Blocked),
		slog.Int("failed", st.Failed),
		slog.Duration("took", time.Since(start)),
	)
	return st
}

func (p *Poller) handle(ctx context.Context, log *slog.Logger, item *gofeed.Item, st *Stats) {
	id := feed.Identify(p.fetcher.URL(), item.Link)
	log = log.With(slog.String("item", id))

	if p.store.Contains(id) {
		log.Info("skipping, already posted", slog.String("title", item.Title))
		st.Skipped++
		return
	}

	if p.blockRule != nil {
		blocked, err := p.blockRule(item)
		if err != nil {
			log.Warn("applying block rule failed", slog.Any("err", err))
		}
		if blocked {
			log.Debug("blocked by block rule")
			st.Blocked++
			return
		}
	}

	text := p.formatter.Format(item, id)

	if p.dry {
		log.Info("dry run, not publishing", slog.String("message", text))
		st.Posted++
		return
	}

	if err := p.sender.Send(ctx, sender.Message{Text: text}); err != nil {
		log.Error("publishing failed", slog.Any("err", err))
		st.Failed++
		return
	}
	st.Posted++
	log.Info("posted", slog.String("title", item.Title))

	if err := p.store.Record(ctx, id); err != nil {
		log.Warn("saving posted items failed", slog.Any("err", err))
	}
}
