// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.astrophena.name/feedbot/cmd/feedbot/internal/config"
	"go.astrophena.name/feedbot/cmd/feedbot/internal/dedup"
	"go.astrophena.name/feedbot/cmd/feedbot/internal/feed"
	"go.astrophena.name/feedbot/cmd/feedbot/internal/format"
	"go.astrophena.name/feedbot/cmd/feedbot/internal/poller"
	"go.astrophena.name/feedbot/cmd/feedbot/internal/telegram"
	"go.astrophena.name/feedbot/internal/cli"
	"go.astrophena.name/feedbot/internal/cli/envflag"
	"go.astrophena.name/feedbot/internal/logger"
	"go.astrophena.name/feedbot/internal/systemd"
)

func main() { cli.Main(new(app)) }

type app struct {
	token      *string
	channel    *string
	feedURL    *string
	maxPosted  *int
	interval   *int
	state      *string
	configPath *string
	logFile    *string
	dry        *bool
	once       *bool

	// malformed environment variables
	envErrs []error

	// set in tests
	httpc *http.Client
	tgAPI string
}

// ConfigError reports invalid or missing configuration.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s", cli.ErrInvalidArgs, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error { return cli.ErrInvalidArgs }

func (a *app) Flags(fs *flag.FlagSet, env *cli.Env) {
	a.token = value(a, fs, env, "token", "BOT_TOKEN", "", "Telegram bot `token`.")
	a.channel = value(a, fs, env, "channel", "CHANNEL_ID", "", "Telegram `channel` to post to.")
	a.feedURL = value(a, fs, env, "feed", "FEED_URL", "", "`URL` of the RSS or Atom feed.")
	a.maxPosted = value(a, fs, env, "max-posted", "MAX_POSTED", dedup.DefaultMax, "Remember at most `N` posted items.")
	a.interval = value(a, fs, env, "interval", "POLL_INTERVAL_SECONDS", int(poller.DefaultInterval/time.Second), "Fetch the feed every `N` seconds.")
	a.state = value(a, fs, env, "state", "STATE", "./posted.json", "Path to the state `file`, or a mem:, sqlite: or postgres:// store.")
	a.configPath = value(a, fs, env, "config", "CONFIG", "", "Path to the Starlark configuration `file`.")
	a.logFile = value(a, fs, env, "log-file", "LOG_FILE", "", "Also write logs to this `file`.")
	a.dry = value(a, fs, env, "dry", "DRY_RUN", false, "Log messages instead of posting them.")
	a.once = value(a, fs, env, "once", "ONCE", false, "Fetch the feed once and exit.")
}

func value[T envflag.Type](a *app, fs *flag.FlagSet, env *cli.Env, name, envName string, def T, usage string) *T {
	p, err := envflag.Value(fs, env.Getenv, name, envName, def, usage)
	if err != nil {
		a.envErrs = append(a.envErrs, err)
	}
	return p
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	cmd := "run"
	switch len(env.Args) {
	case 0:
	case 1:
		cmd = env.Args[0]
	default:
		return fmt.Errorf("%w: too many arguments", cli.ErrInvalidArgs)
	}
	if cmd != "run" && cmd != "state" {
		return fmt.Errorf("%w: unknown command %q", cli.ErrInvalidArgs, cmd)
	}

	if err := a.validate(cmd); err != nil {
		return err
	}

	l, closer := logger.New(env.Stderr, logger.Options{File: *a.logFile})
	defer closer.Close()
	if *a.dry {
		l.Level.Set(slog.LevelDebug)
	}
	ctx = logger.Put(ctx, l)

	open := dedup.OpenBackend
	if cmd == "state" {
		open = dedup.OpenBackendReadOnly
	}
	backend, err := open(ctx, *a.state)
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}
	store := dedup.New(backend, *a.maxPosted, l.Logger)
	defer store.Close()
	store.Load(ctx)

	if cmd == "state" {
		for _, id := range store.IDs() {
			fmt.Fprintln(env.Stdout, id)
		}
		return nil
	}

	return a.run(ctx, env, store)
}

func (a *app) validate(cmd string) error {
	var problems []string
	for _, err := range a.envErrs {
		problems = append(problems, err.Error())
	}

	if cmd == "run" {
		if *a.token == "" {
			problems = append(problems, "bot token is required (-token or BOT_TOKEN)")
		}
		if *a.channel == "" {
			problems = append(problems, "channel is required (-channel or CHANNEL_ID)")
		}
		switch u, err := url.Parse(*a.feedURL); {
		case *a.feedURL == "":
			problems = append(problems, "feed URL is required (-feed or FEED_URL)")
		case err != nil:
			problems = append(problems, fmt.Sprintf("invalid feed URL: %v", err))
		case !u.IsAbs() || u.Host == "":
			problems = append(problems, fmt.Sprintf("invalid feed URL %q: must be absolute", *a.feedURL))
		}
		if *a.interval <= 0 {
			problems = append(problems, fmt.Sprintf("interval must be positive, got %d", *a.interval))
		}
	}
	if *a.maxPosted <= 0 {
		problems = append(problems, fmt.Sprintf("max-posted must be positive, got %d", *a.maxPosted))
	}
	if *a.state == "" {
		problems = append(problems, "state must not be empty")
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func (a *app) run(ctx context.Context, env *cli.Env, store *dedup.Store) error {
	l := logger.Get(ctx)

	cfg := config.Default()
	if *a.configPath != "" {
		var err error
		cfg, err = config.Load(*a.configPath, func(msg string) {
			l.Info(msg, slog.String("source", *a.configPath))
		})
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	pcfg := poller.Config{
		Fetcher:   feed.New(*a.feedURL, a.httpc),
		Formatter: format.New(cfg.ReadMore, cfg.Footer),
		Sender: telegram.New(telegram.Config{
			ChatID:     *a.channel,
			Token:      *a.token,
			APIURL:     a.tgAPI,
			HTTPClient: a.httpc,
			Logger:     l.Logger,
		}),
		Store:    store,
		Interval: time.Duration(*a.interval) * time.Second,
		Logger:   l.Logger,
		Dry:      *a.dry,
	}
	if cfg.HasBlockRule() {
		pcfg.BlockRule = cfg.Blocked
	}
	p := poller.New(pcfg)

	if *a.once {
		st := p.Cycle(ctx)
		return st.FetchErr
	}

	sd := systemd.New(env.Getenv, l.Logger)
	sd.Notify(systemd.Ready)
	go sd.WatchdogLoop(ctx)

	err := p.Run(ctx)
	sd.Notify(systemd.Stopping)
	if errors.Is(err, context.Canceled) {
		l.Info("shutting down")
		return nil
	}
	return err
}
