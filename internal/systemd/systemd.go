// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package systemd enables applications to signal readiness and update watchdog
// timestamp to systemd.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// State defines a sd-notify protocol state.
// See https://www.freedesktop.org/software/systemd/man/sd_notify.html.
type State string

const (
	// Ready tells the service manager that service startup is
	// finished, or the service finished loading its configuration.
	Ready State = "READY=1"

	// Stopping tells the service manager that the service is beginning its
	// shutdown.
	Stopping State = "STOPPING=1"

	// Watchdog tells the service manager to update the watchdog timestamp.
	Watchdog State = "WATCHDOG=1"
)

// Notifier talks to systemd over the socket named by $NOTIFY_SOCKET. The zero
// value is not usable; create one with [New].
type Notifier struct {
	getenv func(string) string
	logger *slog.Logger
}

// New returns a Notifier that reads its environment through getenv and logs
// failures to logger.
func New(getenv func(string) string, logger *slog.Logger) *Notifier {
	return &Notifier{getenv: getenv, logger: logger}
}

// Notify sends state to systemd. It does nothing when the program is not
// running under systemd. Errors are logged, not returned.
func (n *Notifier) Notify(state State) {
	addr := &net.UnixAddr{
		Net:  "unixgram",
		Name: n.getenv("NOTIFY_SOCKET"),
	}
	if addr.Name == "" {
		return
	}

	conn, err := net.DialUnix(addr.Net, nil, addr)
	if err != nil {
		n.logger.Warn("systemd: failed when notifying", "state", state, "error", err)
		return
	}
	defer conn.Close()

	if _, err = conn.Write([]byte(state)); err != nil {
		n.logger.Warn("systemd: failed when notifying", "state", state, "error", err)
	}
}

// WatchdogLoop periodically updates systemd watchdog timestamp until ctx is
// canceled. It returns immediately if the watchdog is not enabled.
func (n *Notifier) WatchdogLoop(ctx context.Context) {
	if n.getenv("WATCHDOG_USEC") == "" {
		return
	}

	interval, err := watchdogInterval(n.getenv("WATCHDOG_USEC"))
	if err != nil {
		n.logger.Warn("systemd: watchdog disabled", "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.Notify(Watchdog)
		case <-ctx.Done():
			return
		}
	}
}

// watchdogInterval returns half of the configured timeout, as sd_watchdog_enabled(3) recommends.
func watchdogInterval(usec string) (time.Duration, error) {
	s, err := strconv.Atoi(usec)
	if err != nil {
		return 0, fmt.Errorf("converting WATCHDOG_USEC: %w", err)
	}
	if s <= 0 {
		return 0, errors.New("WATCHDOG_USEC must be a positive number")
	}
	return time.Duration(s) * time.Microsecond / 2, nil
}
