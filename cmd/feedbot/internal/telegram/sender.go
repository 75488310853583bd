// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram implements message delivery over the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.astrophena.name/feedbot/cmd/feedbot/internal/sender"
	"go.astrophena.name/feedbot/internal/request"
)

// DefaultAPIURL is the Telegram Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Config configures a Telegram sender.
type Config struct {
	ChatID string
	Token  string
	// APIURL overrides DefaultAPIURL. Used in tests.
	APIURL     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Sender sends messages via Telegram Bot API.
type Sender struct {
	chatID   string
	token    string
	apiURL   string
	httpc    *http.Client
	scrubber *strings.Replacer
	slog     *slog.Logger
}

// New returns a Telegram sender configured for a specific chat.
func New(cfg Config) *Sender {
	s := &Sender{
		chatID: cfg.ChatID,
		token:  cfg.Token,
		apiURL: strings.TrimSuffix(cfg.APIURL, "/"),
		httpc:  cfg.HTTPClient,
		slog:   cfg.Logger,
	}
	if s.apiURL == "" {
		s.apiURL = DefaultAPIURL
	}
	if s.httpc == nil {
		s.httpc = request.DefaultClient
	}
	if s.slog == nil {
		s.slog = slog.Default()
	}
	if s.token != "" {
		s.scrubber = strings.NewReplacer(s.token, "[EXPUNGED]")
	}
	return s
}

// PublishError reports a message Telegram did not accept.
type PublishError struct {
	// ErrorCode and Description come from the Bot API error response, when
	// there is one.
	ErrorCode   int
	Description string
	Err         error
}

func (e *PublishError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram: %s (code %d)", e.Description, e.ErrorCode)
	}
	return fmt.Sprintf("telegram: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

type message struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	ParseMode          string `json:"parse_mode"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
}

// Send makes a single attempt to deliver msg. Failures are returned as
// *PublishError.
func (s *Sender) Send(ctx context.Context, msg sender.Message) error {
	tgmsg := &message{
		ChatID:    s.chatID,
		Text:      msg.Text,
		ParseMode: "MarkdownV2",
	}
	tgmsg.LinkPreviewOptions.IsDisabled = msg.DisableLinkPreview

	if err := s.makeRequest(ctx, "sendMessage", tgmsg); err != nil {
		perr := &PublishError{Err: err}
		var statusErr *request.StatusError
		if errors.As(err, &statusErr) {
			var errorResponse struct {
				ErrorCode   int    `json:"error_code"`
				Description string `json:"description"`
			}
			if json.Unmarshal(statusErr.Body, &errorResponse) == nil {
				perr.ErrorCode = errorResponse.ErrorCode
				perr.Description = s.scrub(errorResponse.Description)
			}
		}
		return perr
	}

	s.slog.Debug("message sent", slog.String("chat_id", s.chatID))
	return nil
}

func (s *Sender) makeRequest(ctx context.Context, method string, args any) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        s.apiURL + "/bot" + s.token + "/" + method,
		Body:       args,
		HTTPClient: s.httpc,
		Scrubber:   s.scrubber,
	})
	return err
}

func (s *Sender) scrub(text string) string {
	if s.scrubber == nil {
		return text
	}
	return s.scrubber.Replace(text)
}

var _ sender.Sender = (*Sender)(nil)
