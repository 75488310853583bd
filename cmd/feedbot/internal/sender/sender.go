// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sender defines a transport-agnostic message delivery interface.
package sender

import "context"

// Sender delivers messages to a configured destination.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a transport-agnostic outgoing message.
type Message struct {
	// Text is the message body, already formatted for the transport.
	Text string
	// DisableLinkPreview suppresses the link preview the transport would
	// otherwise attach.
	DisableLinkPreview bool
}
