// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify delivers account messages, such as password reset links,
// to users.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Message is a single outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
	// Link is the actionable URL embedded in Body, kept separate so
	// channels that render their own templates can use it directly.
	Link string
}

// Notifier delivers messages. Delivery is best-effort from the caller's
// point of view: implementations report failure, callers decide whether
// it matters.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ResetPasswordSubject is the subject line of reset emails.
const ResetPasswordSubject = "Your Password Reset Instructions"

// ResetPasswordMessage renders the password reset email for a link.
func ResetPasswordMessage(to, link string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Reset Your Password\n\n")
	fmt.Fprintf(&b, "Follow the link below to choose a new password:\n\n")
	fmt.Fprintf(&b, "%s\n\n", link)
	fmt.Fprintf(&b, "If you did not ask for a reset you can ignore this message.\n")
	return Message{
		To:      to,
		Subject: ResetPasswordSubject,
		Body:    b.String(),
		Link:    link,
	}
}
