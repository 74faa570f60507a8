// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// FilterNotifier forwards messages only to recipients matching an
// allowlist of glob patterns. Messages to anyone else are logged and
// dropped without error, so callers cannot tell the difference.
type FilterNotifier struct {
	next     Notifier
	patterns []string
	globs    []glob.Glob
	logger   *slog.Logger
}

var _ Notifier = (*FilterNotifier)(nil)

// NewFilterNotifier wraps next with a recipient allowlist. Patterns use
// glob syntax with '@' as the separator, so "*@example.com" matches any
// mailbox at example.com but "*" alone never spans the '@'. Matching is
// case-insensitive.
func NewFilterNotifier(next Notifier, patterns []string, logger *slog.Logger) (*FilterNotifier, error) {
	if next == nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("filter requires a notifier to forward to")
	}
	if logger == nil {
		logger = slog.Default()
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p), '@')
		if err != nil {
			return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("pattern", p).Wrap(err)
		}
		globs = append(globs, g)
	}
	return &FilterNotifier{next: next, patterns: patterns, globs: globs, logger: logger}, nil
}

// Allowed reports whether msg may be delivered to addr. An empty
// allowlist allows everyone.
func (n *FilterNotifier) Allowed(addr string) bool {
	if len(n.globs) == 0 {
		return true
	}
	addr = strings.ToLower(addr)
	for _, g := range n.globs {
		if g.Match(addr) {
			return true
		}
	}
	return false
}

// Send forwards msg when the recipient is allowed.
func (n *FilterNotifier) Send(ctx context.Context, msg Message) error {
	if !n.Allowed(msg.To) {
		n.logger.InfoContext(ctx, "notification suppressed by allowlist",
			"to", msg.To,
			"subject", msg.Subject,
			"patterns", n.patterns)
		return nil
	}
	return n.next.Send(ctx, msg)
}
