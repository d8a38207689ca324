// Package gateway abstracts outbound chat delivery. The lifecycle and the
// reminder scheduler only ever see this interface; delivery failures are
// returned to the caller but must never be treated as fatal there.
package gateway

import "context"

// Notifier delivers messages to a chat recipient. chatID addresses either a
// single user or the shared admin group. attachmentRef, when non-empty, is
// the opaque media handle captured at submission time.
type Notifier interface {
	// Send delivers text and returns the platform message id of the
	// delivered message, used later for in-place edits.
	Send(ctx context.Context, chatID int64, text string, attachmentRef string) (int, error)
	// Edit rewrites a previously sent message in place.
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
}
