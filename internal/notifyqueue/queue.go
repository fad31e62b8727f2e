package notifyqueue

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"sitewatch/internal/domain"
	"sitewatch/internal/permanent"
)

// Job is one outbound notification task in async delivery queue.
// Params: notification payload plus queue bookkeeping fields.
// Returns: queue unit consumed by delivery workers.
type Job struct {
	ID           string              `json:"id"`
	Notification domain.Notification `json:"notification"`
	CreatedAt    time.Time           `json:"created_at"`
}

// BuildJobID creates deterministic id for one notification queue task.
// Params: notification payload.
// Returns: stable SHA1-based id string used for JetStream deduplication.
func BuildJobID(notification domain.Notification) string {
	raw := fmt.Sprintf(
		"%s|%s|%s|%d",
		notification.AlertID,
		notification.Severity,
		notification.Message,
		notification.Timestamp.UnixNano(),
	)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Producer enqueues notification delivery jobs.
// Params: context and queue job payload.
// Returns: enqueue error.
type Producer interface {
	Enqueue(ctx context.Context, job Job) error
	Close() error
}

// MarkPermanent wraps error as permanent processing failure.
// Params: source error.
// Returns: wrapped permanent error (or nil when input is nil).
func MarkPermanent(err error) error {
	return permanent.Mark(err)
}

// IsPermanent reports whether error is marked as non-retryable.
// Params: processing error.
// Returns: true when worker must not retry.
func IsPermanent(err error) bool {
	return permanent.Is(err)
}

// Worker consumes queued jobs and acknowledges delivery status.
// Params: close hook for shutdown lifecycle.
// Returns: queue worker lifecycle.
type Worker interface {
	Close() error
}
