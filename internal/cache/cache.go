package cache

import (
	"context"
	"time"
)

// SentCache keeps short-lived delivery confirmations keyed by job and record
// position. Advisory only: the dispatch engine writes it and never reads it
// back, so cache loss is harmless.
type SentCache interface {
	StoreSent(ctx context.Context, jobID string, seq int, remoteMessageID string, sentAt time.Time) error
}
