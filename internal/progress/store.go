// Package progress persists conversation progress keyed by sender id.
package progress

import (
	"context"
	"errors"

	"github.com/playperu/scavengerbot/internal/hunt"
)

var ErrUnknownBackend = errors.New("unknown progress backend")

// Store holds one hunt.Progress per sender. Get returns the zero Progress
// for senders it has never seen. Put writes the record as given.
type Store interface {
	Get(ctx context.Context, senderID string) (hunt.Progress, error)
	Put(ctx context.Context, senderID string, p hunt.Progress) error
	Reset(ctx context.Context, senderID string) error
}
