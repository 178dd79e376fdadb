package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/zombor/receipt-ledger/internal/receipt"
)

// Subscriber opens live queries; *receipt.Feed implements it
type Subscriber interface {
	Subscribe(ctx context.Context, q receipt.Query) (*receipt.Subscription, error)
}

// Watch recomputes the view for every snapshot of q and passes it to fn. It
// returns when ctx is done, when a snapshot carries an error or when fn fails.
// The subscription is closed on every return path, so fn is never called
// after Watch returns.
func Watch(ctx context.Context, src Subscriber, q receipt.Query, now func() time.Time, fn func(View) error, opts ...Option) error {
	sub, err := src.Subscribe(ctx, q)
	if err != nil {
		return fmt.Errorf("watching receipts: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-sub.C():
			if !ok {
				return ctx.Err()
			}
			// select picks at random when a snapshot and cancellation are both ready
			if err := ctx.Err(); err != nil {
				return err
			}
			if snap.Err != nil {
				return fmt.Errorf("watching receipts: %w", snap.Err)
			}
			if err := fn(Aggregate(snap.Records, now(), opts...)); err != nil {
				return err
			}
		}
	}
}
