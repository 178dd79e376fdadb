package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Order selects how a query result is sorted
type Order string

const (
	// OrderInserted keeps the backend's insertion order
	OrderInserted Order = ""
	// OrderByDate sorts by issue date, newest first
	OrderByDate Order = "date"
	// OrderByTotal sorts by total, largest first
	OrderByTotal Order = "total"
)

// ParseOrder maps a query parameter to an Order
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderInserted, OrderByDate, OrderByTotal:
		return Order(s), nil
	}
	return "", fmt.Errorf("unknown order %q", s)
}

// Query selects an owner's receipts, optionally narrowed to one category
type Query struct {
	OwnerID  string
	Category Category
	OrderBy  Order
}

// apply filters and sorts records in place of a backend query. Sorting is
// stable, so ties keep insertion order.
func (q Query) apply(records []*Record) []*Record {
	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if q.Category != "" && r.Category != q.Category {
			continue
		}
		out = append(out, r)
	}
	switch q.OrderBy {
	case OrderByDate:
		sort.SliceStable(out, func(i, j int) bool { return out[i].IssueDate.After(out[j].IssueDate) })
	case OrderByTotal:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	}
	return out
}

// Snapshot is one consistent view of a query's result set. Records must be
// treated as read-only.
type Snapshot struct {
	Records []*Record
	Err     error
}

// Feed is the persistence gateway. It wraps a DB, assigns identity on create
// and pushes a fresh snapshot to every matching subscription after each write.
type Feed struct {
	db          DB
	idGenerator IDGenerator
	timeSource  TimeSource

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewFeed creates a Feed with the default ID generator and time source
func NewFeed(db DB) *Feed {
	return NewFeedWithDeps(db, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewFeedWithDeps creates a Feed with custom dependencies for testing
func NewFeedWithDeps(db DB, idGen IDGenerator, timeSrc TimeSource) *Feed {
	return &Feed{
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSrc,
		subs:        make(map[*Subscription]struct{}),
	}
}

// Create inserts a new receipt and returns its assigned ID. The argument is not modified.
func (f *Feed) Create(ctx context.Context, r *Record) (string, error) {
	if r.OwnerID == "" {
		return "", ErrNoOwner
	}
	rec := r.Clone()
	now := f.timeSource.Now()
	rec.ID = f.idGenerator.Generate()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := f.db.SaveReceipt(ctx, rec); err != nil {
		return "", fmt.Errorf("creating receipt: %w", err)
	}
	f.publish(ctx, rec.OwnerID)
	return rec.ID, nil
}

// Update merges the editable fields of r into the stored receipt with the same
// ID and owner
func (f *Feed) Update(ctx context.Context, r *Record) error {
	if r.OwnerID == "" {
		return ErrNoOwner
	}
	existing, err := f.db.GetReceipt(ctx, r.OwnerID, r.ID)
	if err != nil {
		return fmt.Errorf("updating receipt: %w", err)
	}
	existing.merge(r)
	existing.UpdatedAt = f.timeSource.Now()

	if err := f.db.SaveReceipt(ctx, existing); err != nil {
		return fmt.Errorf("updating receipt: %w", err)
	}
	f.publish(ctx, r.OwnerID)
	return nil
}

// Delete removes one of the owner's receipts
func (f *Feed) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrNoOwner
	}
	if err := f.db.DeleteReceipt(ctx, ownerID, id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	f.publish(ctx, ownerID)
	return nil
}

// Get returns one of the owner's receipts
func (f *Feed) Get(ctx context.Context, ownerID, id string) (*Record, error) {
	if ownerID == "" {
		return nil, ErrNoOwner
	}
	return f.db.GetReceipt(ctx, ownerID, id)
}

// Query returns the current result of q
func (f *Feed) Query(ctx context.Context, q Query) ([]*Record, error) {
	if q.OwnerID == "" {
		return nil, ErrNoOwner
	}
	records, err := f.db.ListReceipts(ctx, q.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	return q.apply(records), nil
}

// Subscribe starts a live query. The first snapshot is available immediately.
// The subscription ends when Close is called or ctx is done.
func (f *Feed) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	sub := &Subscription{
		feed:  f,
		query: q,
		ch:    make(chan Snapshot, 1),
		done:  make(chan struct{}),
	}

	// The first read and the registration share f.mu with publish, so a write
	// that lands after the read is published to this subscription.
	f.mu.Lock()
	records, err := f.Query(ctx, q)
	if err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("subscribing: %w", err)
	}
	f.subs[sub] = struct{}{}
	sub.offer(Snapshot{Records: records})
	f.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// publish lists the owner's receipts once and offers each matching
// subscription its own filtered view
func (f *Feed) publish(ctx context.Context, ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var targets []*Subscription
	for sub := range f.subs {
		if sub.query.OwnerID == ownerID {
			targets = append(targets, sub)
		}
	}
	if len(targets) == 0 {
		return
	}

	records, err := f.db.ListReceipts(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		slog.Error("Failed to refresh subscriptions", "owner_id", ownerID, "error", err)
	}
	for _, sub := range targets {
		if err != nil {
			sub.offer(Snapshot{Err: fmt.Errorf("refreshing snapshot: %w", err)})
			continue
		}
		sub.offer(Snapshot{Records: sub.query.apply(records)})
	}
}

// Subscriptions returns the number of live subscriptions
func (f *Feed) Subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Subscription delivers snapshots of one query. At most one snapshot is
// pending; a newer one replaces an undelivered older one.
type Subscription struct {
	feed   *Feed
	query  Query
	ch     chan Snapshot
	done   chan struct{}
	closed bool
}

// C returns the snapshot channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Query returns the subscribed query
func (s *Subscription) Query() Query {
	return s.query
}

// Close ends the subscription and discards any pending snapshot. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.feed.subs, s)
	select {
	case <-s.ch:
	default:
	}
	close(s.ch)
	close(s.done)
}

// offer replaces any pending snapshot with snap. Callers hold feed.mu, which
// also makes the feed the only sender.
func (s *Subscription) offer(snap Snapshot) {
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
