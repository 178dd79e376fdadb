package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-ledger/internal/scanning"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates time-ordered UUIDv7 IDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service ties drafts, extraction, attachments and the feed together
type Service struct {
	feed       *Feed
	scanner    scanning.Scanner
	storage    Storage
	timeSource TimeSource

	// scanned maps attachments produced by Scan, and not yet saved, to their
	// content type. A draft may only attach one of these.
	mu      sync.Mutex
	scanned map[string]string
}

// NewService creates a new Service with the default time source
func NewService(feed *Feed, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(feed, scanner, storage, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(feed *Feed, scanner scanning.Scanner, storage Storage, timeSrc TimeSource) *Service {
	return &Service{
		feed:       feed,
		scanner:    scanner,
		storage:    storage,
		timeSource: timeSrc,
		scanned:    make(map[string]string),
	}
}

// Feed returns the underlying persistence gateway
func (s *Service) Feed() *Feed {
	return s.feed
}

// NewDraft normalizes client supplied fields into a draft
func (s *Service) NewDraft(fields Fields) *Draft {
	if len(fields) == 0 {
		return NewDraft()
	}
	return Normalize(fields)
}

// Scan stores the uploaded file, runs extraction and returns a prefilled draft.
// The stored file is removed again when extraction fails.
func (s *Service) Scan(ctx context.Context, filename string, data []byte, contentType string) (*Draft, error) {
	name := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	savedPath, err := s.storage.Save(name, data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	fields, err := s.scanner.ScanReceipt(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	s.mu.Lock()
	s.scanned[savedPath] = contentType
	s.mu.Unlock()

	f := Fields(fields)
	f["attachment"] = savedPath
	f["contentType"] = contentType
	delete(f, "id")
	return Normalize(f), nil
}

// Save persists the draft for owner. A draft without an ID creates a new
// receipt, otherwise the stored receipt is updated. created reports which
// happened.
func (s *Service) Save(ctx context.Context, ownerID string, d *Draft) (*Record, bool, error) {
	rec, err := d.Record(ownerID, s.timeSource.Now())
	if err != nil {
		return nil, false, err
	}

	// Only a fresh upload may be attached; otherwise an update keeps the stored one
	rec.Attachment, rec.ContentType = s.claim(d.Attachment)

	if rec.ID == "" {
		id, err := s.feed.Create(ctx, rec)
		if err != nil {
			s.unclaim(rec.Attachment, rec.ContentType)
			return nil, false, err
		}
		saved, err := s.feed.Get(ctx, ownerID, id)
		if err != nil {
			return nil, false, fmt.Errorf("reloading receipt: %w", err)
		}
		slog.Info("Receipt created", "id", id, "owner_id", ownerID, "total", saved.Total.String())
		return saved, true, nil
	}

	if err := s.feed.Update(ctx, rec); err != nil {
		s.unclaim(rec.Attachment, rec.ContentType)
		return nil, false, err
	}
	saved, err := s.feed.Get(ctx, ownerID, rec.ID)
	if err != nil {
		return nil, false, fmt.Errorf("reloading receipt: %w", err)
	}
	slog.Info("Receipt updated", "id", rec.ID, "owner_id", ownerID, "total", saved.Total.String())
	return saved, false, nil
}

// claim takes a scanned, unsaved attachment for a save. Unknown paths yield
// no attachment.
func (s *Service) claim(path string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contentType, ok := s.scanned[path]
	if !ok || path == "" {
		return "", ""
	}
	delete(s.scanned, path)
	return path, contentType
}

// unclaim returns an attachment after a failed save
func (s *Service) unclaim(path, contentType string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	s.scanned[path] = contentType
	s.mu.Unlock()
}

// Get returns one of the owner's receipts
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Record, error) {
	rec, err := s.feed.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return rec, nil
}

// EditDraft loads a stored receipt as a draft for editing
func (s *Service) EditDraft(ctx context.Context, ownerID, id string) (*Draft, error) {
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return NormalizeRecord(rec), nil
}

// List runs a one-shot query
func (s *Service) List(ctx context.Context, q Query) ([]*Record, error) {
	records, err := s.feed.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return records, nil
}

// Delete removes a receipt and, best effort, its attachment
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.feed.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	if rec.Attachment != "" {
		if err := s.storage.Delete(rec.Attachment); err != nil {
			slog.Warn("Failed to delete file", "filename", rec.Attachment, "error", err)
		}
	}
	slog.Info("Receipt deleted", "id", id, "owner_id", ownerID)
	return nil
}

// ErrNoAttachment is returned when a receipt has no stored file
var ErrNoAttachment = errors.New("receipt has no attachment")

// File returns the attachment bytes and content type of a receipt
func (s *Service) File(ctx context.Context, ownerID, id string) ([]byte, string, error) {
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, "", err
	}
	if rec.Attachment == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrNoAttachment, id)
	}
	data, err := s.storage.Get(rec.Attachment)
	if err != nil {
		return nil, "", fmt.Errorf("reading attachment: %w", err)
	}
	return data, rec.ContentType, nil
}
