package scanning

import "context"

// Scanner extracts raw receipt fields from an image or PDF. The result is a
// loosely typed field map meant for the receipt normalizer; nothing here is
// trusted to be complete or well formed.
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts its fields
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (map[string]any, error)
	// Close releases the scanner's resources
	Close() error
}
