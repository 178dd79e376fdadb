package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "receipts"

// DB is the storage backend behind the Feed. Every method is scoped to one owner.
type DB interface {
	// SaveReceipt inserts or replaces a receipt keyed by its ID
	SaveReceipt(ctx context.Context, receipt *Record) error

	// GetReceipt retrieves one of the owner's receipts
	GetReceipt(ctx context.Context, ownerID, id string) (*Record, error)

	// ListReceipts returns the owner's receipts in insertion order
	ListReceipts(ctx context.Context, ownerID string) ([]*Record, error)

	// DeleteReceipt removes one of the owner's receipts
	DeleteReceipt(ctx context.Context, ownerID, id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements DB with one nested bucket per owner
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// ownerBucket returns the owner's bucket, or nil when the owner has none yet
func ownerBucket(tx *bbolt.Tx, ownerID string) *bbolt.Bucket {
	return tx.Bucket([]byte(bucketName)).Bucket([]byte(ownerID))
}

// SaveReceipt saves a receipt under its owner
func (b *BoltDB) SaveReceipt(ctx context.Context, receipt *Record) error {
	if receipt.OwnerID == "" {
		return ErrNoOwner
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket([]byte(bucketName)).CreateBucketIfNotExists([]byte(receipt.OwnerID))
		if err != nil {
			return fmt.Errorf("creating owner bucket: %w", err)
		}
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by owner and ID
func (b *BoltDB) GetReceipt(ctx context.Context, ownerID, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var receipt *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		if bucket == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns the owner's receipts. Keys are time-ordered IDs, so
// cursor order is insertion order.
func (b *BoltDB) ListReceipts(ctx context.Context, ownerID string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	receipts := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var receipt Record
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt from the database
func (b *BoltDB) DeleteReceipt(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		if bucket == nil || bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
