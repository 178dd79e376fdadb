package receipt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// sortableTime is a fixed-width UTC layout so that text ordering equals time ordering
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	category   TEXT NOT NULL,
	issue_date TEXT NOT NULL,
	total      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_owner_created_idx ON receipts (owner_id, created_at);
`

// receiptRow keeps the queryable columns next to the full JSON document
type receiptRow struct {
	ID        string `db:"id"`
	OwnerID   string `db:"owner_id"`
	Category  string `db:"category"`
	IssueDate string `db:"issue_date"`
	Total     string `db:"total"`
	CreatedAt string `db:"created_at"`
	Data      string `db:"data"`
}

// SQLDB implements DB on SQLite or Postgres through sqlx
type SQLDB struct {
	db *sqlx.DB
}

// NewSQLDB connects with the given driver (DriverSQLite or DriverPostgres) and
// creates the schema if needed
func NewSQLDB(ctx context.Context, driver, dsn string) (*SQLDB, error) {
	if driver == DriverSQLite {
		sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLDB{db: db}, nil
}

// SaveReceipt upserts a receipt
func (s *SQLDB) SaveReceipt(ctx context.Context, receipt *Record) error {
	if receipt.OwnerID == "" {
		return ErrNoOwner
	}
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	row := receiptRow{
		ID:        receipt.ID,
		OwnerID:   receipt.OwnerID,
		Category:  string(receipt.Category),
		IssueDate: receipt.IssueDate.UTC().Format(sortableTime),
		Total:     receipt.Total.String(),
		CreatedAt: receipt.CreatedAt.UTC().Format(sortableTime),
		Data:      string(data),
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO receipts (id, owner_id, category, issue_date, total, created_at, data)
		VALUES (:id, :owner_id, :category, :issue_date, :total, :created_at, :data)
		ON CONFLICT (id) DO UPDATE SET
			category = excluded.category,
			issue_date = excluded.issue_date,
			total = excluded.total,
			data = excluded.data`, row)
	if err != nil {
		return fmt.Errorf("saving receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by owner and ID
func (s *SQLDB) GetReceipt(ctx context.Context, ownerID, id string) (*Record, error) {
	var data string
	err := s.db.GetContext(ctx, &data,
		s.db.Rebind(`SELECT data FROM receipts WHERE owner_id = ? AND id = ?`), ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying receipt: %w", err)
	}
	var receipt Record
	if err := json.Unmarshal([]byte(data), &receipt); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %w", err)
	}
	return &receipt, nil
}

// ListReceipts returns the owner's receipts in insertion order
func (s *SQLDB) ListReceipts(ctx context.Context, ownerID string) ([]*Record, error) {
	var rows []receiptRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT * FROM receipts WHERE owner_id = ? ORDER BY created_at, id`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	receipts := make([]*Record, 0, len(rows))
	for _, row := range rows {
		var receipt Record
		if err := json.Unmarshal([]byte(row.Data), &receipt); err != nil {
			return nil, fmt.Errorf("unmarshaling receipt %s: %w", row.ID, err)
		}
		receipts = append(receipts, &receipt)
	}
	return receipts, nil
}

// DeleteReceipt removes one of the owner's receipts
func (s *SQLDB) DeleteReceipt(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM receipts WHERE owner_id = ? AND id = ?`), ownerID, id)
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the connection pool
func (s *SQLDB) Close() error {
	return s.db.Close()
}

// Ping checks connectivity with a deadline
func (s *SQLDB) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}
