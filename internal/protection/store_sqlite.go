package protection

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const receiptSchema = `
CREATE TABLE IF NOT EXISTS receipts (
	id          TEXT PRIMARY KEY,
	position_id TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	data        TEXT NOT NULL,
	checksum    BLOB NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_receipts_position ON receipts(position_id, created_at);
`

// SQLiteReceiptStore keeps receipts as checksummed JSON rows
type SQLiteReceiptStore struct {
	db *sql.DB
}

// NewSQLiteReceiptStore opens (or creates) the receipt log at dbPath
func NewSQLiteReceiptStore(dbPath string, walMode bool) (*SQLiteReceiptStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers; one connection avoids SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if walMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(receiptSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteReceiptStore{db: db}, nil
}

func (s *SQLiteReceiptStore) Save(ctx context.Context, r *Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}
	checksum := sha256.Sum256(data)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO receipts (id, position_id, user_id, data, checksum, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, r.ID, r.PositionID, r.UserID, string(data), checksum[:], r.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteReceiptStore) Get(ctx context.Context, id string) (*Receipt, error) {
	var data string
	var checksum []byte
	err := s.db.QueryRowContext(ctx, `SELECT data, checksum FROM receipts WHERE id = ?`, id).Scan(&data, &checksum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	return decodeReceipt(data, checksum)
}

func (s *SQLiteReceiptStore) ListByPosition(ctx context.Context, positionID string) ([]*Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data, checksum FROM receipts WHERE position_id = ? ORDER BY created_at ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var out []*Receipt
	for rows.Next() {
		var data string
		var checksum []byte
		if err := rows.Scan(&data, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		r, err := decodeReceipt(data, checksum)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteReceiptStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteReceiptStore) Close() error {
	return s.db.Close()
}

func decodeReceipt(data string, storedChecksum []byte) (*Receipt, error) {
	computed := sha256.Sum256([]byte(data))
	if subtle.ConstantTimeCompare(computed[:], storedChecksum) != 1 {
		return nil, ErrReceiptCorrupted
	}

	var r Receipt
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}
	return &r, nil
}
