package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// SQLiteStore journals processed signals. Prices are stored as TEXT so the
// decimal representation survives the round trip exactly.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			direction TEXT NOT NULL,
			asset TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			entry TEXT NOT NULL,
			tp1 TEXT NOT NULL,
			tp2 TEXT NOT NULL,
			tp3 TEXT NOT NULL,
			sl TEXT NOT NULL,
			rr TEXT NOT NULL,
			source TEXT NOT NULL,
			raw_message TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_asset ON signals(asset);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals(created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

func (s *SQLiteStore) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	query := `INSERT INTO signals (id, direction, asset, timeframe, entry, tp1, tp2, tp3, sl, rr, source, raw_message, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, string(rec.Direction), rec.Asset, rec.Timeframe,
		rec.Entry.String(), rec.TP1.String(), rec.TP2.String(), rec.TP3.String(),
		rec.SL.String(), rec.RR.String(), rec.Source, rec.RawMessage, rec.CreatedAt)
	return err
}

func (s *SQLiteStore) ListSignals(ctx context.Context, limit int) ([]*domain.SignalRecord, error) {
	query := `SELECT id, direction, asset, timeframe, entry, tp1, tp2, tp3, sl, rr, source, raw_message, created_at
			  FROM signals ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.SignalRecord
	for rows.Next() {
		var rec domain.SignalRecord
		var direction, entry, tp1, tp2, tp3, sl, rr string
		if err := rows.Scan(&rec.ID, &direction, &rec.Asset, &rec.Timeframe,
			&entry, &tp1, &tp2, &tp3, &sl, &rr,
			&rec.Source, &rec.RawMessage, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Direction = domain.Direction(direction)
		if rec.Entry, err = decimal.NewFromString(entry); err != nil {
			return nil, fmt.Errorf("signal %s: bad entry %q: %w", rec.ID, entry, err)
		}
		if rec.TP1, err = decimal.NewFromString(tp1); err != nil {
			return nil, fmt.Errorf("signal %s: bad tp1 %q: %w", rec.ID, tp1, err)
		}
		if rec.TP2, err = decimal.NewFromString(tp2); err != nil {
			return nil, fmt.Errorf("signal %s: bad tp2 %q: %w", rec.ID, tp2, err)
		}
		if rec.TP3, err = decimal.NewFromString(tp3); err != nil {
			return nil, fmt.Errorf("signal %s: bad tp3 %q: %w", rec.ID, tp3, err)
		}
		if rec.SL, err = decimal.NewFromString(sl); err != nil {
			return nil, fmt.Errorf("signal %s: bad sl %q: %w", rec.ID, sl, err)
		}
		if rec.RR, err = decimal.NewFromString(rr); err != nil {
			return nil, fmt.Errorf("signal %s: bad rr %q: %w", rec.ID, rr, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
