package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	accounting "homesite-energy/internal/accounting/domain"
	tariff "homesite-energy/internal/tariff/domain"
)

const defaultPostingTable = "postings"

// PostingStore is a Postgres implementation of the posting store.
type PostingStore struct {
	db    *sql.DB
	table string
}

// StoreOption configures the store.
type StoreOption func(*PostingStore)

// WithTable overrides the default table name.
func WithTable(table string) StoreOption {
	return func(store *PostingStore) {
		if table != "" {
			store.table = table
		}
	}
}

// NewPostingStore constructs a store with the default table name.
func NewPostingStore(db *sql.DB, opts ...StoreOption) *PostingStore {
	store := &PostingStore{db: db, table: defaultPostingTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Append inserts postings in one transaction.
func (s *PostingStore) Append(ctx context.Context, postings []accounting.Posting) error {
	if s == nil || s.db == nil {
		return errors.New("posting store: nil db")
	}
	if len(postings) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	asset,
	circuit,
	module,
	meter_id,
	at,
	kind,
	direction,
	tariff_name,
	rate_id,
	energy_kwh,
	pre_tax,
	tax,
	total,
	compared,
	out_of_order
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)`, s.table)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range postings {
		if p.Asset == "" || p.At.IsZero() || p.Kind == "" {
			_ = tx.Rollback()
			return errors.New("posting store: invalid posting")
		}
		if _, err := stmt.ExecContext(
			ctx,
			p.Asset,
			p.Circuit,
			p.Module,
			p.MeterID,
			p.At,
			string(p.Kind),
			string(p.Direction),
			p.TariffName,
			p.RateID,
			p.EnergyKWh,
			p.PreTax,
			p.Tax,
			p.Total,
			p.Compared,
			p.OutOfOrder,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListBetween returns postings with from <= at < to in posting-time
// order. A zero to means no upper bound.
func (s *PostingStore) ListBetween(ctx context.Context, from, to time.Time) ([]accounting.Posting, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("posting store: nil db")
	}

	query := fmt.Sprintf(`
SELECT
	asset,
	circuit,
	module,
	meter_id,
	at,
	kind,
	direction,
	tariff_name,
	rate_id,
	energy_kwh,
	pre_tax,
	tax,
	total,
	compared,
	out_of_order
FROM %s
WHERE at >= $1 AND ($2::timestamptz IS NULL OR at < $2)
ORDER BY at`, s.table)

	var upper sql.NullTime
	if !to.IsZero() {
		upper = sql.NullTime{Time: to, Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, query, from, upper)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var postings []accounting.Posting
	for rows.Next() {
		var p accounting.Posting
		var kind, direction string
		if err := rows.Scan(
			&p.Asset,
			&p.Circuit,
			&p.Module,
			&p.MeterID,
			&p.At,
			&kind,
			&direction,
			&p.TariffName,
			&p.RateID,
			&p.EnergyKWh,
			&p.PreTax,
			&p.Tax,
			&p.Total,
			&p.Compared,
			&p.OutOfOrder,
		); err != nil {
			return nil, err
		}
		p.Kind = accounting.Kind(kind)
		p.Direction = tariff.Direction(direction)
		postings = append(postings, p)
	}
	return postings, rows.Err()
}
