package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"marketdesk/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ WatchlistStore = (*SQLiteStore)(nil)
var _ PortfolioStore = (*SQLiteStore)(nil)
var _ ScreenerStore = (*SQLiteStore)(nil)
var _ SignalStore = (*SQLiteStore)(nil)
var _ FundamentalsStore = (*SQLiteStore)(nil)
var _ IVStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS watchlist (
	symbol   TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS holdings (
	symbol     TEXT PRIMARY KEY,
	quantity   INTEGER NOT NULL,
	avg_cost   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id       TEXT PRIMARY KEY,
	symbol   TEXT NOT NULL,
	type     TEXT NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 0,
	price    TEXT NOT NULL DEFAULT '0',
	amount   TEXT NOT NULL DEFAULT '0',
	date     INTEGER NOT NULL,
	notes    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC);
CREATE TABLE IF NOT EXISTS saved_screeners (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	filters    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS signals (
	id         TEXT PRIMARY KEY,
	symbol     TEXT NOT NULL,
	type       TEXT NOT NULL,
	strength   REAL NOT NULL DEFAULT 0,
	reason     TEXT NOT NULL DEFAULT '',
	action     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol, created_at DESC);
CREATE TABLE IF NOT EXISTS fundamentals (
	symbol         TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	sector         TEXT NOT NULL DEFAULT '',
	market_cap     REAL NOT NULL DEFAULT 0,
	pe             REAL NOT NULL DEFAULT 0,
	pb             REAL NOT NULL DEFAULT 0,
	roe            REAL NOT NULL DEFAULT 0,
	dividend_yield REAL NOT NULL DEFAULT 0,
	debt_to_equity REAL NOT NULL DEFAULT 0,
	current_ratio  REAL NOT NULL DEFAULT 0,
	high_52w       REAL NOT NULL DEFAULT 0,
	low_52w        REAL NOT NULL DEFAULT 0,
	price          REAL NOT NULL DEFAULT 0,
	fno_eligible   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS iv_history (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	iv     REAL NOT NULL,
	PRIMARY KEY (symbol, date)
);
`

// SQLiteStore implements the watchlist, portfolio, screener, signal,
// fundamentals, and IV stores backed by a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// WatchlistStore implementation
// ---------------------------------------------------------------------------

// GetWatchlist returns all symbols ordered by insertion position.
func (s *SQLiteStore) GetWatchlist(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// AddSymbol appends a symbol at the next position. Returns ErrDuplicate when
// the symbol is already tracked.
func (s *SQLiteStore) AddSymbol(ctx context.Context, symbol string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchlist (symbol, position)
		 VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM watchlist))`,
		symbol)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// RemoveSymbol deletes a symbol. Positions of the remaining entries are left
// untouched; ordering only depends on their relative values.
func (s *SQLiteStore) RemoveSymbol(ctx context.Context, symbol string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE symbol = ?`, symbol)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// PortfolioStore implementation
// ---------------------------------------------------------------------------

func (s *SQLiteStore) ListHoldings(ctx context.Context) ([]domain.Holding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, quantity, avg_cost, updated_at FROM holdings ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}
	return holdings, rows.Err()
}

func (s *SQLiteStore) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, quantity, avg_cost, updated_at FROM holdings WHERE symbol = ?`, symbol)
	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return h, err
}

func (s *SQLiteStore) UpsertHolding(ctx context.Context, h *domain.Holding) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO holdings (symbol, quantity, avg_cost, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET
			 quantity = excluded.quantity,
			 avg_cost = excluded.avg_cost,
			 updated_at = excluded.updated_at`,
		h.Symbol, h.Quantity, h.AvgCost.String(), h.UpdatedAt.Unix())
	return err
}

func (s *SQLiteStore) DeleteHolding(ctx context.Context, symbol string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE symbol = ?`, symbol)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AddTransaction(ctx context.Context, t *domain.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, symbol, type, quantity, price, amount, date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, string(t.Type), t.Quantity,
		t.Price.String(), t.Amount.String(), t.Date.Unix(), t.Notes)
	return err
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, page, perPage int) ([]domain.Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, type, quantity, price, amount, date, notes
		 FROM transactions ORDER BY date DESC, id LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var (
			t             domain.Transaction
			typ           string
			price, amount string
			date          int64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &typ, &t.Quantity, &price, &amount, &date, &t.Notes); err != nil {
			return nil, 0, err
		}
		t.Type = domain.TransactionType(typ)
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, 0, fmt.Errorf("parsing price for txn %s: %w", t.ID, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, 0, fmt.Errorf("parsing amount for txn %s: %w", t.ID, err)
		}
		t.Date = time.Unix(date, 0).UTC()
		txns = append(txns, t)
	}
	return txns, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(r rowScanner) (*domain.Holding, error) {
	var (
		h       domain.Holding
		avgCost string
		updated int64
	)
	if err := r.Scan(&h.Symbol, &h.Quantity, &avgCost, &updated); err != nil {
		return nil, err
	}
	cost, err := decimal.NewFromString(avgCost)
	if err != nil {
		return nil, fmt.Errorf("parsing avg_cost for %s: %w", h.Symbol, err)
	}
	h.AvgCost = cost
	h.UpdatedAt = time.Unix(updated, 0).UTC()
	return &h, nil
}

// ---------------------------------------------------------------------------
// ScreenerStore implementation
// ---------------------------------------------------------------------------

func (s *SQLiteStore) ListSavedScreeners(ctx context.Context) ([]SavedScreener, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, filters, created_at FROM saved_screeners ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saved []SavedScreener
	for rows.Next() {
		var (
			sc      SavedScreener
			created int64
		)
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Filters, &created); err != nil {
			return nil, err
		}
		sc.CreatedAt = time.Unix(created, 0).UTC()
		saved = append(saved, sc)
	}
	return saved, rows.Err()
}

func (s *SQLiteStore) SaveScreener(ctx context.Context, sc *SavedScreener) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_screeners (id, name, filters, created_at) VALUES (?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Filters, sc.CreatedAt.Unix())
	return err
}

func (s *SQLiteStore) DeleteScreener(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_screeners WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

func (s *SQLiteStore) SaveSignal(ctx context.Context, sig *domain.Signal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (id, symbol, type, strength, reason, action, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.Symbol, string(sig.Type), sig.Strength, sig.Reason,
		string(sig.Action), sig.CreatedAt.Unix())
	return err
}

func (s *SQLiteStore) ListSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, type, strength, reason, action, created_at
		 FROM signals ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (s *SQLiteStore) ListSignalsBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Signal, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, type, strength, reason, action, created_at
		 FROM signals WHERE symbol = ? ORDER BY created_at DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

func (s *SQLiteStore) SetSignalAction(ctx context.Context, id string, action domain.SignalAction) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET action = ? WHERE id = ?`, string(action), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSignals(rows *sql.Rows) ([]domain.Signal, error) {
	var signals []domain.Signal
	for rows.Next() {
		var (
			sig         domain.Signal
			typ, action string
			created     int64
		)
		if err := rows.Scan(&sig.ID, &sig.Symbol, &typ, &sig.Strength, &sig.Reason, &action, &created); err != nil {
			return nil, err
		}
		sig.Type = domain.SignalType(typ)
		sig.Action = domain.SignalAction(action)
		sig.CreatedAt = time.Unix(created, 0).UTC()
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// ---------------------------------------------------------------------------
// FundamentalsStore implementation
// ---------------------------------------------------------------------------

func (s *SQLiteStore) UpsertFundamentals(ctx context.Context, f *domain.Fundamentals) error {
	fno := 0
	if f.FnOEligible {
		fno = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fundamentals
			 (symbol, name, sector, market_cap, pe, pb, roe, dividend_yield,
			  debt_to_equity, current_ratio, high_52w, low_52w, price, fno_eligible)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET
			 name = excluded.name,
			 sector = excluded.sector,
			 market_cap = excluded.market_cap,
			 pe = excluded.pe,
			 pb = excluded.pb,
			 roe = excluded.roe,
			 dividend_yield = excluded.dividend_yield,
			 debt_to_equity = excluded.debt_to_equity,
			 current_ratio = excluded.current_ratio,
			 high_52w = excluded.high_52w,
			 low_52w = excluded.low_52w,
			 price = excluded.price,
			 fno_eligible = excluded.fno_eligible`,
		f.Symbol, f.Name, f.Sector, f.MarketCap, f.PERatio, f.PBRatio, f.ROE,
		f.DividendYield, f.DebtToEquity, f.CurrentRatio, f.High52W, f.Low52W,
		f.Price, fno)
	return err
}

func (s *SQLiteStore) GetFundamentals(ctx context.Context, symbol string) (*domain.Fundamentals, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, name, sector, market_cap, pe, pb, roe, dividend_yield,
				debt_to_equity, current_ratio, high_52w, low_52w, price, fno_eligible
		 FROM fundamentals WHERE symbol = ?`, symbol)
	f, err := scanFundamentals(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *SQLiteStore) ListFundamentals(ctx context.Context) ([]domain.Fundamentals, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, name, sector, market_cap, pe, pb, roe, dividend_yield,
				debt_to_equity, current_ratio, high_52w, low_52w, price, fno_eligible
		 FROM fundamentals ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []domain.Fundamentals
	for rows.Next() {
		f, err := scanFundamentals(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, *f)
	}
	return all, rows.Err()
}

func scanFundamentals(r rowScanner) (*domain.Fundamentals, error) {
	var (
		f   domain.Fundamentals
		fno int
	)
	err := r.Scan(&f.Symbol, &f.Name, &f.Sector, &f.MarketCap, &f.PERatio,
		&f.PBRatio, &f.ROE, &f.DividendYield, &f.DebtToEquity, &f.CurrentRatio,
		&f.High52W, &f.Low52W, &f.Price, &fno)
	if err != nil {
		return nil, err
	}
	f.FnOEligible = fno != 0
	return &f, nil
}

// ---------------------------------------------------------------------------
// IVStore implementation
// ---------------------------------------------------------------------------

func (s *SQLiteStore) RecordIV(ctx context.Context, symbol, date string, iv float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO iv_history (symbol, date, iv) VALUES (?, ?, ?)
		 ON CONFLICT(symbol, date) DO UPDATE SET iv = excluded.iv`,
		symbol, date, iv)
	return err
}

func (s *SQLiteStore) IVHistory(ctx context.Context, symbol string, n int) ([]float64, error) {
	if n < 1 {
		n = 252
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT iv FROM (
			 SELECT date, iv FROM iv_history WHERE symbol = ?
			 ORDER BY date DESC LIMIT ?
		 ) ORDER BY date ASC`, symbol, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ivs []float64
	for rows.Next() {
		var iv float64
		if err := rows.Scan(&iv); err != nil {
			return nil, err
		}
		ivs = append(ivs, iv)
	}
	return ivs, rows.Err()
}
