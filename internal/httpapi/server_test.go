package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marketdesk/internal/domain"
	"marketdesk/internal/health"
	"marketdesk/internal/live"
	"marketdesk/internal/news"
	"marketdesk/internal/options"
	"marketdesk/internal/screener"
	"marketdesk/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore, *live.QuoteModel, *options.SnapshotStore) {
	t.Helper()

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	model := live.NewQuoteModel()
	chains := options.NewSnapshotStore()
	log := slog.New(slog.DiscardHandler)

	srv := NewServer(Deps{
		Watchlist:      db,
		WatchlistLimit: 10,
		Portfolio:      db,
		Screeners:      db,
		Signals:        db,
		IVs:            db,
		Engine:         screener.NewEngine(db),
		Chains:         chains,
		Model:          model,
		Feed:           news.NewFeed(log, 100),
		NewsPageSize:   7,
		Scorer:         health.NewScorer(db, nil),
		Log:            log,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, db, model, chains
}

func doReq(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestWatchlistEndpoints(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	// Empty list is an empty array, not null.
	resp := doReq(t, "GET", ts.URL+"/api/watchlist", nil)
	wl := decode[WatchlistResponse](t, resp)
	if wl.Symbols == nil || wl.Count != 0 || wl.Limit != 10 {
		t.Errorf("empty watchlist = %+v", wl)
	}

	resp = doReq(t, "PUT", ts.URL+"/api/watchlist/reliance", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d", resp.StatusCode)
	}
	wl = decode[WatchlistResponse](t, resp)
	if wl.Count != 1 || wl.Symbols[0] != "RELIANCE" {
		t.Errorf("after add = %+v", wl)
	}

	// Duplicate add is 409 and does not change the list.
	resp = doReq(t, "PUT", ts.URL+"/api/watchlist/RELIANCE", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate add: status %d, want 409", resp.StatusCode)
	}

	// Removing an absent symbol is 404.
	resp = doReq(t, "DELETE", ts.URL+"/api/watchlist/TCS", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("absent remove: status %d, want 404", resp.StatusCode)
	}

	resp = doReq(t, "DELETE", ts.URL+"/api/watchlist/RELIANCE", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("remove: status %d", resp.StatusCode)
	}
	wl = decode[WatchlistResponse](t, resp)
	if wl.Count != 0 {
		t.Errorf("after remove = %+v", wl)
	}
}

func TestWatchlistCapacity(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	for i := 0; i < 10; i++ {
		resp := doReq(t, "PUT", fmt.Sprintf("%s/api/watchlist/SYM%d", ts.URL, i), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add %d: status %d", i, resp.StatusCode)
		}
	}

	resp := doReq(t, "PUT", ts.URL+"/api/watchlist/ONEMORE", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("add beyond limit: status %d, want 422", resp.StatusCode)
	}

	// The rejected add must not have mutated the list.
	resp = doReq(t, "GET", ts.URL+"/api/watchlist", nil)
	if wl := decode[WatchlistResponse](t, resp); wl.Count != 10 {
		t.Errorf("count after rejected add = %d, want 10", wl.Count)
	}
}

func TestScreenerEndpoints(t *testing.T) {
	ts, db, _, _ := newTestServer(t)
	ctx := context.Background()

	for _, f := range []domain.Fundamentals{
		{Symbol: "TCS", Sector: "IT", PERatio: 22, MarketCap: 1400000},
		{Symbol: "SBIN", Sector: "Banking", PERatio: 9, MarketCap: 700000},
	} {
		if err := db.UpsertFundamentals(ctx, &f); err != nil {
			t.Fatal(err)
		}
	}

	resp := doReq(t, "GET", ts.URL+"/api/screener/filters", nil)
	if fields := decode[[]screener.FilterField](t, resp); len(fields) == 0 {
		t.Error("no filter fields")
	}

	peMin, peMax := 5.0, 15.0
	resp = doReq(t, "POST", ts.URL+"/api/screener/run", RunScreenerRequest{
		Filters: screener.Filters{PEMin: &peMin, PEMax: &peMax},
		Page:    1, PerPage: 10,
	})
	res := decode[screener.Result](t, resp)
	if res.Total != 1 || res.Rows[0].Symbol != "SBIN" {
		t.Errorf("screener result = %+v", res)
	}

	// Save, list, delete round-trip.
	resp = doReq(t, "POST", ts.URL+"/api/screener/save", SaveScreenerRequest{
		Name:    "Cheap PSUs",
		Filters: screener.Filters{PEMax: &peMax},
	})
	saved := decode[store.SavedScreener](t, resp)
	if saved.ID == "" || saved.Name != "Cheap PSUs" {
		t.Fatalf("saved = %+v", saved)
	}

	resp = doReq(t, "GET", ts.URL+"/api/screener/saved", nil)
	if list := decode[[]store.SavedScreener](t, resp); len(list) != 1 {
		t.Errorf("saved list = %+v", list)
	}

	resp = doReq(t, "DELETE", ts.URL+"/api/screener/saved/"+saved.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete saved: status %d", resp.StatusCode)
	}
}

func TestOptionsEndpoints(t *testing.T) {
	ts, db, _, chains := newTestServer(t)

	chains.Set(domain.OptionChain{
		Symbol: "NIFTY",
		Expiry: "2025-06-26",
		Spot:   23500,
		Rows: []domain.StrikeRow{
			{Strike: 23400, Call: domain.OptionQuote{OI: 900, IV: 0.15}, Put: domain.OptionQuote{OI: 1500, IV: 0.16}},
			{Strike: 23500, Call: domain.OptionQuote{OI: 1400, IV: 0.145}, Put: domain.OptionQuote{OI: 1300, IV: 0.155}},
			{Strike: 23600, Call: domain.OptionQuote{OI: 2000, IV: 0.14}, Put: domain.OptionQuote{OI: 800, IV: 0.15}},
		},
	})

	resp := doReq(t, "GET", ts.URL+"/api/options/symbols", nil)
	if symbols := decode[[]string](t, resp); len(symbols) != 1 || symbols[0] != "NIFTY" {
		t.Errorf("symbols = %v", symbols)
	}

	resp = doReq(t, "GET", ts.URL+"/api/options/NIFTY/chain?depth=1", nil)
	chain := decode[domain.OptionChain](t, resp)
	if len(chain.Rows) != 3 {
		t.Errorf("depth 1 rows = %d, want 3", len(chain.Rows))
	}

	resp = doReq(t, "GET", ts.URL+"/api/options/NIFTY/maxpain", nil)
	mp := decode[options.MaxPainResult](t, resp)
	if mp.Strike < 23400 || mp.Strike > 23600 {
		t.Errorf("max pain = %v", mp.Strike)
	}
	if len(mp.Pain) != 3 {
		t.Errorf("pain curve arrived with %d points, want 3", len(mp.Pain))
	}

	resp = doReq(t, "GET", ts.URL+"/api/options/NIFTY/pcr", nil)
	if pcr := decode[options.PCRResult](t, resp); pcr.OIPCR <= 0 {
		t.Errorf("pcr = %+v", pcr)
	}

	// IV percentile against recorded history.
	ctx := context.Background()
	for i, iv := range []float64{0.10, 0.12, 0.14} {
		date := fmt.Sprintf("2025-06-%02d", i+1)
		if err := db.RecordIV(ctx, "NIFTY", date, iv); err != nil {
			t.Fatal(err)
		}
	}
	resp = doReq(t, "GET", ts.URL+"/api/options/NIFTY/ivpercentile", nil)
	ivp := decode[IVPercentileResponse](t, resp)
	if ivp.Samples != 3 || ivp.Percentile != 100 {
		t.Errorf("iv percentile = %+v, want 100 over 3 samples", ivp)
	}

	resp = doReq(t, "GET", ts.URL+"/api/options/UNKNOWN/chain", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown chain: status %d, want 404", resp.StatusCode)
	}
}

func TestPortfolioEndpoints(t *testing.T) {
	ts, _, model, _ := newTestServer(t)

	buy := map[string]any{"symbol": "TCS", "type": "BUY", "quantity": 10, "price": "4000"}
	resp := doReq(t, "POST", ts.URL+"/api/portfolio/transactions", buy)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("buy: status %d", resp.StatusCode)
	}
	txn := decode[domain.Transaction](t, resp)
	if txn.ID == "" {
		t.Error("transaction ID not assigned")
	}

	// Invalid transaction is rejected before touching the book.
	bad := map[string]any{"symbol": "TCS", "type": "BUY", "quantity": 0, "price": "4000"}
	resp = doReq(t, "POST", ts.URL+"/api/portfolio/transactions", bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid txn: status %d, want 400", resp.StatusCode)
	}

	// Oversell is 422.
	oversell := map[string]any{"symbol": "TCS", "type": "SELL", "quantity": 50, "price": "4100"}
	resp = doReq(t, "POST", ts.URL+"/api/portfolio/transactions", oversell)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("oversell: status %d, want 422", resp.StatusCode)
	}

	resp = doReq(t, "GET", ts.URL+"/api/portfolio/holdings", nil)
	holdings := decode[[]domain.Holding](t, resp)
	if len(holdings) != 1 || holdings[0].Quantity != 10 {
		t.Errorf("holdings = %+v", holdings)
	}

	// Summary values against the live model.
	model.SetQuote(domain.Quote{Symbol: "TCS", Price: 4100})
	resp = doReq(t, "GET", ts.URL+"/api/portfolio/summary", nil)
	var sum struct {
		Invested decimal.Decimal `json:"invested"`
		PnL      decimal.Decimal `json:"pnl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		t.Fatal(err)
	}
	if !sum.Invested.Equal(decimal.NewFromInt(40000)) || !sum.PnL.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("summary = invested %s pnl %s, want 40000 / 1000", sum.Invested, sum.PnL)
	}

	resp = doReq(t, "GET", ts.URL+"/api/portfolio/transactions?page=1&limit=10", nil)
	txns := decode[TransactionsResponse](t, resp)
	if txns.Total != 1 || len(txns.Transactions) != 1 {
		t.Errorf("transactions = %+v", txns)
	}
}

func TestSignalEndpoints(t *testing.T) {
	ts, db, _, _ := newTestServer(t)
	ctx := context.Background()

	sig := &domain.Signal{
		ID: "sig-1", Symbol: "INFY", Type: domain.SignalTypeBuy,
		Strength: 0.8, Reason: "golden cross", CreatedAt: time.Now(),
	}
	if err := db.SaveSignal(ctx, sig); err != nil {
		t.Fatal(err)
	}

	resp := doReq(t, "GET", ts.URL+"/api/signals", nil)
	if signals := decode[[]domain.Signal](t, resp); len(signals) != 1 {
		t.Errorf("signals = %+v", signals)
	}

	resp = doReq(t, "GET", ts.URL+"/api/signals/INFY", nil)
	if signals := decode[[]domain.Signal](t, resp); len(signals) != 1 {
		t.Errorf("signals by symbol = %+v", signals)
	}

	resp = doReq(t, "POST", ts.URL+"/api/signals/sig-1/action", SignalActionRequest{Action: "traded"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("action: status %d", resp.StatusCode)
	}

	resp = doReq(t, "POST", ts.URL+"/api/signals/sig-1/action", SignalActionRequest{Action: "shorted"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid action: status %d, want 400", resp.StatusCode)
	}

	resp = doReq(t, "POST", ts.URL+"/api/signals/missing/action", SignalActionRequest{Action: "ignored"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown signal: status %d, want 404", resp.StatusCode)
	}
}

func TestMarketEndpoints(t *testing.T) {
	ts, _, model, _ := newTestServer(t)

	model.SetIndex(domain.IndexQuote{Name: "NIFTY 50", Value: 23500, Change: 80})
	model.SetQuote(domain.Quote{Symbol: "TCS", Price: 4100, Change: 12})
	model.SetQuote(domain.Quote{Symbol: "INFY", Price: 1550, Change: -5})

	resp := doReq(t, "GET", ts.URL+"/api/market/summary", nil)
	sum := decode[MarketSummaryResponse](t, resp)
	if len(sum.Indices) != 1 || sum.Breadth.Advancing != 1 || sum.Breadth.Declining != 1 {
		t.Errorf("summary = %+v", sum)
	}

	resp = doReq(t, "GET", ts.URL+"/api/market/price/tcs", nil)
	if q := decode[domain.Quote](t, resp); q.Price != 4100 {
		t.Errorf("price = %+v", q)
	}

	resp = doReq(t, "GET", ts.URL+"/api/market/price/NOPE", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown price: status %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, db, _, _ := newTestServer(t)

	f := &domain.Fundamentals{
		Symbol: "TCS", PERatio: 22, PBRatio: 2.8, ROE: 42,
		DebtToEquity: 0.1, CurrentRatio: 2.4,
		Price: 4100, High52W: 4350, Low52W: 3300,
	}
	if err := db.UpsertFundamentals(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	resp := doReq(t, "GET", ts.URL+"/api/health/tcs", nil)
	card := decode[health.Scorecard](t, resp)
	if card.Grade != "A" || len(card.Checks) != 6 {
		t.Errorf("scorecard = %+v", card)
	}

	resp = doReq(t, "GET", ts.URL+"/api/health/NOPE", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown symbol: status %d, want 404", resp.StatusCode)
	}
}

func TestNewsEndpoint(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := doReq(t, "GET", ts.URL+"/api/news?page=1&limit=5", nil)
	nr := decode[NewsResponse](t, resp)
	if nr.Articles == nil || nr.Total != 0 {
		t.Errorf("empty news = %+v, want empty non-null array", nr)
	}
	if !nr.LastSync.IsZero() {
		t.Errorf("lastSync = %v before any refresh, want zero", nr.LastSync)
	}

	// The configured page size applies when no limit is given.
	resp = doReq(t, "GET", ts.URL+"/api/news", nil)
	if nr := decode[NewsResponse](t, resp); nr.PerPage != 7 {
		t.Errorf("default perPage = %d, want the configured 7", nr.PerPage)
	}
}

func TestNewsLastSync(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	feed := news.NewFeed(log, 10, func(ctx context.Context) ([]domain.NewsArticle, error) {
		return []domain.NewsArticle{
			{Headline: "Nifty ends at record high", Source: "wire", Time: time.Now()},
		}, nil
	})
	feed.Refresh(context.Background())

	srv := NewServer(Deps{Feed: feed, Log: log})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := doReq(t, "GET", ts.URL+"/api/news", nil)
	nr := decode[NewsResponse](t, resp)
	if nr.Total != 1 || nr.LastSync.IsZero() {
		t.Errorf("news = %+v, want one article and a sync timestamp", nr)
	}
}
