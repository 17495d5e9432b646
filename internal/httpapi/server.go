// Package httpapi serves the dashboard REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketdesk/internal/domain"
	"marketdesk/internal/health"
	"marketdesk/internal/live"
	"marketdesk/internal/news"
	"marketdesk/internal/options"
	"marketdesk/internal/portfolio"
	"marketdesk/internal/screener"
	"marketdesk/internal/store"
	"marketdesk/internal/util"
)

// Server bundles the stores and engines behind the REST routes.
type Server struct {
	watchlist      store.WatchlistStore
	watchlistLimit int
	portfolio      store.PortfolioStore
	screeners      store.ScreenerStore
	signals        store.SignalStore
	ivs            store.IVStore
	engine         *screener.Engine
	chains         options.ChainProvider
	model          *live.QuoteModel
	feed           *news.Feed
	newsPageSize   int
	scorer         *health.Scorer
	calendar       *util.TradingCalendar
	quotesHub      http.Handler
	log            *slog.Logger
}

// Deps carries everything the server serves from.
type Deps struct {
	Watchlist      store.WatchlistStore
	WatchlistLimit int
	Portfolio      store.PortfolioStore
	Screeners      store.ScreenerStore
	Signals        store.SignalStore
	IVs            store.IVStore
	Engine         *screener.Engine
	Chains         options.ChainProvider
	Model          *live.QuoteModel
	Feed           *news.Feed
	NewsPageSize   int
	Scorer         *health.Scorer
	QuotesHub      http.Handler
	Log            *slog.Logger
}

// NewServer creates the API server.
func NewServer(d Deps) *Server {
	if d.NewsPageSize <= 0 {
		d.NewsPageSize = 20
	}
	return &Server{
		watchlist:      d.Watchlist,
		watchlistLimit: d.WatchlistLimit,
		portfolio:      d.Portfolio,
		screeners:      d.Screeners,
		signals:        d.Signals,
		ivs:            d.IVs,
		engine:         d.Engine,
		chains:         d.Chains,
		model:          d.Model,
		feed:           d.Feed,
		newsPageSize:   d.NewsPageSize,
		scorer:         d.Scorer,
		calendar:       util.NewTradingCalendar(),
		quotesHub:      d.QuotesHub,
		log:            d.Log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{symbol}", s.handleAddWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", s.handleRemoveWatchlist)

	mux.HandleFunc("GET /api/screener/filters", s.handleScreenerFilters)
	mux.HandleFunc("GET /api/screener/presets", s.handleScreenerPresets)
	mux.HandleFunc("GET /api/screener/saved", s.handleListSavedScreeners)
	mux.HandleFunc("POST /api/screener/run", s.handleRunScreener)
	mux.HandleFunc("POST /api/screener/save", s.handleSaveScreener)
	mux.HandleFunc("DELETE /api/screener/saved/{id}", s.handleDeleteScreener)

	mux.HandleFunc("GET /api/options/symbols", s.handleOptionSymbols)
	mux.HandleFunc("GET /api/options/{symbol}/chain", s.handleOptionChain)
	mux.HandleFunc("GET /api/options/{symbol}/maxpain", s.handleMaxPain)
	mux.HandleFunc("GET /api/options/{symbol}/pcr", s.handlePCR)
	mux.HandleFunc("GET /api/options/{symbol}/oi", s.handleOIAnalysis)
	mux.HandleFunc("GET /api/options/{symbol}/ivpercentile", s.handleIVPercentile)

	mux.HandleFunc("GET /api/portfolio/holdings", s.handleListHoldings)
	mux.HandleFunc("PUT /api/portfolio/holdings/{symbol}", s.handleUpsertHolding)
	mux.HandleFunc("DELETE /api/portfolio/holdings/{symbol}", s.handleDeleteHolding)
	mux.HandleFunc("GET /api/portfolio/summary", s.handlePortfolioSummary)
	mux.HandleFunc("GET /api/portfolio/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/portfolio/transactions", s.handleAddTransaction)

	mux.HandleFunc("GET /api/signals", s.handleListSignals)
	mux.HandleFunc("GET /api/signals/{symbol}", s.handleSignalsBySymbol)
	mux.HandleFunc("POST /api/signals/{id}/action", s.handleSignalAction)

	mux.HandleFunc("GET /api/market/summary", s.handleMarketSummary)
	mux.HandleFunc("GET /api/market/price/{symbol}", s.handleMarketPrice)
	mux.HandleFunc("GET /api/market/breadth", s.handleMarketBreadth)

	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/health/{symbol}", s.handleHealth)

	if s.quotesHub != nil {
		mux.Handle("GET /ws/quotes", s.quotesHub)
	}
}

// Handler returns the full API handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func queryInt(r *http.Request, key, alt string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" && alt != "" {
		s = r.URL.Query().Get(alt)
	}
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// --- watchlist ---

func (s *Server) watchlistResponse(r *http.Request) (*WatchlistResponse, error) {
	symbols, err := s.watchlist.GetWatchlist(r.Context())
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = []string{}
	}
	return &WatchlistResponse{Symbols: symbols, Count: len(symbols), Limit: s.watchlistLimit}, nil
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	resp, err := s.watchlistResponse(r)
	if err != nil {
		s.log.Error("loading watchlist", "error", err)
		writeError(w, http.StatusInternalServerError, "loading watchlist")
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	current, err := s.watchlist.GetWatchlist(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading watchlist")
		return
	}
	if len(current) >= s.watchlistLimit {
		writeError(w, http.StatusUnprocessableEntity, "watchlist is full")
		return
	}

	if err := s.watchlist.AddSymbol(r.Context(), symbol); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "symbol already on watchlist")
			return
		}
		s.log.Error("adding watchlist symbol", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "adding symbol")
		return
	}

	resp, err := s.watchlistResponse(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading watchlist")
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))

	if err := s.watchlist.RemoveSymbol(r.Context(), symbol); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "symbol not on watchlist")
			return
		}
		s.log.Error("removing watchlist symbol", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "removing symbol")
		return
	}

	resp, err := s.watchlistResponse(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading watchlist")
		return
	}
	writeJSON(w, resp)
}

// --- screener ---

func (s *Server) handleScreenerFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, screener.FilterFields())
}

func (s *Server) handleScreenerPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, screener.Presets())
}

func (s *Server) handleListSavedScreeners(w http.ResponseWriter, r *http.Request) {
	saved, err := s.screeners.ListSavedScreeners(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading saved screeners")
		return
	}
	if saved == nil {
		saved = []store.SavedScreener{}
	}
	writeJSON(w, saved)
}

func (s *Server) handleRunScreener(w http.ResponseWriter, r *http.Request) {
	var req RunScreenerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.engine.Run(r.Context(), req.Filters, req.Page, req.PerPage, req.SortBy, req.SortOrder)
	if err != nil {
		s.log.Error("running screener", "error", err)
		writeError(w, http.StatusInternalServerError, "running screener")
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleSaveScreener(w http.ResponseWriter, r *http.Request) {
	var req SaveScreenerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	filters, err := json.Marshal(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filters")
		return
	}

	saved := &store.SavedScreener{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Filters:   string(filters),
		CreatedAt: time.Now(),
	}
	if err := s.screeners.SaveScreener(r.Context(), saved); err != nil {
		writeError(w, http.StatusInternalServerError, "saving screener")
		return
	}
	writeJSON(w, saved)
}

func (s *Server) handleDeleteScreener(w http.ResponseWriter, r *http.Request) {
	if err := s.screeners.DeleteScreener(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "saved screener not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "deleting screener")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- options ---

func (s *Server) chainFor(w http.ResponseWriter, r *http.Request) *domain.OptionChain {
	symbol := r.PathValue("symbol")
	chain, ok := s.chains.Chain(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "no option chain for symbol")
		return nil
	}
	return chain
}

func (s *Server) handleOptionSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.chains.Symbols())
}

func (s *Server) handleOptionChain(w http.ResponseWriter, r *http.Request) {
	chain := s.chainFor(w, r)
	if chain == nil {
		return
	}
	depth := queryInt(r, "depth", "", 0)
	chain.Rows = options.ChainByStrikes(chain, depth)
	writeJSON(w, chain)
}

func (s *Server) handleMaxPain(w http.ResponseWriter, r *http.Request) {
	chain := s.chainFor(w, r)
	if chain == nil {
		return
	}
	writeJSON(w, options.MaxPain(chain))
}

func (s *Server) handlePCR(w http.ResponseWriter, r *http.Request) {
	chain := s.chainFor(w, r)
	if chain == nil {
		return
	}
	writeJSON(w, options.PCR(chain))
}

func (s *Server) handleOIAnalysis(w http.ResponseWriter, r *http.Request) {
	chain := s.chainFor(w, r)
	if chain == nil {
		return
	}
	writeJSON(w, options.OIAnalysis(chain, queryInt(r, "top", "", 3)))
}

func (s *Server) handleIVPercentile(w http.ResponseWriter, r *http.Request) {
	chain := s.chainFor(w, r)
	if chain == nil {
		return
	}

	history, err := s.ivs.IVHistory(r.Context(), chain.Symbol, 252)
	if err != nil {
		s.log.Error("loading IV history", "symbol", chain.Symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "loading IV history")
		return
	}

	iv := options.ATMIV(chain)
	writeJSON(w, IVPercentileResponse{
		Symbol:     chain.Symbol,
		ATMIV:      iv,
		Percentile: options.IVPercentile(iv, history),
		Samples:    len(history),
	})
}

// --- portfolio ---

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.portfolio.ListHoldings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading holdings")
		return
	}
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	writeJSON(w, holdings)
}

func (s *Server) handleUpsertHolding(w http.ResponseWriter, r *http.Request) {
	var h domain.Holding
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.Symbol = strings.ToUpper(r.PathValue("symbol"))
	if h.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if !h.AvgCost.IsPositive() {
		writeError(w, http.StatusBadRequest, "avgCost must be positive")
		return
	}
	h.UpdatedAt = time.Now()

	if err := s.portfolio.UpsertHolding(r.Context(), &h); err != nil {
		writeError(w, http.StatusInternalServerError, "saving holding")
		return
	}
	writeJSON(w, h)
}

func (s *Server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if err := s.portfolio.DeleteHolding(r.Context(), symbol); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "holding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "deleting holding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := portfolio.Summarize(r.Context(), s.portfolio, func(symbol string) (float64, bool) {
		q, ok := s.model.Quote(symbol)
		return q.Price, ok
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "building summary")
		return
	}
	writeJSON(w, sum)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", "", 1)
	perPage := queryInt(r, "limit", "perPage", 20)

	txns, total, err := s.portfolio.ListTransactions(r.Context(), page, perPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading transactions")
		return
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	writeJSON(w, TransactionsResponse{Transactions: txns, Total: total, Page: page, PerPage: perPage})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var t domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Date.IsZero() {
		t.Date = time.Now()
	}

	if err := portfolio.ApplyTransaction(r.Context(), s.portfolio, &t); err != nil {
		if errors.Is(err, portfolio.ErrOversell) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.log.Error("applying transaction", "symbol", t.Symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "applying transaction")
		return
	}
	writeJSON(w, t)
}

// --- signals ---

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := s.signals.ListSignals(r.Context(), queryInt(r, "limit", "", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading signals")
		return
	}
	if signals == nil {
		signals = []domain.Signal{}
	}
	writeJSON(w, signals)
}

func (s *Server) handleSignalsBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	signals, err := s.signals.ListSignalsBySymbol(r.Context(), symbol, queryInt(r, "limit", "", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading signals")
		return
	}
	if signals == nil {
		signals = []domain.Signal{}
	}
	writeJSON(w, signals)
}

func (s *Server) handleSignalAction(w http.ResponseWriter, r *http.Request) {
	var req SignalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action := domain.SignalAction(req.Action)
	if !domain.ValidSignalAction(action) {
		writeError(w, http.StatusBadRequest, "action must be ignored, reviewed, or traded")
		return
	}

	if err := s.signals.SetSignalAction(r.Context(), r.PathValue("id"), action); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "signal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "updating signal")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- market ---

func (s *Server) handleMarketSummary(w http.ResponseWriter, r *http.Request) {
	indices := s.model.Indices()
	if indices == nil {
		indices = []domain.IndexQuote{}
	}
	writeJSON(w, MarketSummaryResponse{
		Indices:    indices,
		Breadth:    health.ComputeBreadth(s.model.Quotes()),
		MarketOpen: s.calendar.IsMarketOpen(time.Now()),
	})
}

func (s *Server) handleMarketPrice(w http.ResponseWriter, r *http.Request) {
	q, ok := s.model.Quote(r.PathValue("symbol"))
	if !ok {
		writeError(w, http.StatusNotFound, "no quote for symbol")
		return
	}
	writeJSON(w, q)
}

func (s *Server) handleMarketBreadth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, health.ComputeBreadth(s.model.Quotes()))
}

// --- news ---

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", "", 1)
	perPage := queryInt(r, "limit", "perPage", s.newsPageSize)

	articles, total := s.feed.Page(page, perPage, r.URL.Query().Get("category"), r.URL.Query().Get("q"))
	writeJSON(w, NewsResponse{
		Articles: articles,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastSync: s.feed.LastSync(),
	})
}

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	card, err := s.scorer.Score(r.Context(), strings.ToUpper(r.PathValue("symbol")))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown symbol")
			return
		}
		writeError(w, http.StatusInternalServerError, "scoring symbol")
		return
	}
	writeJSON(w, card)
}
