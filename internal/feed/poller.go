package feed

import (
	"context"
	"log/slog"
	"time"

	"marketdesk/internal/domain"
	"marketdesk/internal/live"
	"marketdesk/internal/options"
	"marketdesk/internal/store"
	"marketdesk/internal/util"
)

// chainSymbols are the F&O underlyings polled every cycle regardless of the
// watchlist.
var chainSymbols = []string{"NIFTY", "BANKNIFTY"}

// Poller drives the refresh cycle: during market hours it pulls quotes for
// the watchlist and holdings, index levels, and option chains, pushing them
// into the live model and the chain snapshot store. Once per day it records
// the at-the-money IV of each chain and gathers daily bars and fundamentals
// into persistent storage for the screener, health scoring, and signal
// generation.
type Poller struct {
	client       *Client
	watchlist    store.WatchlistStore
	portfolio    store.PortfolioStore
	ivs          store.IVStore
	bars         store.BarStore
	fundamentals store.FundamentalsStore
	model        *live.QuoteModel
	chains       *options.SnapshotStore
	calendar     *util.TradingCalendar
	riskFreeRate float64
	interval     time.Duration
	maxRetries   int
	log          *slog.Logger

	ivRecorded map[string]string // symbol → date IV last recorded
	gathered   map[string]string // symbol → date bars/fundamentals last gathered
}

// PollerDeps carries everything a Poller feeds from and into.
type PollerDeps struct {
	Client       *Client
	Watchlist    store.WatchlistStore
	Portfolio    store.PortfolioStore
	IVs          store.IVStore
	Bars         store.BarStore
	Fundamentals store.FundamentalsStore
	Model        *live.QuoteModel
	Chains       *options.SnapshotStore
	RiskFreeRate float64
	Interval     time.Duration
	MaxRetries   int
	Log          *slog.Logger
}

// NewPoller wires a Poller. Interval is the gap between refresh cycles.
func NewPoller(d PollerDeps) *Poller {
	return &Poller{
		client:       d.Client,
		watchlist:    d.Watchlist,
		portfolio:    d.Portfolio,
		ivs:          d.IVs,
		bars:         d.Bars,
		fundamentals: d.Fundamentals,
		model:        d.Model,
		chains:       d.Chains,
		calendar:     util.NewTradingCalendar(),
		riskFreeRate: d.RiskFreeRate,
		interval:     d.Interval,
		maxRetries:   d.MaxRetries,
		log:          d.Log,
		ivRecorded:   make(map[string]string),
		gathered:     make(map[string]string),
	}
}

// Run polls until ctx is cancelled. The first cycle runs immediately so the
// dashboard has data at startup even outside market hours.
func (p *Poller) Run(ctx context.Context) error {
	p.cycle(ctx, true)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx, false)
		}
	}
}

func (p *Poller) cycle(ctx context.Context, force bool) {
	now := time.Now()
	if !force && !p.calendar.IsMarketOpen(now) {
		return
	}

	p.refreshQuotes(ctx)
	p.refreshIndices(ctx)
	p.refreshChains(ctx, now)
	p.gatherDaily(ctx, now)
}

// trackedSymbols is the union of watchlist and holdings symbols, watchlist
// order first.
func (p *Poller) trackedSymbols(ctx context.Context) []string {
	symbols, err := p.watchlist.GetWatchlist(ctx)
	if err != nil {
		p.log.Error("loading watchlist", "error", err)
	}

	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		seen[s] = true
	}

	holdings, err := p.portfolio.ListHoldings(ctx)
	if err != nil {
		p.log.Error("loading holdings", "error", err)
		return symbols
	}
	for _, h := range holdings {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			symbols = append(symbols, h.Symbol)
		}
	}
	return symbols
}

func (p *Poller) refreshQuotes(ctx context.Context) {
	symbols := p.trackedSymbols(ctx)
	if len(symbols) == 0 {
		return
	}

	var quotes []domain.Quote
	err := util.Retry(ctx, p.maxRetries, time.Second, func() error {
		var err error
		quotes, err = p.client.Quotes(ctx, symbols)
		return err
	})
	if err != nil {
		p.log.Warn("quote refresh failed", "symbols", len(symbols), "error", err)
		return
	}
	for _, q := range quotes {
		p.model.SetQuote(q)
	}
	p.log.Debug("quotes refreshed", "count", len(quotes))
}

func (p *Poller) refreshIndices(ctx context.Context) {
	var indices []domain.IndexQuote
	err := util.Retry(ctx, p.maxRetries, time.Second, func() error {
		var err error
		indices, err = p.client.Indices(ctx)
		return err
	})
	if err != nil {
		p.log.Warn("index refresh failed", "error", err)
		return
	}
	for _, iq := range indices {
		p.model.SetIndex(iq)
	}
}

func (p *Poller) refreshChains(ctx context.Context, now time.Time) {
	date := now.In(util.ISTLocation()).Format("2006-01-02")

	for _, sym := range chainSymbols {
		var chain *domain.OptionChain
		err := util.Retry(ctx, p.maxRetries, time.Second, func() error {
			var err error
			chain, err = p.client.OptionChain(ctx, sym)
			return err
		})
		if err != nil {
			p.log.Warn("chain refresh failed", "symbol", sym, "error", err)
			continue
		}
		options.FillGreeks(chain, p.riskFreeRate, now)
		p.chains.Set(*chain)
		p.recordATMIV(ctx, chain, date)
	}
}

// recordATMIV stores the chain's at-the-money IV once per trading day.
func (p *Poller) recordATMIV(ctx context.Context, chain *domain.OptionChain, date string) {
	if p.ivRecorded[chain.Symbol] == date {
		return
	}
	iv := options.ATMIV(chain)
	if iv <= 0 {
		return
	}
	if err := p.ivs.RecordIV(ctx, chain.Symbol, date, iv); err != nil {
		p.log.Error("recording ATM IV", "symbol", chain.Symbol, "error", err)
		return
	}
	p.ivRecorded[chain.Symbol] = date
	p.log.Info("ATM IV recorded", "symbol", chain.Symbol, "date", date, "iv", iv)
}

// gatherDaily persists a year of daily bars and the current fundamentals row
// for each tracked symbol, once per trading day. The screener, health
// scorer, and signal rules all read from these stores.
func (p *Poller) gatherDaily(ctx context.Context, now time.Time) {
	date := now.In(util.ISTLocation()).Format("2006-01-02")
	end := now
	start := end.AddDate(-1, -1, 0) // a year plus indicator warmup

	for _, symbol := range p.trackedSymbols(ctx) {
		if p.gathered[symbol] == date {
			continue
		}

		var bars []domain.Bar
		err := util.Retry(ctx, p.maxRetries, time.Second, func() error {
			var err error
			bars, err = p.client.DailyBars(ctx, symbol, start, end)
			return err
		})
		if err != nil {
			p.log.Warn("bar gather failed", "symbol", symbol, "error", err)
			continue
		}
		if len(bars) > 0 {
			if err := p.bars.WriteBars(ctx, bars); err != nil {
				p.log.Error("writing bars", "symbol", symbol, "error", err)
				continue
			}
		}

		var f *domain.Fundamentals
		err = util.Retry(ctx, p.maxRetries, time.Second, func() error {
			var err error
			f, err = p.client.Fundamentals(ctx, symbol)
			return err
		})
		if err != nil {
			p.log.Warn("fundamentals gather failed", "symbol", symbol, "error", err)
			continue
		}
		if err := p.fundamentals.UpsertFundamentals(ctx, f); err != nil {
			p.log.Error("upserting fundamentals", "symbol", symbol, "error", err)
			continue
		}

		p.gathered[symbol] = date
		p.log.Info("daily data gathered", "symbol", symbol, "date", date, "bars", len(bars))
	}
}
