// Package screener implements the stock screener: a filter set over the
// fundamentals security master, with pagination and sorting.
package screener

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"marketdesk/internal/domain"
	"marketdesk/internal/store"
)

// Filters is the screener filter set. Nil range bounds are unconstrained.
// Field names follow the request payload the dashboard submits.
type Filters struct {
	PEMin           *float64 `json:"pe_min,omitempty"`
	PEMax           *float64 `json:"pe_max,omitempty"`
	PBMin           *float64 `json:"pb_min,omitempty"`
	PBMax           *float64 `json:"pb_max,omitempty"`
	ROEMin          *float64 `json:"roe_min,omitempty"`
	ROEMax          *float64 `json:"roe_max,omitempty"`
	DivYieldMin     *float64 `json:"div_yield_min,omitempty"`
	DivYieldMax     *float64 `json:"div_yield_max,omitempty"`
	DebtEquityMin   *float64 `json:"debt_equity_min,omitempty"`
	DebtEquityMax   *float64 `json:"debt_equity_max,omitempty"`
	CurrentRatioMin *float64 `json:"current_ratio_min,omitempty"`
	CurrentRatioMax *float64 `json:"current_ratio_max,omitempty"`
	MarketCapMin    *float64 `json:"market_cap_min,omitempty"`
	MarketCapMax    *float64 `json:"market_cap_max,omitempty"`
	Near52WHighPct  *float64 `json:"near_52w_high_pct,omitempty"` // price within N% below the 52-week high
	Near52WLowPct   *float64 `json:"near_52w_low_pct,omitempty"`  // price within N% above the 52-week low
	Sectors         []string `json:"sectors,omitempty"`
	FnOOnly         bool     `json:"fno_only,omitempty"`
}

// Result is one page of screener output.
type Result struct {
	Rows    []domain.Fundamentals `json:"results"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"perPage"`
}

// Preset is a canned filter set surfaced on the screener page.
type Preset struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Filters     Filters `json:"filters"`
}

// FilterField describes one filter control for the dashboard's filter form.
type FilterField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Kind  string `json:"kind"` // "range", "multi", "flag"
}

// Engine runs screens against the fundamentals store.
type Engine struct {
	fundamentals store.FundamentalsStore
}

// NewEngine creates a screener engine backed by the given store.
func NewEngine(fs store.FundamentalsStore) *Engine {
	return &Engine{fundamentals: fs}
}

// FilterFields returns the filter metadata served by GET /api/screener/filters.
func FilterFields() []FilterField {
	return []FilterField{
		{Key: "pe", Label: "P/E Ratio", Kind: "range"},
		{Key: "pb", Label: "P/B Ratio", Kind: "range"},
		{Key: "roe", Label: "ROE %", Kind: "range"},
		{Key: "div_yield", Label: "Dividend Yield %", Kind: "range"},
		{Key: "debt_equity", Label: "Debt / Equity", Kind: "range"},
		{Key: "current_ratio", Label: "Current Ratio", Kind: "range"},
		{Key: "market_cap", Label: "Market Cap (Cr)", Kind: "range"},
		{Key: "near_52w_high_pct", Label: "Near 52W High %", Kind: "range"},
		{Key: "near_52w_low_pct", Label: "Near 52W Low %", Kind: "range"},
		{Key: "sectors", Label: "Sectors", Kind: "multi"},
		{Key: "fno_only", Label: "F&O Eligible Only", Kind: "flag"},
	}
}

// Presets returns the canned screens surfaced on the screener page.
func Presets() []Preset {
	f := func(v float64) *float64 { return &v }
	return []Preset{
		{
			Name:        "Value Picks",
			Description: "Low P/E, low P/B, positive earnings",
			Filters:     Filters{PEMin: f(1), PEMax: f(15), PBMax: f(2)},
		},
		{
			Name:        "Dividend Income",
			Description: "Yield above 3% with manageable leverage",
			Filters:     Filters{DivYieldMin: f(3), DebtEquityMax: f(1)},
		},
		{
			Name:        "Quality Compounders",
			Description: "High ROE, low debt",
			Filters:     Filters{ROEMin: f(18), DebtEquityMax: f(0.5)},
		},
		{
			Name:        "Near 52-Week Low",
			Description: "Trading within 10% of the 52-week low",
			Filters:     Filters{Near52WLowPct: f(10)},
		},
		{
			Name:        "F&O Universe",
			Description: "Derivative-eligible large caps",
			Filters:     Filters{FnOOnly: true, MarketCapMin: f(20000)},
		},
	}
}

// Run executes the screen and returns the requested page. sortBy accepts
// symbol, name, pe, pb, roe, div_yield, market_cap, price; sortOrder is
// "asc" or "desc". Total always reflects the full match count so the last
// page's len(results) is consistent with total and page math.
func (e *Engine) Run(ctx context.Context, f Filters, page, perPage int, sortBy, sortOrder string) (*Result, error) {
	all, err := e.fundamentals.ListFundamentals(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing fundamentals: %w", err)
	}

	matched := make([]domain.Fundamentals, 0, len(all))
	for i := range all {
		if matches(&f, &all[i]) {
			matched = append(matched, all[i])
		}
	}

	sortRows(matched, sortBy, sortOrder)

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}

	total := len(matched)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return &Result{
		Rows:    matched[start:end],
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func inRange(v float64, min, max *float64) bool {
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

func matches(f *Filters, row *domain.Fundamentals) bool {
	if !inRange(row.PERatio, f.PEMin, f.PEMax) {
		return false
	}
	if !inRange(row.PBRatio, f.PBMin, f.PBMax) {
		return false
	}
	if !inRange(row.ROE, f.ROEMin, f.ROEMax) {
		return false
	}
	if !inRange(row.DividendYield, f.DivYieldMin, f.DivYieldMax) {
		return false
	}
	if !inRange(row.DebtToEquity, f.DebtEquityMin, f.DebtEquityMax) {
		return false
	}
	if !inRange(row.CurrentRatio, f.CurrentRatioMin, f.CurrentRatioMax) {
		return false
	}
	if !inRange(row.MarketCap, f.MarketCapMin, f.MarketCapMax) {
		return false
	}
	if f.Near52WHighPct != nil {
		if row.High52W <= 0 || row.Price <= 0 {
			return false
		}
		below := (row.High52W - row.Price) / row.High52W * 100
		if below < 0 || below > *f.Near52WHighPct {
			return false
		}
	}
	if f.Near52WLowPct != nil {
		if row.Low52W <= 0 || row.Price <= 0 {
			return false
		}
		above := (row.Price - row.Low52W) / row.Low52W * 100
		if above < 0 || above > *f.Near52WLowPct {
			return false
		}
	}
	if len(f.Sectors) > 0 {
		found := false
		for _, s := range f.Sectors {
			if strings.EqualFold(s, row.Sector) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.FnOOnly && !row.FnOEligible {
		return false
	}
	return true
}

func sortRows(rows []domain.Fundamentals, sortBy, sortOrder string) {
	desc := strings.EqualFold(sortOrder, "desc")

	less := func(a, b *domain.Fundamentals) bool { return a.Symbol < b.Symbol }
	switch sortBy {
	case "", "symbol":
		// Default symbol ordering.
	case "name":
		less = func(a, b *domain.Fundamentals) bool { return a.Name < b.Name }
	case "pe":
		less = func(a, b *domain.Fundamentals) bool { return a.PERatio < b.PERatio }
	case "pb":
		less = func(a, b *domain.Fundamentals) bool { return a.PBRatio < b.PBRatio }
	case "roe":
		less = func(a, b *domain.Fundamentals) bool { return a.ROE < b.ROE }
	case "div_yield":
		less = func(a, b *domain.Fundamentals) bool { return a.DividendYield < b.DividendYield }
	case "market_cap":
		less = func(a, b *domain.Fundamentals) bool { return a.MarketCap < b.MarketCap }
	case "price":
		less = func(a, b *domain.Fundamentals) bool { return a.Price < b.Price }
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(&rows[j], &rows[i])
		}
		return less(&rows[i], &rows[j])
	})
}
