package screener

import (
	"context"
	"testing"

	"marketdesk/internal/domain"
)

// fakeFundamentals is an in-memory FundamentalsStore for engine tests.
type fakeFundamentals struct {
	rows []domain.Fundamentals
}

func (f *fakeFundamentals) UpsertFundamentals(_ context.Context, row *domain.Fundamentals) error {
	f.rows = append(f.rows, *row)
	return nil
}

func (f *fakeFundamentals) GetFundamentals(_ context.Context, symbol string) (*domain.Fundamentals, error) {
	for i := range f.rows {
		if f.rows[i].Symbol == symbol {
			return &f.rows[i], nil
		}
	}
	return nil, nil
}

func (f *fakeFundamentals) ListFundamentals(_ context.Context) ([]domain.Fundamentals, error) {
	out := make([]domain.Fundamentals, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func testUniverse() *fakeFundamentals {
	return &fakeFundamentals{rows: []domain.Fundamentals{
		{Symbol: "TCS", Name: "Tata Consultancy", Sector: "IT", PERatio: 28, PBRatio: 12, ROE: 45, DividendYield: 1.4, DebtToEquity: 0.1, CurrentRatio: 2.5, MarketCap: 1300000, High52W: 4500, Low52W: 3300, Price: 4100, FnOEligible: true},
		{Symbol: "INFY", Name: "Infosys", Sector: "IT", PERatio: 24, PBRatio: 7, ROE: 32, DividendYield: 2.6, DebtToEquity: 0.1, CurrentRatio: 2.4, MarketCap: 620000, High52W: 1980, Low52W: 1350, Price: 1490, FnOEligible: true},
		{Symbol: "WIPRO", Name: "Wipro", Sector: "IT", PERatio: 19, PBRatio: 3, ROE: 15, DividendYield: 0.2, DebtToEquity: 0.2, CurrentRatio: 2.1, MarketCap: 280000, High52W: 580, Low52W: 385, Price: 548, FnOEligible: true},
		{Symbol: "SBIN", Name: "State Bank of India", Sector: "Banking", PERatio: 10, PBRatio: 1.6, ROE: 17, DividendYield: 1.7, DebtToEquity: 0, CurrentRatio: 0, MarketCap: 730000, High52W: 912, Low52W: 600, Price: 820, FnOEligible: true},
		{Symbol: "ITC", Name: "ITC", Sector: "FMCG", PERatio: 26, PBRatio: 7.3, ROE: 28, DividendYield: 3.3, DebtToEquity: 0, CurrentRatio: 2.9, MarketCap: 520000, High52W: 500, Low52W: 390, Price: 415, FnOEligible: true},
		{Symbol: "LAURUSLAB", Name: "Laurus Labs", Sector: "Pharma", PERatio: 55, PBRatio: 6, ROE: 8, DividendYield: 0.2, DebtToEquity: 0.6, CurrentRatio: 1.2, MarketCap: 32000, High52W: 590, Low52W: 360, Price: 380, FnOEligible: false},
	}}
}

func TestRunRangeAndSectorFilter(t *testing.T) {
	e := NewEngine(testUniverse())
	f := func(v float64) *float64 { return &v }

	// Spec scenario: pe in [10,25], sector IT.
	res, err := e.Run(context.Background(), Filters{
		PEMin: f(10), PEMax: f(25), Sectors: []string{"IT"},
	}, 1, 25, "", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2 (INFY, WIPRO)", res.Total)
	}
	if res.Total != len(res.Rows) {
		t.Errorf("single-page total %d inconsistent with %d rows", res.Total, len(res.Rows))
	}
	for _, row := range res.Rows {
		if row.PERatio < 10 || row.PERatio > 25 {
			t.Errorf("%s: pe %v outside [10,25]", row.Symbol, row.PERatio)
		}
		if row.Sector != "IT" {
			t.Errorf("%s: sector %q, want IT", row.Symbol, row.Sector)
		}
	}
}

func TestRunPaginationTotals(t *testing.T) {
	e := NewEngine(testUniverse())

	// No filters: 6 rows, 4 per page.
	page1, err := e.Run(context.Background(), Filters{}, 1, 4, "symbol", "asc")
	if err != nil {
		t.Fatalf("Run page 1: %v", err)
	}
	page2, err := e.Run(context.Background(), Filters{}, 2, 4, "symbol", "asc")
	if err != nil {
		t.Fatalf("Run page 2: %v", err)
	}

	if page1.Total != 6 || page2.Total != 6 {
		t.Errorf("totals = %d, %d; want 6", page1.Total, page2.Total)
	}
	if len(page1.Rows) != 4 {
		t.Errorf("page 1 rows = %d, want 4", len(page1.Rows))
	}
	// Last page: total must be consistent with results length.
	if want := page2.Total - 4; len(page2.Rows) != want {
		t.Errorf("page 2 rows = %d, want %d", len(page2.Rows), want)
	}

	// Out-of-range page is empty, not an error.
	page9, err := e.Run(context.Background(), Filters{}, 9, 4, "", "")
	if err != nil {
		t.Fatalf("Run page 9: %v", err)
	}
	if len(page9.Rows) != 0 || page9.Total != 6 {
		t.Errorf("page 9 = %d rows total %d, want 0 rows total 6", len(page9.Rows), page9.Total)
	}
}

func TestRunSorting(t *testing.T) {
	e := NewEngine(testUniverse())

	res, err := e.Run(context.Background(), Filters{}, 1, 25, "market_cap", "desc")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := 1; i < len(res.Rows); i++ {
		if res.Rows[i].MarketCap > res.Rows[i-1].MarketCap {
			t.Errorf("rows not sorted by market_cap desc at %d: %v > %v",
				i, res.Rows[i].MarketCap, res.Rows[i-1].MarketCap)
		}
	}
	if res.Rows[0].Symbol != "TCS" {
		t.Errorf("largest cap = %s, want TCS", res.Rows[0].Symbol)
	}
}

func TestRunFnOAndProximityFilters(t *testing.T) {
	e := NewEngine(testUniverse())
	f := func(v float64) *float64 { return &v }

	res, err := e.Run(context.Background(), Filters{FnOOnly: true}, 1, 25, "", "")
	if err != nil {
		t.Fatalf("Run fno: %v", err)
	}
	for _, row := range res.Rows {
		if !row.FnOEligible {
			t.Errorf("%s not F&O eligible", row.Symbol)
		}
	}
	if res.Total != 5 {
		t.Errorf("fno total = %d, want 5", res.Total)
	}

	// Within 10% of 52-week low: LAURUSLAB (380 vs 360 → 5.6%), ITC (415 vs 390 → 6.4%).
	res, err = e.Run(context.Background(), Filters{Near52WLowPct: f(10)}, 1, 25, "symbol", "asc")
	if err != nil {
		t.Fatalf("Run near low: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("near-low total = %d (%v), want 2", res.Total, res.Rows)
	}
	if res.Rows[0].Symbol != "ITC" || res.Rows[1].Symbol != "LAURUSLAB" {
		t.Errorf("near-low rows = %v, want [ITC LAURUSLAB]", res.Rows)
	}

	// Within 10% of 52-week high: TCS (8.9%), WIPRO (5.5%), SBIN (10.1% — excluded).
	res, err = e.Run(context.Background(), Filters{Near52WHighPct: f(10)}, 1, 25, "symbol", "asc")
	if err != nil {
		t.Fatalf("Run near high: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("near-high total = %d (%v), want 2", res.Total, res.Rows)
	}
}

func TestPresetsAreRunnable(t *testing.T) {
	e := NewEngine(testUniverse())
	for _, p := range Presets() {
		if _, err := e.Run(context.Background(), p.Filters, 1, 25, "", ""); err != nil {
			t.Errorf("preset %q: Run returned %v", p.Name, err)
		}
	}
	if len(FilterFields()) == 0 {
		t.Error("FilterFields returned no fields")
	}
}
