package marketdesk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Watchlist is the server's watchlist resource. Count always equals
// len(Symbols); Limit is the server-enforced capacity.
type Watchlist struct {
	Symbols []string `json:"symbols"`
	Count   int      `json:"count"`
	Limit   int      `json:"limit"`
}

// Quote is the latest traded price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Exchange  string    `json:"exchange"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"changePct"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexQuote is the latest level of a market index.
type IndexQuote struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
}

// Breadth counts advancing, declining, and unchanged tracked symbols.
type Breadth struct {
	Advancing int `json:"advancing"`
	Declining int `json:"declining"`
	Unchanged int `json:"unchanged"`
}

// MarketSummary is the dashboard header payload.
type MarketSummary struct {
	Indices    []IndexQuote `json:"indices"`
	Breadth    Breadth      `json:"breadth"`
	MarketOpen bool         `json:"marketOpen"`
}

// ScreenerFilters mirrors the screener request payload. Nil bounds are
// unconstrained.
type ScreenerFilters struct {
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
	Near52WHighPct  *float64 `json:"near_52w_high_pct,omitempty"`
	Near52WLowPct   *float64 `json:"near_52w_low_pct,omitempty"`
	Sectors         []string `json:"sectors,omitempty"`
	FnOOnly         bool     `json:"fno_only,omitempty"`
}

// FilterField describes one screener filter control.
type FilterField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// ScreenerPreset is a canned filter set.
type ScreenerPreset struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Filters     ScreenerFilters `json:"filters"`
}

// ScreenerRow is one matching stock.
type ScreenerRow struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	MarketCap     float64 `json:"marketCap"`
	PERatio       float64 `json:"peRatio"`
	PBRatio       float64 `json:"pbRatio"`
	ROE           float64 `json:"roe"`
	DividendYield float64 `json:"dividendYield"`
	DebtToEquity  float64 `json:"debtToEquity"`
	CurrentRatio  float64 `json:"currentRatio"`
	High52W       float64 `json:"high52w"`
	Low52W        float64 `json:"low52w"`
	Price         float64 `json:"price"`
	FnOEligible   bool    `json:"fnoEligible"`
}

// ScreenerResult is one page of screener output.
type ScreenerResult struct {
	Rows    []ScreenerRow `json:"results"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"perPage"`
}

// SavedScreener is a persisted named filter set.
type SavedScreener struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Filters   string    `json:"filters"`
	CreatedAt time.Time `json:"createdAt"`
}

// OptionQuote is one side of a strike row.
type OptionQuote struct {
	LTP      float64 `json:"ltp"`
	IV       float64 `json:"iv"`
	OI       int64   `json:"oi"`
	OIChange int64   `json:"oiChange"`
	Volume   int64   `json:"volume"`
	Delta    float64 `json:"delta"`
	Gamma    float64 `json:"gamma"`
	Theta    float64 `json:"theta"`
	Vega     float64 `json:"vega"`
}

// StrikeRow pairs call and put quotes at one strike.
type StrikeRow struct {
	Strike float64     `json:"strike"`
	Call   OptionQuote `json:"call"`
	Put    OptionQuote `json:"put"`
}

// OptionChain is a chain snapshot for one underlying.
type OptionChain struct {
	Symbol    string      `json:"symbol"`
	Expiry    string      `json:"expiry"`
	Spot      float64     `json:"spot"`
	Rows      []StrikeRow `json:"rows"`
	Timestamp time.Time   `json:"timestamp"`
}

// MaxPain is the writer-payout-minimizing expiry strike and its curve.
type MaxPain struct {
	Strike float64            `json:"strike"`
	Pain   map[string]float64 `json:"pain"`
}

// PCR holds put-call ratios by open interest and volume.
type PCR struct {
	OIPCR     float64 `json:"oiPcr"`
	VolumePCR float64 `json:"volumePcr"`
}

// OILevel is one strike ranked by open interest.
type OILevel struct {
	Strike   float64 `json:"strike"`
	OI       int64   `json:"oi"`
	OIChange int64   `json:"oiChange"`
}

// OIAnalysis summarizes open-interest concentration.
type OIAnalysis struct {
	Resistances  []OILevel `json:"resistances"`
	Supports     []OILevel `json:"supports"`
	CallOITotal  int64     `json:"callOiTotal"`
	PutOITotal   int64     `json:"putOiTotal"`
	CallOIChange int64     `json:"callOiChange"`
	PutOIChange  int64     `json:"putOiChange"`
}

// IVPercentile ranks the current ATM IV against stored history.
type IVPercentile struct {
	Symbol     string  `json:"symbol"`
	ATMIV      float64 `json:"atmIv"`
	Percentile float64 `json:"percentile"`
	Samples    int     `json:"samples"`
}

// Holding is a portfolio position.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	AvgCost   decimal.Decimal `json:"avgCost"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Transaction is one portfolio ledger entry.
type Transaction struct {
	ID       string          `json:"id,omitempty"`
	Symbol   string          `json:"symbol"`
	Type     string          `json:"type"` // BUY, SELL, DIVIDEND
	Quantity int64           `json:"quantity,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
	Amount   decimal.Decimal `json:"amount,omitempty"`
	Date     time.Time       `json:"date,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// Transactions is one page of the ledger.
type Transactions struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	PerPage      int           `json:"perPage"`
}

// Position is one valued holding in the portfolio summary.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avgCost"`
	Price    decimal.Decimal `json:"price"`
	Invested decimal.Decimal `json:"invested"`
	Value    decimal.Decimal `json:"value"`
	PnL      decimal.Decimal `json:"pnl"`
	PnLPct   decimal.Decimal `json:"pnlPct"`
}

// PortfolioSummary values the whole book.
type PortfolioSummary struct {
	Positions []Position      `json:"positions"`
	Invested  decimal.Decimal `json:"invested"`
	Value     decimal.Decimal `json:"value"`
	PnL       decimal.Decimal `json:"pnl"`
	PnLPct    decimal.Decimal `json:"pnlPct"`
}

// Signal is a server-generated trade idea.
type Signal struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Type      string    `json:"type"`
	Strength  float64   `json:"strength"`
	Reason    string    `json:"reason,omitempty"`
	Action    string    `json:"action,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewsArticle is one feed item.
type NewsArticle struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Category string    `json:"category,omitempty"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary,omitempty"`
	URL      string    `json:"url,omitempty"`
}

// News is one page of the aggregated feed. LastSync is zero until the
// server's first refresh completes.
type News struct {
	Articles []NewsArticle `json:"articles"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PerPage  int           `json:"perPage"`
	LastSync time.Time     `json:"lastSync"`
}

// HealthCheck is one graded line of a scorecard.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// HealthScorecard is the overall health of one stock.
type HealthScorecard struct {
	Symbol string        `json:"symbol"`
	Score  int           `json:"score"`
	Grade  string        `json:"grade"`
	Checks []HealthCheck `json:"checks"`
}
