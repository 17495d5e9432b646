// Package domain defines the shared domain types of the marketdesk platform:
// quotes, bars, fundamentals, portfolio holdings and transactions, signals,
// option chains, and news articles.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Exchange identifies the venue a symbol trades on.
type Exchange string

const (
	ExchangeNSE Exchange = "NSE"
	ExchangeBSE Exchange = "BSE"
)

// Quote is the latest traded price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Exchange  Exchange  `json:"exchange"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"changePct"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexQuote is the latest level of a market index (NIFTY 50, BANK NIFTY...).
type IndexQuote struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
}

// Bar is a single OHLCV daily bar.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Fundamentals holds the per-company ratios the screener filters on.
type Fundamentals struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	MarketCap     float64 `json:"marketCap"` // INR crores
	PERatio       float64 `json:"peRatio"`
	PBRatio       float64 `json:"pbRatio"`
	ROE           float64 `json:"roe"` // percent
	DividendYield float64 `json:"dividendYield"`
	DebtToEquity  float64 `json:"debtToEquity"`
	CurrentRatio  float64 `json:"currentRatio"`
	High52W       float64 `json:"high52w"`
	Low52W        float64 `json:"low52w"`
	Price         float64 `json:"price"`
	FnOEligible   bool    `json:"fnoEligible"`
}

// Holding is a portfolio position in a single symbol.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	AvgCost   decimal.Decimal `json:"avgCost"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// TransactionType enumerates portfolio transaction kinds.
type TransactionType string

const (
	TxnBuy      TransactionType = "BUY"
	TxnSell     TransactionType = "SELL"
	TxnDividend TransactionType = "DIVIDEND"
)

// Transaction is a single portfolio ledger entry. Required fields differ by
// type: BUY and SELL need a positive quantity and price; DIVIDEND needs a
// positive amount.
type Transaction struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Type     TransactionType `json:"type"`
	Quantity int64           `json:"quantity,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
	Amount   decimal.Decimal `json:"amount,omitempty"`
	Date     time.Time       `json:"date"`
	Notes    string          `json:"notes,omitempty"`
}

// Validate checks the per-type required fields of a transaction.
func (t *Transaction) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("transaction: symbol required")
	}
	switch t.Type {
	case TxnBuy, TxnSell:
		if t.Quantity <= 0 {
			return fmt.Errorf("transaction %s: quantity must be positive", t.Type)
		}
		if !t.Price.IsPositive() {
			return fmt.Errorf("transaction %s: price must be positive", t.Type)
		}
	case TxnDividend:
		if !t.Amount.IsPositive() {
			return fmt.Errorf("transaction DIVIDEND: amount must be positive")
		}
	default:
		return fmt.Errorf("transaction: unknown type %q", t.Type)
	}
	return nil
}

// SignalType enumerates signal directions.
type SignalType string

const (
	SignalTypeBuy  SignalType = "buy"
	SignalTypeSell SignalType = "sell"
)

// SignalAction enumerates what the user did with a signal.
type SignalAction string

const (
	ActionIgnored  SignalAction = "ignored"
	ActionReviewed SignalAction = "reviewed"
	ActionTraded   SignalAction = "traded"
)

// ValidSignalAction reports whether a is one of the known action values.
func ValidSignalAction(a SignalAction) bool {
	switch a {
	case ActionIgnored, ActionReviewed, ActionTraded:
		return true
	}
	return false
}

// Signal is a server-generated trade idea surfaced on the dashboard.
type Signal struct {
	ID        string       `json:"id"`
	Symbol    string       `json:"symbol"`
	Type      SignalType   `json:"type"`
	Strength  float64      `json:"strength"` // 0..1
	Reason    string       `json:"reason,omitempty"`
	Action    SignalAction `json:"action,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// NewsArticle is a single feed item.
type NewsArticle struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Category string    `json:"category,omitempty"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary,omitempty"`
	URL      string    `json:"url,omitempty"`
}

// OptionQuote is one side (call or put) of a strike row.
type OptionQuote struct {
	LTP      float64 `json:"ltp"`
	IV       float64 `json:"iv"` // annualized, e.g. 0.18
	OI       int64   `json:"oi"`
	OIChange int64   `json:"oiChange"`
	Volume   int64   `json:"volume"`
	Delta    float64 `json:"delta"`
	Gamma    float64 `json:"gamma"`
	Theta    float64 `json:"theta"`
	Vega     float64 `json:"vega"`
}

// StrikeRow pairs the call and put quotes at one strike.
type StrikeRow struct {
	Strike float64     `json:"strike"`
	Call   OptionQuote `json:"call"`
	Put    OptionQuote `json:"put"`
}

// OptionChain is a full chain snapshot for one underlying and expiry.
type OptionChain struct {
	Symbol    string      `json:"symbol"`
	Expiry    string      `json:"expiry"` // YYYY-MM-DD
	Spot      float64     `json:"spot"`
	Rows      []StrikeRow `json:"rows"`
	Timestamp time.Time   `json:"timestamp"`
}
