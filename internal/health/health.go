// Package health grades individual stocks on valuation, profitability,
// leverage, liquidity, and 52-week momentum, and summarizes market breadth.
package health

import (
	"context"
	"fmt"
	"time"

	"marketdesk/internal/domain"
	"marketdesk/internal/store"
)

// CheckStatus is the outcome of one scorecard check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check is one graded line of a scorecard.
type Check struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail"`
}

// Scorecard is the overall health of one stock.
type Scorecard struct {
	Symbol string  `json:"symbol"`
	Score  int     `json:"score"` // 0..100
	Grade  string  `json:"grade"` // A..F
	Checks []Check `json:"checks"`
}

// RangeStats supplies the trailing 52-week high/low from stored bars.
// ok=false means no bar history exists for the symbol.
type RangeStats interface {
	Stats52W(ctx context.Context, symbol string, asOf time.Time) (high, low float64, ok bool)
}

// Scorer builds scorecards from the security master, preferring bar-derived
// 52-week ranges when history is available.
type Scorer struct {
	fundamentals store.FundamentalsStore
	ranges       RangeStats
}

// NewScorer creates a Scorer. ranges may be nil; the 52-week check then uses
// the high/low carried on the fundamentals row.
func NewScorer(fundamentals store.FundamentalsStore, ranges RangeStats) *Scorer {
	return &Scorer{fundamentals: fundamentals, ranges: ranges}
}

// Score grades one symbol. Returns store.ErrNotFound for unknown symbols.
func (s *Scorer) Score(ctx context.Context, symbol string) (*Scorecard, error) {
	f, err := s.fundamentals.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}

	high, low := f.High52W, f.Low52W
	if s.ranges != nil {
		if h, l, ok := s.ranges.Stats52W(ctx, symbol, time.Now()); ok {
			high, low = h, l
		}
	}

	checks := []Check{
		checkPE(f.PERatio),
		checkPB(f.PBRatio),
		checkROE(f.ROE),
		checkDebt(f.DebtToEquity),
		checkLiquidity(f.CurrentRatio),
		check52W(f.Price, high, low),
	}

	card := &Scorecard{Symbol: f.Symbol, Checks: checks}
	total := 0
	for _, c := range checks {
		switch c.Status {
		case StatusPass:
			total += 100
		case StatusWarn:
			total += 50
		}
	}
	card.Score = total / len(checks)
	card.Grade = gradeFor(card.Score)
	return card, nil
}

func gradeFor(score int) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 65:
		return "B"
	case score >= 50:
		return "C"
	case score >= 35:
		return "D"
	default:
		return "F"
	}
}

func checkPE(pe float64) Check {
	c := Check{Name: "valuation", Detail: fmt.Sprintf("P/E %.1f", pe)}
	switch {
	case pe <= 0:
		c.Status = StatusFail
		c.Detail = "loss-making or no earnings data"
	case pe <= 25:
		c.Status = StatusPass
	case pe <= 40:
		c.Status = StatusWarn
	default:
		c.Status = StatusFail
	}
	return c
}

func checkPB(pb float64) Check {
	c := Check{Name: "price_to_book", Detail: fmt.Sprintf("P/B %.1f", pb)}
	switch {
	case pb <= 0:
		c.Status = StatusWarn
		c.Detail = "no book value data"
	case pb <= 3:
		c.Status = StatusPass
	case pb <= 8:
		c.Status = StatusWarn
	default:
		c.Status = StatusFail
	}
	return c
}

func checkROE(roe float64) Check {
	c := Check{Name: "profitability", Detail: fmt.Sprintf("ROE %.1f%%", roe)}
	switch {
	case roe >= 15:
		c.Status = StatusPass
	case roe >= 8:
		c.Status = StatusWarn
	default:
		c.Status = StatusFail
	}
	return c
}

func checkDebt(de float64) Check {
	c := Check{Name: "leverage", Detail: fmt.Sprintf("D/E %.2f", de)}
	switch {
	case de < 0:
		c.Status = StatusWarn
		c.Detail = "no debt data"
	case de <= 1:
		c.Status = StatusPass
	case de <= 2:
		c.Status = StatusWarn
	default:
		c.Status = StatusFail
	}
	return c
}

func checkLiquidity(cr float64) Check {
	c := Check{Name: "liquidity", Detail: fmt.Sprintf("current ratio %.2f", cr)}
	switch {
	case cr >= 1.5:
		c.Status = StatusPass
	case cr >= 1:
		c.Status = StatusWarn
	default:
		c.Status = StatusFail
	}
	return c
}

// check52W grades where the price sits in its 52-week range. Trading in the
// upper half passes; the bottom quarter fails.
func check52W(price, high, low float64) Check {
	c := Check{Name: "momentum"}
	if high <= low || price <= 0 {
		c.Status = StatusWarn
		c.Detail = "insufficient range data"
		return c
	}
	pos := (price - low) / (high - low) * 100
	c.Detail = fmt.Sprintf("%.0f%% of 52-week range", pos)
	switch {
	case pos >= 50:
		c.Status = StatusPass
	case pos >= 25:
		c.Status = StatusWarn
	default:
		c.Status = StatusFail
	}
	return c
}

// Breadth counts advancing, declining, and unchanged symbols from a set of
// live quotes.
type Breadth struct {
	Advancing int `json:"advancing"`
	Declining int `json:"declining"`
	Unchanged int `json:"unchanged"`
}

// ComputeBreadth tallies breadth over quotes.
func ComputeBreadth(quotes []domain.Quote) Breadth {
	var b Breadth
	for _, q := range quotes {
		switch {
		case q.Change > 0:
			b.Advancing++
		case q.Change < 0:
			b.Declining++
		default:
			b.Unchanged++
		}
	}
	return b
}
