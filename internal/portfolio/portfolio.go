// Package portfolio implements the money math of the holdings tracker:
// applying ledger transactions to positions and valuing the book against
// live prices. All cash arithmetic uses decimals; float64 never touches a
// rupee amount until presentation.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marketdesk/internal/domain"
	"marketdesk/internal/store"
)

// ErrOversell is returned when a SELL exceeds the held quantity.
var ErrOversell = errors.New("portfolio: sell quantity exceeds holding")

// ApplyTransaction records t in the ledger and updates the affected holding.
// BUY opens or averages into a position; SELL reduces it and closes it at
// zero; DIVIDEND is ledger-only. The transaction must already be validated.
func ApplyTransaction(ctx context.Context, s store.PortfolioStore, t *domain.Transaction) error {
	t.Symbol = strings.ToUpper(t.Symbol)

	switch t.Type {
	case domain.TxnBuy:
		if err := applyBuy(ctx, s, t); err != nil {
			return err
		}
	case domain.TxnSell:
		if err := applySell(ctx, s, t); err != nil {
			return err
		}
	case domain.TxnDividend:
		// No position change.
	}

	return s.AddTransaction(ctx, t)
}

func applyBuy(ctx context.Context, s store.PortfolioStore, t *domain.Transaction) error {
	h, err := s.GetHolding(ctx, t.Symbol)
	if errors.Is(err, store.ErrNotFound) {
		h = &domain.Holding{Symbol: t.Symbol}
	} else if err != nil {
		return err
	}

	oldQty := decimal.NewFromInt(h.Quantity)
	addQty := decimal.NewFromInt(t.Quantity)
	newQty := oldQty.Add(addQty)

	// Weighted average cost over the combined position.
	totalCost := h.AvgCost.Mul(oldQty).Add(t.Price.Mul(addQty))
	h.AvgCost = totalCost.DivRound(newQty, 4)
	h.Quantity += t.Quantity
	h.UpdatedAt = time.Now()
	return s.UpsertHolding(ctx, h)
}

func applySell(ctx context.Context, s store.PortfolioStore, t *domain.Transaction) error {
	h, err := s.GetHolding(ctx, t.Symbol)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: no position in %s", ErrOversell, t.Symbol)
	} else if err != nil {
		return err
	}
	if t.Quantity > h.Quantity {
		return fmt.Errorf("%w: have %d, selling %d", ErrOversell, h.Quantity, t.Quantity)
	}

	h.Quantity -= t.Quantity
	if h.Quantity == 0 {
		return s.DeleteHolding(ctx, t.Symbol)
	}
	h.UpdatedAt = time.Now()
	return s.UpsertHolding(ctx, h)
}

// PriceFunc resolves the live price for a symbol; ok=false when no quote is
// available, in which case the position is valued at cost.
type PriceFunc func(symbol string) (float64, bool)

// Position is one valued holding.
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

// Summary values the whole book.
type Summary struct {
	Positions []Position      `json:"positions"`
	Invested  decimal.Decimal `json:"invested"`
	Value     decimal.Decimal `json:"value"`
	PnL       decimal.Decimal `json:"pnl"`
	PnLPct    decimal.Decimal `json:"pnlPct"`
}

// Summarize values all holdings against live prices.
func Summarize(ctx context.Context, s store.PortfolioStore, price PriceFunc) (*Summary, error) {
	holdings, err := s.ListHoldings(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Positions: make([]Position, 0, len(holdings))}
	for _, h := range holdings {
		qty := decimal.NewFromInt(h.Quantity)
		px := h.AvgCost
		if p, ok := price(h.Symbol); ok {
			px = decimal.NewFromFloat(p)
		}

		pos := Position{
			Symbol:   h.Symbol,
			Quantity: h.Quantity,
			AvgCost:  h.AvgCost,
			Price:    px,
			Invested: h.AvgCost.Mul(qty),
			Value:    px.Mul(qty),
		}
		pos.PnL = pos.Value.Sub(pos.Invested)
		if pos.Invested.IsPositive() {
			pos.PnLPct = pos.PnL.Div(pos.Invested).Mul(decimal.NewFromInt(100)).Round(2)
		}
		sum.Positions = append(sum.Positions, pos)

		sum.Invested = sum.Invested.Add(pos.Invested)
		sum.Value = sum.Value.Add(pos.Value)
	}

	sum.PnL = sum.Value.Sub(sum.Invested)
	if sum.Invested.IsPositive() {
		sum.PnLPct = sum.PnL.Div(sum.Invested).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return sum, nil
}
