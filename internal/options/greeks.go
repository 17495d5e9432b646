package options

import (
	"math"
	"time"

	"marketdesk/internal/domain"
)

// Greeks holds the Black-Scholes sensitivities of a single option.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64 // per calendar day
	Vega  float64 // per 1% change in vol
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// ComputeGreeks returns Black-Scholes Greeks for a European option.
// spot and strike are prices, tYears is time to expiry in years, r the
// annualized risk-free rate, sigma the annualized implied volatility.
func ComputeGreeks(spot, strike, tYears, r, sigma float64, isCall bool) Greeks {
	if spot <= 0 || strike <= 0 || tYears <= 0 || sigma <= 0 {
		return Greeks{}
	}

	sqrtT := math.Sqrt(tYears)
	d1 := (math.Log(spot/strike) + (r+sigma*sigma/2)*tYears) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	g := Greeks{
		Gamma: normPDF(d1) / (spot * sigma * sqrtT),
		Vega:  spot * normPDF(d1) * sqrtT / 100,
	}

	if isCall {
		g.Delta = normCDF(d1)
		g.Theta = (-spot*normPDF(d1)*sigma/(2*sqrtT) - r*strike*math.Exp(-r*tYears)*normCDF(d2)) / 365
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = (-spot*normPDF(d1)*sigma/(2*sqrtT) + r*strike*math.Exp(-r*tYears)*normCDF(-d2)) / 365
	}

	return g
}

// FillGreeks computes Greeks for every quote in the chain that carries an IV
// but no delta, from the chain's spot and time to expiry at the given
// risk-free rate. Quotes already priced by the upstream are left alone.
func FillGreeks(chain *domain.OptionChain, riskFree float64, now time.Time) {
	expiry, err := time.Parse("2006-01-02", chain.Expiry)
	if err != nil {
		return
	}
	tYears := expiry.Sub(now).Hours() / 24 / 365
	if tYears <= 0 {
		return
	}

	for i := range chain.Rows {
		row := &chain.Rows[i]
		fillQuote(&row.Call, chain.Spot, row.Strike, tYears, riskFree, true)
		fillQuote(&row.Put, chain.Spot, row.Strike, tYears, riskFree, false)
	}
}

func fillQuote(q *domain.OptionQuote, spot, strike, tYears, r float64, isCall bool) {
	if q.IV <= 0 || q.Delta != 0 {
		return
	}
	g := ComputeGreeks(spot, strike, tYears, r, q.IV, isCall)
	q.Delta, q.Gamma, q.Theta, q.Vega = g.Delta, g.Gamma, g.Theta, g.Vega
}
