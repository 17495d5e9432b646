package signals

import (
	"fmt"
	"math"

	"marketdesk/internal/domain"
)

// Compile-time interface checks.
var (
	_ Rule = (*SMACross)(nil)
	_ Rule = (*RSIReversal)(nil)
	_ Rule = (*Breakout52W)(nil)
)

func sma(closes []float64, period int) float64 {
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

func closesOf(bars []domain.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// SMACross fires a buy when the short-period simple moving average crosses
// above the long-period one on the latest bar, and a sell on the opposite
// crossing.
type SMACross struct {
	short int
	long  int
}

// NewSMACross creates an SMACross with the given periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{short: short, long: long}
}

func (s *SMACross) Name() string {
	return fmt.Sprintf("sma-cross-%d-%d", s.short, s.long)
}

func (s *SMACross) Evaluate(symbol string, bars []domain.Bar) []domain.Signal {
	if len(bars) < s.long+1 {
		return nil
	}
	closes := closesOf(bars)
	prev := closes[:len(closes)-1]

	shortNow, longNow := sma(closes, s.short), sma(closes, s.long)
	shortPrev, longPrev := sma(prev, s.short), sma(prev, s.long)

	var sigType domain.SignalType
	switch {
	case shortPrev <= longPrev && shortNow > longNow:
		sigType = domain.SignalTypeBuy
	case shortPrev >= longPrev && shortNow < longNow:
		sigType = domain.SignalTypeSell
	default:
		return nil
	}

	// Strength scales with the separation of the averages.
	spread := math.Abs(shortNow-longNow) / longNow
	return []domain.Signal{{
		Symbol:   symbol,
		Type:     sigType,
		Strength: clamp01(0.5 + spread*50),
		Reason:   fmt.Sprintf("%d-day SMA crossed %s %d-day SMA", s.short, crossWord(sigType), s.long),
	}}
}

func crossWord(t domain.SignalType) string {
	if t == domain.SignalTypeBuy {
		return "above"
	}
	return "below"
}

// RSIReversal fires a buy when the relative strength index drops below the
// oversold threshold on the latest bar, and a sell when it rises above the
// overbought threshold.
type RSIReversal struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIReversal creates an RSIReversal with Wilder's smoothing over period.
func NewRSIReversal(period int, oversold, overbought float64) *RSIReversal {
	return &RSIReversal{period: period, oversold: oversold, overbought: overbought}
}

func (r *RSIReversal) Name() string {
	return fmt.Sprintf("rsi-%d", r.period)
}

func (r *RSIReversal) Evaluate(symbol string, bars []domain.Bar) []domain.Signal {
	if len(bars) < r.period+2 {
		return nil
	}
	closes := closesOf(bars)

	now := rsi(closes, r.period)
	before := rsi(closes[:len(closes)-1], r.period)

	var sigType domain.SignalType
	var reason string
	switch {
	case before >= r.oversold && now < r.oversold:
		sigType = domain.SignalTypeBuy
		reason = fmt.Sprintf("RSI(%d) dropped to %.0f, oversold", r.period, now)
	case before <= r.overbought && now > r.overbought:
		sigType = domain.SignalTypeSell
		reason = fmt.Sprintf("RSI(%d) rose to %.0f, overbought", r.period, now)
	default:
		return nil
	}

	// Distance past the threshold drives strength.
	var depth float64
	if sigType == domain.SignalTypeBuy {
		depth = (r.oversold - now) / r.oversold
	} else {
		depth = (now - r.overbought) / (100 - r.overbought)
	}
	return []domain.Signal{{
		Symbol:   symbol,
		Type:     sigType,
		Strength: clamp01(0.5 + depth),
		Reason:   reason,
	}}
}

// rsi computes Wilder's RSI over the last bars of closes.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	start := len(closes) - period - 1
	for i := start + 1; i <= start+period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := start + period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Breakout52W fires a buy when the latest close exceeds the highest high of
// the preceding year of bars.
type Breakout52W struct{}

// NewBreakout52W creates a Breakout52W rule.
func NewBreakout52W() *Breakout52W { return &Breakout52W{} }

func (b *Breakout52W) Name() string { return "breakout-52w" }

// minHistory is the fewest prior bars a breakout can be judged against.
const minHistory = 60

func (b *Breakout52W) Evaluate(symbol string, bars []domain.Bar) []domain.Signal {
	if len(bars) < minHistory+1 {
		return nil
	}

	last := bars[len(bars)-1]
	prior := bars[:len(bars)-1]
	if len(prior) > 251 {
		prior = prior[len(prior)-251:]
	}

	high := prior[0].High
	for _, bar := range prior {
		if bar.High > high {
			high = bar.High
		}
	}
	if last.Close <= high {
		return nil
	}

	return []domain.Signal{{
		Symbol:   symbol,
		Type:     domain.SignalTypeBuy,
		Strength: clamp01(0.6 + (last.Close-high)/high*10),
		Reason:   fmt.Sprintf("closed at %.2f above the prior 52-week high %.2f", last.Close, high),
	}}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
