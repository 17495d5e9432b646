// Package options implements the F&O analytics served by the dashboard:
// chain slicing by strike depth, Max Pain, put-call ratio, open-interest
// analysis, IV percentile, and Black-Scholes Greeks.
package options

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"marketdesk/internal/domain"
)

// ChainProvider exposes the latest option-chain snapshot per underlying.
type ChainProvider interface {
	// Chain returns the latest snapshot for symbol, or ok=false.
	Chain(symbol string) (*domain.OptionChain, bool)

	// Symbols returns all underlyings with a chain, sorted.
	Symbols() []string
}

// SnapshotStore is an in-memory ChainProvider fed by the upstream poller.
// Writes replace the whole chain per underlying; readers get copies.
type SnapshotStore struct {
	mu     sync.RWMutex
	chains map[string]domain.OptionChain
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{chains: make(map[string]domain.OptionChain)}
}

// Set replaces the stored chain for its underlying.
func (s *SnapshotStore) Set(chain domain.OptionChain) {
	sym := strings.ToUpper(chain.Symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	chain.Symbol = sym
	s.chains[sym] = chain
}

// Chain returns a copy of the latest snapshot for symbol.
func (s *SnapshotStore) Chain(symbol string) (*domain.OptionChain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[strings.ToUpper(symbol)]
	if !ok {
		return nil, false
	}
	cp := c
	cp.Rows = make([]domain.StrikeRow, len(c.Rows))
	copy(cp.Rows, c.Rows)
	return &cp, true
}

// Symbols returns all underlyings with a stored chain.
func (s *SnapshotStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, 0, len(s.chains))
	for sym := range s.chains {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// ---------------------------------------------------------------------------
// Analytics
// ---------------------------------------------------------------------------

// ChainByStrikes returns at most depth strikes on each side of the
// at-the-money strike (the strike nearest spot), ATM row included.
// depth <= 0 returns the full chain.
func ChainByStrikes(chain *domain.OptionChain, depth int) []domain.StrikeRow {
	rows := make([]domain.StrikeRow, len(chain.Rows))
	copy(rows, chain.Rows)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Strike < rows[j].Strike })

	if depth <= 0 || len(rows) == 0 {
		return rows
	}

	atm := 0
	for i := range rows {
		if math.Abs(rows[i].Strike-chain.Spot) < math.Abs(rows[atm].Strike-chain.Spot) {
			atm = i
		}
	}

	lo := atm - depth
	if lo < 0 {
		lo = 0
	}
	hi := atm + depth + 1
	if hi > len(rows) {
		hi = len(rows)
	}
	return rows[lo:hi]
}

// MaxPainResult is the expiry level at which total option-writer payout is
// minimized, with the payout curve for display. The curve is keyed by the
// formatted strike so it serializes as a JSON object.
type MaxPainResult struct {
	Strike float64            `json:"strike"`
	Pain   map[string]float64 `json:"pain"` // candidate expiry strike → total payout
}

// strikeKey formats a strike for use as a JSON object key.
func strikeKey(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

// MaxPain computes the strike minimizing the combined intrinsic payout of
// all open calls and puts, assuming expiry settles at that strike.
func MaxPain(chain *domain.OptionChain) MaxPainResult {
	res := MaxPainResult{Pain: make(map[string]float64, len(chain.Rows))}
	if len(chain.Rows) == 0 {
		return res
	}

	best := math.MaxFloat64
	for _, settle := range chain.Rows {
		var pain float64
		for _, row := range chain.Rows {
			if settle.Strike > row.Strike {
				pain += float64(row.Call.OI) * (settle.Strike - row.Strike)
			}
			if settle.Strike < row.Strike {
				pain += float64(row.Put.OI) * (row.Strike - settle.Strike)
			}
		}
		res.Pain[strikeKey(settle.Strike)] = pain
		if pain < best || (pain == best && settle.Strike < res.Strike) {
			best = pain
			res.Strike = settle.Strike
		}
	}
	return res
}

// PCRResult holds put-call ratios by open interest and by traded volume.
type PCRResult struct {
	OIPCR     float64 `json:"oiPcr"`
	VolumePCR float64 `json:"volumePcr"`
}

// PCR computes put-call ratios over the whole chain. A zero call total
// yields a zero ratio rather than infinity.
func PCR(chain *domain.OptionChain) PCRResult {
	var callOI, putOI, callVol, putVol int64
	for _, row := range chain.Rows {
		callOI += row.Call.OI
		putOI += row.Put.OI
		callVol += row.Call.Volume
		putVol += row.Put.Volume
	}

	var res PCRResult
	if callOI > 0 {
		res.OIPCR = float64(putOI) / float64(callOI)
	}
	if callVol > 0 {
		res.VolumePCR = float64(putVol) / float64(callVol)
	}
	return res
}

// OILevel is one strike ranked by open interest.
type OILevel struct {
	Strike   float64 `json:"strike"`
	OI       int64   `json:"oi"`
	OIChange int64   `json:"oiChange"`
}

// OIAnalysisResult summarizes where open interest is concentrated. Heavy
// call OI marks resistance; heavy put OI marks support.
type OIAnalysisResult struct {
	Resistances  []OILevel `json:"resistances"` // top call-OI strikes, descending
	Supports     []OILevel `json:"supports"`    // top put-OI strikes, descending
	CallOITotal  int64     `json:"callOiTotal"`
	PutOITotal   int64     `json:"putOiTotal"`
	CallOIChange int64     `json:"callOiChange"`
	PutOIChange  int64     `json:"putOiChange"`
}

// OIAnalysis ranks the top n strikes by call and put open interest.
func OIAnalysis(chain *domain.OptionChain, n int) OIAnalysisResult {
	if n <= 0 {
		n = 3
	}

	var res OIAnalysisResult
	calls := make([]OILevel, 0, len(chain.Rows))
	puts := make([]OILevel, 0, len(chain.Rows))
	for _, row := range chain.Rows {
		calls = append(calls, OILevel{Strike: row.Strike, OI: row.Call.OI, OIChange: row.Call.OIChange})
		puts = append(puts, OILevel{Strike: row.Strike, OI: row.Put.OI, OIChange: row.Put.OIChange})
		res.CallOITotal += row.Call.OI
		res.PutOITotal += row.Put.OI
		res.CallOIChange += row.Call.OIChange
		res.PutOIChange += row.Put.OIChange
	}

	sort.Slice(calls, func(i, j int) bool { return calls[i].OI > calls[j].OI })
	sort.Slice(puts, func(i, j int) bool { return puts[i].OI > puts[j].OI })

	if len(calls) > n {
		calls = calls[:n]
	}
	if len(puts) > n {
		puts = puts[:n]
	}
	res.Resistances = calls
	res.Supports = puts
	return res
}

// ATMIV returns the average of call and put implied volatility at the strike
// nearest spot, or 0 for an empty chain.
func ATMIV(chain *domain.OptionChain) float64 {
	if len(chain.Rows) == 0 {
		return 0
	}
	atm := chain.Rows[0]
	for _, row := range chain.Rows[1:] {
		if math.Abs(row.Strike-chain.Spot) < math.Abs(atm.Strike-chain.Spot) {
			atm = row
		}
	}
	return (atm.Call.IV + atm.Put.IV) / 2
}

// IVPercentile returns the percentage of historical IV observations at or
// below current, in [0, 100]. An empty history yields 0.
func IVPercentile(current float64, history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	below := 0
	for _, iv := range history {
		if iv <= current {
			below++
		}
	}
	return float64(below) / float64(len(history)) * 100
}
