package signals

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"marketdesk/internal/domain"
	"marketdesk/internal/store"
)

func barsFromCloses(symbol string, closes ...float64) []domain.Bar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestSMACross(t *testing.T) {
	rule := NewSMACross(2, 3)

	tests := []struct {
		name   string
		closes []float64
		want   domain.SignalType
		none   bool
	}{
		{
			// prev: sma2=10 sma3=10; now: sma2=12 sma3=11.33 — fresh cross up.
			name:   "bullish cross on latest bar",
			closes: []float64{10, 10, 10, 10, 14},
			want:   domain.SignalTypeBuy,
		},
		{
			// prev: sma2=10 sma3=10; now: sma2=8 sma3=8.67 — fresh cross down.
			name:   "bearish cross on latest bar",
			closes: []float64{10, 10, 10, 10, 6},
			want:   domain.SignalTypeSell,
		},
		{
			// Cross happened one bar earlier; must not re-fire.
			name:   "stale cross does not re-fire",
			closes: []float64{10, 10, 10, 14, 15},
			none:   true,
		},
		{
			name:   "insufficient history",
			closes: []float64{10, 11, 12},
			none:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigs := rule.Evaluate("RELIANCE", barsFromCloses("RELIANCE", tt.closes...))
			if tt.none {
				if len(sigs) != 0 {
					t.Fatalf("expected no signal, got %+v", sigs)
				}
				return
			}
			if len(sigs) != 1 {
				t.Fatalf("expected one signal, got %d", len(sigs))
			}
			if sigs[0].Type != tt.want {
				t.Errorf("type = %s, want %s", sigs[0].Type, tt.want)
			}
			if sigs[0].Symbol != "RELIANCE" {
				t.Errorf("symbol = %s", sigs[0].Symbol)
			}
			if sigs[0].Strength < 0.5 || sigs[0].Strength > 1 {
				t.Errorf("strength = %f, want within [0.5, 1]", sigs[0].Strength)
			}
		})
	}
}

func TestRSIReversal(t *testing.T) {
	rule := NewRSIReversal(3, 30, 70)

	t.Run("drops into oversold", func(t *testing.T) {
		// RSI(3) sits at ~33 before the final bar, then a 10-point drop
		// pulls it to ~8, crossing below 30.
		bars := barsFromCloses("TCS", 100, 101, 100, 101, 100, 90)
		sigs := rule.Evaluate("TCS", bars)
		if len(sigs) != 1 || sigs[0].Type != domain.SignalTypeBuy {
			t.Fatalf("expected one buy signal, got %+v", sigs)
		}
	})

	t.Run("rises into overbought", func(t *testing.T) {
		// RSI(3) at ~67 before the final bar, a 10-point jump takes it to ~92.
		bars := barsFromCloses("TCS", 100, 99, 100, 99, 100, 110)
		sigs := rule.Evaluate("TCS", bars)
		if len(sigs) != 1 || sigs[0].Type != domain.SignalTypeSell {
			t.Fatalf("expected one sell signal, got %+v", sigs)
		}
	})

	t.Run("already oversold does not re-fire", func(t *testing.T) {
		bars := barsFromCloses("TCS", 100, 90, 80, 70, 60, 50)
		if sigs := rule.Evaluate("TCS", bars); len(sigs) != 0 {
			t.Fatalf("expected no signal, got %+v", sigs)
		}
	})

	t.Run("insufficient history", func(t *testing.T) {
		bars := barsFromCloses("TCS", 100, 99, 100)
		if sigs := rule.Evaluate("TCS", bars); len(sigs) != 0 {
			t.Fatalf("expected no signal, got %+v", sigs)
		}
	})
}

func TestBreakout52W(t *testing.T) {
	rule := NewBreakout52W()

	base := make([]float64, minHistory)
	for i := range base {
		base[i] = 100
	}

	t.Run("close above prior high fires", func(t *testing.T) {
		closes := append(append([]float64{}, base...), 110) // prior highs are 101
		sigs := rule.Evaluate("INFY", barsFromCloses("INFY", closes...))
		if len(sigs) != 1 || sigs[0].Type != domain.SignalTypeBuy {
			t.Fatalf("expected one buy signal, got %+v", sigs)
		}
	})

	t.Run("close below prior high is quiet", func(t *testing.T) {
		closes := append(append([]float64{}, base...), 100.5)
		if sigs := rule.Evaluate("INFY", barsFromCloses("INFY", closes...)); len(sigs) != 0 {
			t.Fatalf("expected no signal, got %+v", sigs)
		}
	})

	t.Run("insufficient history", func(t *testing.T) {
		closes := append(append([]float64{}, base[:30]...), 200)
		if sigs := rule.Evaluate("INFY", barsFromCloses("INFY", closes...)); len(sigs) != 0 {
			t.Fatalf("expected no signal, got %+v", sigs)
		}
	})
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	want := []string{"breakout-52w", "rsi-14", "sma-cross-20-50"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}

	if _, ok := r.Get("rsi-14"); !ok {
		t.Error("Get(rsi-14) not found")
	}
	if _, ok := r.Get("momentum"); ok {
		t.Error("Get(momentum) unexpectedly found")
	}
	if len(r.All()) != 3 {
		t.Errorf("All() returned %d rules", len(r.All()))
	}
}

type fakeWatchlist struct {
	symbols []string
	err     error
}

func (f *fakeWatchlist) GetWatchlist(ctx context.Context) ([]string, error) {
	return f.symbols, f.err
}
func (f *fakeWatchlist) AddSymbol(ctx context.Context, symbol string) error    { return nil }
func (f *fakeWatchlist) RemoveSymbol(ctx context.Context, symbol string) error { return nil }

type fakeBars struct {
	bySymbol map[string][]domain.Bar
	errFor   string
}

func (f *fakeBars) WriteBars(ctx context.Context, bars []domain.Bar) error { return nil }
func (f *fakeBars) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if symbol == f.errFor {
		return nil, errors.New("corrupt partition")
	}
	return f.bySymbol[symbol], nil
}
func (f *fakeBars) ListSymbols(ctx context.Context) ([]string, error) { return nil, nil }

type fakeSignals struct {
	saved []domain.Signal
}

func (f *fakeSignals) SaveSignal(ctx context.Context, s *domain.Signal) error {
	f.saved = append(f.saved, *s)
	return nil
}
func (f *fakeSignals) ListSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	return f.saved, nil
}
func (f *fakeSignals) ListSignalsBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Signal, error) {
	return nil, nil
}
func (f *fakeSignals) SetSignalAction(ctx context.Context, id string, action domain.SignalAction) error {
	return nil
}

var _ store.WatchlistStore = (*fakeWatchlist)(nil)
var _ store.BarStore = (*fakeBars)(nil)
var _ store.SignalStore = (*fakeSignals)(nil)

func TestGeneratorRunOnce(t *testing.T) {
	breakout := make([]float64, minHistory)
	for i := range breakout {
		breakout[i] = 100
	}
	breakout = append(breakout, 110)

	registry := NewRegistry()
	registry.Register(NewBreakout52W())

	wl := &fakeWatchlist{symbols: []string{"BROKEN", "INFY", "QUIET"}}
	bars := &fakeBars{
		bySymbol: map[string][]domain.Bar{
			"INFY":  barsFromCloses("INFY", breakout...),
			"QUIET": barsFromCloses("QUIET", 100, 101, 100),
		},
		errFor: "BROKEN",
	}
	sigs := &fakeSignals{}

	gen := NewGenerator(registry, wl, bars, sigs, slog.New(slog.DiscardHandler))

	saved, err := gen.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if saved != 1 {
		t.Fatalf("saved = %d, want 1", saved)
	}
	got := sigs.saved[0]
	if got.Symbol != "INFY" || got.Type != domain.SignalTypeBuy {
		t.Errorf("signal = %+v", got)
	}
	if got.ID == "" {
		t.Error("signal ID not assigned")
	}
	if got.CreatedAt.IsZero() {
		t.Error("signal CreatedAt not set")
	}
}

func TestGeneratorWatchlistError(t *testing.T) {
	gen := NewGenerator(DefaultRegistry(),
		&fakeWatchlist{err: errors.New("db locked")},
		&fakeBars{}, &fakeSignals{}, slog.New(slog.DiscardHandler))

	if _, err := gen.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error from watchlist store")
	}
}
