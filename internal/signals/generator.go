package signals

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marketdesk/internal/store"
)

// Generator runs every registered rule over the bar history of each
// watchlist symbol and persists the signals that fire.
type Generator struct {
	registry  *Registry
	watchlist store.WatchlistStore
	bars      store.BarStore
	signals   store.SignalStore
	log       *slog.Logger
}

// NewGenerator wires a Generator.
func NewGenerator(registry *Registry, watchlist store.WatchlistStore,
	bars store.BarStore, signals store.SignalStore, log *slog.Logger) *Generator {
	return &Generator{
		registry:  registry,
		watchlist: watchlist,
		bars:      bars,
		signals:   signals,
		log:       log,
	}
}

// RunOnce evaluates all rules for all watchlist symbols as of now. It
// returns the number of signals persisted; per-symbol failures are logged
// and skipped.
func (g *Generator) RunOnce(ctx context.Context) (int, error) {
	symbols, err := g.watchlist.GetWatchlist(ctx)
	if err != nil {
		return 0, err
	}

	end := time.Now()
	start := end.AddDate(-1, -1, 0) // a year of history plus warmup

	saved := 0
	for _, symbol := range symbols {
		bars, err := g.bars.ReadBars(ctx, symbol, start, end)
		if err != nil {
			g.log.Warn("reading bars", "symbol", symbol, "error", err)
			continue
		}
		if len(bars) == 0 {
			continue
		}

		for _, rule := range g.registry.All() {
			for _, sig := range rule.Evaluate(symbol, bars) {
				sig.ID = uuid.NewString()
				sig.CreatedAt = time.Now()
				if err := g.signals.SaveSignal(ctx, &sig); err != nil {
					g.log.Error("saving signal", "symbol", symbol, "rule", rule.Name(), "error", err)
					continue
				}
				saved++
				g.log.Info("signal generated", "symbol", symbol, "rule", rule.Name(),
					"type", sig.Type, "strength", sig.Strength)
			}
		}
	}
	return saved, nil
}

// Run evaluates once at startup and then on every interval tick until ctx
// is cancelled.
func (g *Generator) Run(ctx context.Context, interval time.Duration) error {
	if _, err := g.RunOnce(ctx); err != nil {
		g.log.Error("signal generation", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := g.RunOnce(ctx); err != nil {
				g.log.Error("signal generation", "error", err)
			}
		}
	}
}
