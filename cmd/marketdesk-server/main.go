package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketdesk/internal/config"
	"marketdesk/internal/domain"
	"marketdesk/internal/feed"
	"marketdesk/internal/health"
	"marketdesk/internal/httpapi"
	"marketdesk/internal/live"
	"marketdesk/internal/news"
	"marketdesk/internal/options"
	"marketdesk/internal/screener"
	"marketdesk/internal/signals"
	"marketdesk/internal/store"
	"marketdesk/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "config/marketdesk.yaml"
	if p := os.Getenv("MARKETDESK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer db.Close()
	bars := store.NewParquetStore(cfg.Storage.DataDir)

	model := live.NewQuoteModel()
	chains := options.NewSnapshotStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Upstream poller.
	client := feed.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.RateLimitPerMin)
	poller := feed.NewPoller(feed.PollerDeps{
		Client:       client,
		Watchlist:    db,
		Portfolio:    db,
		IVs:          db,
		Bars:         bars,
		Fundamentals: db,
		Model:        model,
		Chains:       chains,
		RiskFreeRate: cfg.Options.RiskFreeRate,
		Interval:     time.Duration(cfg.Upstream.PollIntervalSec) * time.Second,
		MaxRetries:   cfg.Upstream.MaxRetries,
		Log:          logger.With("component", "poller"),
	})
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("poller stopped", "error", err)
		}
	}()

	// Rule-based signal generation over daily bars.
	gen := signals.NewGenerator(signals.DefaultRegistry(), db, bars, db,
		logger.With("component", "signals"))
	go func() {
		if err := gen.Run(ctx, time.Hour); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("signal generator stopped", "error", err)
		}
	}()

	// News aggregation.
	sources := []news.FetchFunc{
		func(ctx context.Context) ([]domain.NewsArticle, error) {
			return news.FetchGoogleNews(ctx, "nifty sensex indian stock market", "market")
		},
		func(ctx context.Context) ([]domain.NewsArticle, error) {
			return news.FetchGoogleNews(ctx, "NSE quarterly results earnings", "earnings")
		},
		func(ctx context.Context) ([]domain.NewsArticle, error) {
			return news.FetchGoogleNews(ctx, "RBI SEBI policy india markets", "macro")
		},
	}
	newsFeed := news.NewFeed(logger.With("component", "news"), cfg.News.MaxArticles, sources...)
	go newsFeed.Run(ctx, time.Duration(cfg.News.RefreshIntervalSec)*time.Second)

	srv := httpapi.NewServer(httpapi.Deps{
		Watchlist:      db,
		WatchlistLimit: cfg.Watchlist.Limit,
		Portfolio:      db,
		Screeners:      db,
		Signals:        db,
		IVs:            db,
		Engine:         screener.NewEngine(db),
		Chains:         chains,
		Model:          model,
		Feed:           newsFeed,
		NewsPageSize:   cfg.News.PageSize,
		Scorer:         health.NewScorer(db, bars),
		QuotesHub:      live.NewHub(model, logger.With("component", "ws")),
		Log:            logger.With("component", "api"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		logger.Info("marketdesk-server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
