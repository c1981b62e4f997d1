package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/feedgram/feedgram/pkg/config"
	"github.com/feedgram/feedgram/pkg/dedup"
	"github.com/feedgram/feedgram/pkg/feed"
	"github.com/feedgram/feedgram/pkg/notifier"
	"github.com/feedgram/feedgram/pkg/scheduler"
	"github.com/feedgram/feedgram/pkg/telegram"
	"github.com/feedgram/feedgram/server"
)

// Opts with all CLI options
type Opts struct {
	Token      string `long:"telegram-token" env:"TELEGRAM_TOKEN" required:"true" description:"telegram bot token"`
	Channel    string `long:"channel" env:"CHANNEL_ID" required:"true" description:"channel receiving feed items"`
	WebhookURL string `long:"webhook-url" env:"WEBHOOK_URL" required:"true" description:"public base URL for the bot webhook"`
	FeedURL    string `long:"feed" env:"RSS_URL" default:"https://ru.tradingview.com/feed/" description:"RSS feed URL"`
	Listen     string `short:"l" long:"listen" env:"LISTEN" default:":10000" description:"listen address"`
	Config     string `short:"f" long:"config" env:"CONFIG" description:"config file (yaml)"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.Token)

	log.Printf("[INFO] starting feedgram version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] feedgram failed: %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires the components and blocks until the context is canceled or a
// fatal error occurs
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := makeStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open dedup store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close dedup store: %v", err)
		}
	}()

	client, err := telegram.New(opts.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}

	fetcher := feed.NewFetcher(feed.NewParser(cfg.Feed.Timeout, cfg.Feed.UserAgent), store, opts.FeedURL, cfg.Feed.Limit)
	notify := notifier.New(client, store, opts.Channel)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	sched, err := scheduler.New(scheduler.Config{Spec: cfg.Schedule.Spec, Location: loc}, func(ctx context.Context) {
		log.Printf("[INFO] checking feed for new items")
		for _, item := range fetcher.Latest(ctx) {
			notify.Deliver(ctx, item)
		}
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	webhookPath, _ := cfg.GetServerConfig()
	if err := client.RegisterWebhook(opts.WebhookURL + webhookPath); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	defer func() {
		// attempted exactly once on the way out, even after errors
		if err := client.DeleteWebhook(); err != nil {
			log.Printf("[WARN] failed to delete webhook: %v", err)
		}
	}()

	srv := server.New(cfg, server.NewDispatcher(client), opts.Listen, revision, opts.Debug)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	return g.Wait()
}

// makeStore picks the dedup store: sqlite when a DSN is configured,
// in-memory otherwise
func makeStore(ctx context.Context, cfg *config.Config) (dedup.Store, error) {
	if cfg.Dedup.DSN == "" {
		log.Printf("[INFO] using in-memory dedup store")
		return dedup.NewMemory(), nil
	}

	log.Printf("[INFO] using sqlite dedup store, dsn %s", cfg.Dedup.DSN)
	return dedup.NewSQLite(ctx, dedup.SQLiteConfig{
		DSN:             cfg.Dedup.DSN,
		MaxOpenConns:    cfg.Dedup.MaxOpenConns,
		ConnMaxLifetime: time.Duration(cfg.Dedup.ConnMaxLifetime) * time.Second,
	})
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
