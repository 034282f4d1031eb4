package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/kpapadakis/ali-price-checker/internal/aliexpress"
	"github.com/kpapadakis/ali-price-checker/internal/browser"
	"github.com/kpapadakis/ali-price-checker/internal/config"
	"github.com/kpapadakis/ali-price-checker/internal/queue"
	"github.com/kpapadakis/ali-price-checker/internal/ratelimit"
	"github.com/kpapadakis/ali-price-checker/internal/sheet"
	"github.com/kpapadakis/ali-price-checker/pkg/logger"
)

// consecutive quote failures before the browsing session is reset
const resetThreshold = 3

func main() {
	var (
		sheetPath = flag.String("sheet", "", "Path to the .xlsx workbook with item URLs (required)")
		country   = flag.String("country", "", "Ship-to country, e.g. 'greece' (default: site setting)")
		currency  = flag.String("currency", "", "Display currency ISO code, e.g. 'EUR' (default: site setting)")
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
		debug     = flag.Bool("debug", false, "Dump page HTML on failures")
		output    = flag.String("output", "", "Write results to this .xlsx instead of updating -sheet in place")
	)
	flag.Parse()

	if *sheetPath == "" {
		fmt.Println("No workbook given. Use -sheet to point at the .xlsx with item URLs.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *country != "" {
		cfg.Checker.Country = *country
	}
	if *currency != "" {
		cfg.Checker.Currency = *currency
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting price checker",
		"sheet", *sheetPath, "country", cfg.Checker.Country, "currency", cfg.Checker.Currency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	sh, err := sheet.Open(*sheetPath, logger)
	if err != nil {
		logger.Error("Failed to open workbook", "error", err)
		os.Exit(1)
	}
	defer sh.Close()

	items, err := sh.Items()
	if err != nil {
		logger.Error("Failed to read items", "error", err)
		os.Exit(1)
	}

	browserOpts := &browser.Options{
		Headless:       *headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
		DebugDumpDir:   cfg.Browser.DebugDumpDir,
	}
	if len(cfg.Browser.UserAgents) > 0 {
		browserOpts.UserAgent = cfg.Browser.UserAgents[0]
	}

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	driver, err := aliexpress.NewDriver(b, aliexpress.DriverConfig{
		Country:       cfg.Checker.Country,
		Currency:      cfg.Checker.Currency,
		Debug:         *debug || cfg.Browser.Debug,
		MaxRetries:    cfg.Checker.MaxRetries,
		RetryInterval: cfg.Checker.RetryInterval,
		SettingsWait:  cfg.Checker.SettingsWait,
	}, logger)
	if err != nil {
		logger.Error("Failed to create driver", "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	if err := driver.Configure(ctx); err != nil {
		logger.Error("Failed to apply site settings", "error", err)
		os.Exit(1)
	}

	taskQueue := queue.NewInMemoryQueue()
	defer taskQueue.Close()

	for _, item := range items {
		task := &queue.Task{
			ID:        uuid.New().String(),
			URL:       item.URL,
			Row:       item.Row,
			Tracking:  item.Tracking,
			CreatedAt: time.Now(),
		}
		if err := taskQueue.Push(task); err != nil {
			logger.Error("Failed to enqueue task", "url", item.URL, "error", err)
			os.Exit(1)
		}
	}

	rateLimiter := ratelimit.NewAdaptiveRateLimiter(
		cfg.Checker.RateLimitMin,
		cfg.Checker.RateLimitMax,
	)

	checked, failed := runChecks(ctx, driver, sh, taskQueue, rateLimiter, cfg.Checker.MaxRetries, logger)

	resultPath := *sheetPath
	if *output != "" {
		resultPath = *output
		err = sh.SaveAs(resultPath)
	} else {
		err = sh.Save()
	}
	if err != nil {
		logger.Error("Failed to save workbook", "error", err)
		os.Exit(1)
	}

	logger.Info("Done", "checked", checked, "failed", failed, "total", len(items))
	fmt.Printf("Checked %d of %d items (%d failed). Results written to %s\n",
		checked, len(items), failed, resultPath)

	if ctx.Err() != nil {
		os.Exit(1)
	}
}

// runChecks drains the queue, writing every outcome into the sheet. Failed
// tasks go back on the queue until their retry budget runs out.
func runChecks(
	ctx context.Context,
	driver *aliexpress.Driver,
	sh *sheet.Manager,
	taskQueue *queue.InMemoryQueue,
	rateLimiter *ratelimit.AdaptiveRateLimiter,
	maxRetries int,
	logger *slog.Logger,
) (checked, failed int) {
	remaining := taskQueue.Size()
	consecutiveErrors := 0

	for remaining > 0 {
		task, err := taskQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("Stopping, queue not drained", "remaining", remaining)
			}
			return checked, failed
		}

		if err := rateLimiter.Wait(ctx); err != nil {
			return checked, failed
		}

		quote, err := driver.QuotePrice(ctx, task.URL, task.Tracking)
		if err != nil {
			rateLimiter.RecordError()
			consecutiveErrors++

			if task.Retries < maxRetries-1 {
				task.Retries++
				logger.Warn("Quote failed, retrying later",
					"url", task.URL, "attempt", task.Retries, "error", err)
				if pushErr := taskQueue.Push(task); pushErr == nil {
					if consecutiveErrors >= resetThreshold {
						logger.Info("Resetting session after repeated failures")
						if resetErr := driver.Reset(ctx); resetErr != nil {
							logger.Error("Session reset failed", "error", resetErr)
						}
						consecutiveErrors = 0
					}
					continue
				}
			}

			failed++
			remaining--
			logger.Error("Giving up on item", "url", task.URL, "error", err)
			if writeErr := sh.WriteError(task.Row, err.Error()); writeErr != nil {
				logger.Error("Failed to record error in sheet", "row", task.Row, "error", writeErr)
			}
			continue
		}

		rateLimiter.RecordSuccess()
		consecutiveErrors = 0
		checked++
		remaining--

		logger.Info("Item checked", "url", task.URL,
			"item_price", quote.ItemPrice, "shipping_price", quote.ShippingPrice,
			"currency", quote.Currency, "row", task.Row)

		if err := sh.WriteQuote(task.Row, quote); err != nil {
			logger.Error("Failed to record quote in sheet", "row", task.Row, "error", err)
		}
	}

	return checked, failed
}
