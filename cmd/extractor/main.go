package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/emredev/trendyol-listing-extractor/internal/config"
	"github.com/emredev/trendyol-listing-extractor/internal/extractor"
	"github.com/emredev/trendyol-listing-extractor/internal/fetch"
	"github.com/emredev/trendyol-listing-extractor/internal/images"
	"github.com/emredev/trendyol-listing-extractor/internal/models"
	"github.com/emredev/trendyol-listing-extractor/internal/queue"
	"github.com/emredev/trendyol-listing-extractor/internal/ratelimit"
	"github.com/emredev/trendyol-listing-extractor/pkg/logger"
)

func main() {
	var (
		urls      = flag.String("urls", "", "Comma-separated list of product URLs to extract")
		inputFile = flag.String("file", "", "File containing product URLs (one per line)")
		output    = flag.String("output", "text", "Output format: text, json")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	fetchClient := fetch.NewClient(fetch.Options{
		Hosts:          cfg.Marketplace.Hosts,
		Relays:         cfg.Fetch.Relays,
		BlockMarkers:   cfg.Marketplace.BlockMarkers,
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		AttemptTimeout: cfg.Fetch.AttemptTimeout,
		MinBodyBytes:   cfg.Fetch.MinBodyBytes,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
	}, log)

	imageCollector := images.NewCollector(cfg.Marketplace.CDNHosts, cfg.Marketplace.ImageDenylist)
	service := extractor.NewService(fetchClient, imageCollector, log)

	taskQueue := queue.NewInMemoryQueue()
	if err := loadTasks(taskQueue, *urls, *inputFile); err != nil {
		log.Error("failed to load tasks", "error", err)
		os.Exit(1)
	}

	if taskQueue.Size() == 0 {
		fmt.Println("No URLs to process. Use -urls or -file to specify product pages.")
		flag.Usage()
		os.Exit(1)
	}

	rateLimiter := ratelimit.NewSimpleRateLimiter(cfg.Fetch.RateLimitMin, cfg.Fetch.RateLimitMax)

	log.Info("starting extraction", "tasks", taskQueue.Size())

	for {
		select {
		case <-ctx.Done():
			log.Info("context cancelled, exiting")
			return
		default:
		}

		task, err := taskQueue.Pop()
		if err != nil {
			log.Info("queue drained, finishing")
			break
		}

		if err := rateLimiter.Wait(ctx); err != nil {
			continue
		}

		log.Info("processing task", "url", task.URL)

		listing, err := service.Extract(ctx, task.URL)
		if err != nil {
			log.Error("extraction failed", "url", task.URL, "error", err)

			if retryable(err) && task.Retries < cfg.Fetch.MaxRetries {
				task.Retries++
				taskQueue.Push(task)
				log.Info("retrying task", "url", task.URL, "retry", task.Retries)
			}
			continue
		}

		if err := outputResult(listing, *output); err != nil {
			log.Error("failed to output result", "error", err)
		}
	}

	log.Info("extraction completed")
}

// retryable reports whether a failure can plausibly succeed on a second
// pass. Input rejection and missing titles will not improve with retries.
func retryable(err error) bool {
	var extractionErr *models.ExtractionError
	if !errors.As(err, &extractionErr) {
		return true
	}
	return extractionErr.Kind == models.FailureAllRelaysExhausted
}

func loadTasks(q queue.Queue, urls, inputFile string) error {
	var taskList []string

	if urls != "" {
		taskList = append(taskList, strings.Split(urls, ",")...)
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				taskList = append(taskList, line)
			}
		}
	}

	for i, item := range taskList {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		q.Push(&queue.Task{
			ID:        fmt.Sprintf("task-%d", i),
			URL:       item,
			CreatedAt: time.Now(),
		})
	}

	return nil
}

func outputResult(listing *models.Listing, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(listing, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		fmt.Printf("Title: %s\n", listing.Title)
		if listing.Price != "" {
			fmt.Printf("Price: %s TL\n", listing.Price)
		}
		fmt.Printf("Images: %d\n", len(listing.Images))
		for _, img := range listing.Images {
			fmt.Printf("  %s\n", img)
		}
		if len(listing.Attributes) > 0 {
			fmt.Println("Attributes:")
			for key, value := range listing.Attributes {
				fmt.Printf("  %s: %s\n", key, value)
			}
		}
		fmt.Println("---")
	}
	return nil
}
