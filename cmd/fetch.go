package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/csk-sniffer/imagefetch/internal/api"
	"github.com/csk-sniffer/imagefetch/internal/clock/system"
	"github.com/csk-sniffer/imagefetch/internal/config"
	"github.com/csk-sniffer/imagefetch/internal/fetch"
	"github.com/csk-sniffer/imagefetch/internal/hash/md5"
	"github.com/csk-sniffer/imagefetch/internal/ledger"
	"github.com/csk-sniffer/imagefetch/internal/progress"
	"github.com/csk-sniffer/imagefetch/internal/publisher"
	memorypublisher "github.com/csk-sniffer/imagefetch/internal/publisher/memory"
	pubsubpublisher "github.com/csk-sniffer/imagefetch/internal/publisher/pubsub"
)

type fetchFlags struct {
	searchString   string
	searchFile     string
	output         string
	filters        string
	limit          int
	threads        int
	adultFilterOff bool
}

// newFetchCmd creates and configures the 'fetch' subcommand.
func newFetchCmd() *cobra.Command {
	flags := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Downloads images for one search term or a file of terms",
		Long: `Runs the fetch pipeline: paginates the search backend for each term,
downloads up to the configured limit of unique images into the output
directory, and checkpoints the download history after every term.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetchCommand(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.searchString, "search-string", "s", "", "keyword to search")
	cmd.Flags().StringVarP(&flags.searchFile, "search-file", "f", "", "path to a file containing search strings line by line")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&flags.filters, "filters", "", "query filters appended to the search, e.g. +filterui:license-L1")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum number of images to download per keyword")
	cmd.Flags().IntVar(&flags.threads, "threads", 0, "number of concurrent download workers")
	cmd.Flags().BoolVar(&flags.adultFilterOff, "adult-filter-off", false, "disable the backend adult filter")

	return cmd
}

func runFetchCommand(cmd *cobra.Command, flags *fetchFlags) error {
	if flags.searchString == "" && flags.searchFile == "" {
		return errors.New("provide either --search-string or --search-file")
	}
	applyFlagOverrides(cmd, flags)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keywords, err := resolveKeywords(flags)
	if err != nil {
		return err
	}

	outputRoot := cfg.Fetch.OutputDir
	if err := os.MkdirAll(outputRoot, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	store, closeStore, err := buildLedgerStore(ctx, outputRoot)
	if err != nil {
		return err
	}
	defer closeStore()

	led := ledger.New(store, logger.Named("ledger"))
	if err := led.Load(ctx); err != nil {
		// A damaged history is not fatal; resuming may re-attempt URLs.
		logger.Warn("history load failed, starting fresh", zap.Error(err))
	}

	snapshot := progress.NewSnapshotRecorder()
	recorder := progress.Multi{
		progress.NewLogRecorder(logger.Named("progress")),
		progress.NewMetricsRecorder(),
		snapshot,
	}

	stopServer := startStatusServer(ctx, snapshot)
	defer stopServer()

	pub, closePub, err := buildPublisher(ctx)
	if err != nil {
		return err
	}
	defer closePub()

	searchClient, err := fetch.NewBingClient(fetch.BingConfig{
		BaseURL:        cfg.Search.BaseURL,
		PageSize:       cfg.Search.PageSize,
		UserAgent:      cfg.Search.UserAgent,
		Filters:        cfg.Search.Filters,
		AdultFilterOff: cfg.Search.AdultFilterOff,
		Timeout:        cfg.HTTPTimeout(),
	}, logger.Named("search"))
	if err != nil {
		return fmt.Errorf("init search client: %w", err)
	}

	byteFetcher := fetch.NewHTTPFetcher(fetch.HTTPFetcherConfig{
		UserAgent: cfg.Search.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
		MaxBytes:  cfg.Fetch.MaxImageBytes,
	})

	gov := fetch.NewGovernor(cfg.Fetch.Workers, cfg.Fetch.WritePermits)
	hasher := md5.New()
	clock := system.New()
	batch := len(keywords) > 1 || flags.searchFile != ""

	for i, keyword := range keywords {
		dir := outputRoot
		if batch {
			dir = filepath.Join(outputRoot, strings.ReplaceAll(keyword, " ", "_"))
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create keyword dir: %w", err)
		}

		logger.Info("processing keyword", zap.String("keyword", keyword))
		session := fetch.NewSession(fetch.SessionConfig{
			Keyword:      keyword,
			OutputDir:    dir,
			Limit:        cfg.Fetch.Limit,
			PageSize:     cfg.Search.PageSize,
			HighWater:    cfg.Fetch.HighWater,
			PageInterval: cfg.PageInterval(),
		}, searchClient, byteFetcher, hasher, clock, led, gov, recorder, logger.Named("session"))

		summary := session.Run(ctx)
		logger.Info("downloaded images for keyword",
			zap.String("keyword", keyword),
			zap.Int("downloaded", summary.Succeeded),
			zap.Int("requested", summary.Requested),
		)
		publishSummary(ctx, pub, session, summary, dir)

		if ctx.Err() != nil {
			break
		}
		if batch && i < len(keywords)-1 {
			if err := sleepCtx(ctx, cfg.KeywordDelay()); err != nil {
				break
			}
		}
	}

	if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
		logger.Info("interrupted, history checkpointed")
	}
	return nil
}

// applyFlagOverrides folds changed command-line flags into the loaded config.
func applyFlagOverrides(cmd *cobra.Command, flags *fetchFlags) {
	if cmd.Flags().Changed("output") {
		cfg.Fetch.OutputDir = flags.output
	}
	if cmd.Flags().Changed("limit") {
		cfg.Fetch.Limit = flags.limit
	}
	if cmd.Flags().Changed("threads") {
		cfg.Fetch.Workers = flags.threads
	}
	if cmd.Flags().Changed("filters") {
		cfg.Search.Filters = flags.filters
	}
	if cmd.Flags().Changed("adult-filter-off") {
		cfg.Search.AdultFilterOff = flags.adultFilterOff
	}
}

func resolveKeywords(flags *fetchFlags) ([]string, error) {
	if flags.searchString != "" {
		return []string{flags.searchString}, nil
	}
	file, err := os.Open(flags.searchFile)
	if err != nil {
		return nil, fmt.Errorf("open search file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	var keywords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		keyword := strings.TrimSpace(scanner.Text())
		if keyword == "" {
			continue
		}
		keywords = append(keywords, keyword)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read search file: %w", err)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("search file %s contains no keywords", flags.searchFile)
	}
	return keywords, nil
}

func buildLedgerStore(ctx context.Context, outputRoot string) (ledger.Store, func(), error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		store, err := ledger.NewPostgresStore(ctx, ledger.PostgresStoreConfig{DSN: cfg.Ledger.DSN})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres ledger store: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := ledger.NewFileStore(filepath.Join(outputRoot, cfg.Ledger.FileName))
		if err != nil {
			return nil, nil, fmt.Errorf("init file ledger store: %w", err)
		}
		return store, func() {}, nil
	}
}

func buildPublisher(ctx context.Context) (publisher.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return memorypublisher.New(), func() {}, nil
	}
	pub, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	closeFn := func() {
		if cerr := pub.Close(); cerr != nil {
			logger.Warn("close pubsub publisher", zap.Error(cerr))
		}
	}
	return pub, closeFn, nil
}

func publishSummary(ctx context.Context, pub publisher.Publisher, session *fetch.Session, summary fetch.Summary, dir string) {
	payload := map[string]any{
		"run_id":     session.RunID().String(),
		"keyword":    summary.Keyword,
		"downloaded": summary.Succeeded,
		"requested":  summary.Requested,
		"directory":  dir,
	}
	if _, err := pub.Publish(context.WithoutCancel(ctx), cfg.PubSub.TopicName, payload); err != nil {
		logger.Warn("publish keyword completion failed", zap.Error(err))
	}
}

func startStatusServer(ctx context.Context, snapshot *progress.SnapshotRecorder) func() {
	if !cfg.Server.Enabled {
		return func() {}
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(snapshot, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("status server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown error", zap.Error(err))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
