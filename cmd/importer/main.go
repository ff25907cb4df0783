package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/klefe6/almanac/internal/config"
	"github.com/klefe6/almanac/internal/datafile"
	"github.com/klefe6/almanac/internal/infrastructure"
	"github.com/klefe6/almanac/internal/store"
	"github.com/klefe6/almanac/pkg/contracts/domain"
)

var errProductsFailed = errors.New("some products failed to import")

// importWorkers caps concurrent product imports below the default pool
// size so readers are not starved while a bulk load runs.
const importWorkers = 4

// productResult tracks the outcome of one product's import.
type productResult struct {
	Symbol     string
	MinuteRows int64
	DailyRows  int64
	Skipped    int
	Err        error
}

// resolution binds the per-interval store and parser operations so minute
// and daily files share one import path.
type resolution struct {
	name   string
	has    func(context.Context, string) (bool, error)
	parse  func(string) (datafile.ParseResult, error)
	insert func(context.Context, string, []domain.Bar) (int64, error)
}

func main() {
	if err := run(); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	dataDir := flag.String("data-dir", "", "data directory (overrides config)")
	productList := flag.String("products", "", "comma-separated subset of symbols to import")
	force := flag.Bool("force", false, "import even when data is already present")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(false), logger)
	if err != nil {
		return fmt.Errorf("initialize otel: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("otel shutdown", slog.String("error", err.Error()))
		}
	}()

	var metrics *infrastructure.BusinessMetrics
	if providers.Meter != nil {
		if metrics, err = infrastructure.CreateBusinessMetrics(providers.Meter); err != nil {
			return fmt.Errorf("create metrics: %w", err)
		}
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MinConns: cfg.Database.MinConns,
		MaxConns: cfg.Database.MaxConns,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	discoveries, err := datafile.Discover(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("discover data files: %w", err)
	}
	if len(discoveries) == 0 {
		return fmt.Errorf("no data files found under %s (expected 1min/SYM.txt and daily/SYM_daily.txt)", cfg.Data.Dir)
	}

	subset := parseProducts(*productList)
	var selected []datafile.Discovery
	for _, d := range discoveries {
		if len(subset) == 0 || subset[d.Symbol] {
			selected = append(selected, d)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("no discovered products match --products=%s", *productList)
	}

	start := time.Now()
	results := make([]productResult, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for i, d := range selected {
		i, d := i, d
		g.Go(func() error {
			results[i] = importProduct(gctx, st, metrics, logger, d, *force)
			return nil
		})
	}
	g.Wait()

	printSummary(os.Stdout, results, time.Since(start))

	for _, r := range results {
		if r.Err != nil {
			return errProductsFailed
		}
	}
	return nil
}

// parseProducts turns the --products flag into an uppercase lookup set.
// An empty flag imports everything.
func parseProducts(list string) map[string]bool {
	set := make(map[string]bool)
	for _, p := range strings.Split(list, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			set[p] = true
		}
	}
	return set
}

func importProduct(ctx context.Context, st *store.Store, metrics *infrastructure.BusinessMetrics, logger *slog.Logger, d datafile.Discovery, force bool) productResult {
	res := productResult{Symbol: d.Symbol}
	log := logger.With(slog.String("product", d.Symbol))

	if d.MinutePath != "" {
		rows, skipped, err := importResolution(ctx, log, metrics, d.Symbol, d.MinutePath, resolution{
			name:   "1min",
			has:    st.HasMinuteData,
			parse:  datafile.ParseMinuteFile,
			insert: st.InsertMinuteBars,
		}, force)
		if err != nil {
			res.Err = err
			return res
		}
		res.MinuteRows = rows
		if skipped {
			res.Skipped++
		}
	}

	if d.DailyPath != "" {
		rows, skipped, err := importResolution(ctx, log, metrics, d.Symbol, d.DailyPath, resolution{
			name:   "daily",
			has:    st.HasDailyData,
			parse:  datafile.ParseDailyFile,
			insert: st.InsertDailyBars,
		}, force)
		if err != nil {
			res.Err = err
			return res
		}
		res.DailyRows = rows
		if skipped {
			res.Skipped++
		}
	}

	return res
}

func importResolution(ctx context.Context, log *slog.Logger, metrics *infrastructure.BusinessMetrics, symbol, path string, r resolution, force bool) (int64, bool, error) {
	if !force {
		has, err := r.has(ctx, symbol)
		if err != nil {
			return 0, false, fmt.Errorf("%s: check existing data: %w", r.name, err)
		}
		if has {
			log.Info("data already present, skipping", slog.String("interval", r.name))
			return 0, true, nil
		}
	}

	started := time.Now()
	parsed, err := r.parse(path)
	if err != nil {
		return 0, false, fmt.Errorf("%s: parse %s: %w", r.name, path, err)
	}
	if parsed.Skipped > 0 {
		log.Warn("malformed rows skipped",
			slog.String("interval", r.name),
			slog.Int("rows", parsed.Skipped))
	}

	rows, err := r.insert(ctx, symbol, parsed.Bars)
	if err != nil {
		return 0, false, fmt.Errorf("%s: insert: %w", r.name, err)
	}
	infrastructure.RecordImportRows(ctx, metrics, symbol, r.name, rows)

	log.Info("imported",
		slog.String("interval", r.name),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", time.Since(started)))
	return rows, false, nil
}

// printSummary renders the per-product table plus totals.
func printSummary(out io.Writer, results []productResult, elapsed time.Duration) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tMINUTE ROWS\tDAILY ROWS\tSTATUS")

	var imported, skipped, failed int
	var totalRows int64
	for _, r := range results {
		status := "imported"
		switch {
		case r.Err != nil:
			failed++
			status = "failed: " + r.Err.Error()
		case r.MinuteRows == 0 && r.DailyRows == 0 && r.Skipped > 0:
			skipped++
			status = "skipped"
		default:
			imported++
		}
		totalRows += r.MinuteRows + r.DailyRows
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.Symbol, r.MinuteRows, r.DailyRows, status)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d imported, %d skipped, %d failed, %d rows in %s\n",
		imported, skipped, failed, totalRows, elapsed.Round(time.Millisecond))
}
