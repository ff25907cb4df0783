package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/klefe6/almanac/internal/config"
	"github.com/klefe6/almanac/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Keep store logging out of the report output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

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
		fmt.Fprintf(os.Stderr, "cannot connect to %s:%d/%s: %v\n\n",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, err)
		fmt.Fprintln(os.Stderr, "check that:")
		fmt.Fprintln(os.Stderr, "  - PostgreSQL is running (systemctl status postgresql)")
		fmt.Fprintf(os.Stderr, "  - the credentials match (user %q, ALMANAC_DATABASE_PASSWORD)\n", cfg.Database.User)
		fmt.Fprintf(os.Stderr, "  - the database exists (createdb %s)\n", cfg.Database.Name)
		os.Exit(1)
	}
	defer st.Close()

	version, err := st.ServerVersion(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query server version: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("connected to %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	fmt.Printf("server: %s\n\n", version)

	coverage, err := st.Coverage(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query coverage: %v\n", err)
		os.Exit(1)
	}
	if len(coverage) == 0 {
		fmt.Println("no products found; run the importer to load bar data")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tMINUTE ROWS\tDAILY ROWS\tFIRST DAY\tLAST DAY")
	for _, p := range coverage {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			p.Symbol, p.MinuteBars, p.DailyBars, day(p.FirstDay), day(p.LastDay))
	}
	w.Flush()
}

func day(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
