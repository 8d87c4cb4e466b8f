package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/komsit37/mf/pkg/mf/columns"
	"github.com/komsit37/mf/pkg/mf/config"
	"github.com/komsit37/mf/pkg/mf/enrich"
	"github.com/komsit37/mf/pkg/mf/render"
	"github.com/komsit37/mf/pkg/mf/server"
	"github.com/komsit37/mf/pkg/mf/types"
)

var (
	configPath string
	v          *viper.Viper
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mf",
		Short:         "Rank stocks by the Magic Formula (earnings yield + return on capital)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			v, err = config.New(configPath)
			if err != nil {
				return err
			}
			return v.BindPFlags(cmd.Flags())
		},
		RunE: runScan,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default ./mf.yaml or ~/.config/mf/mf.yaml)")
	pf.String(config.KeyExchanges, "NASDAQ,NYSE,AMEX", "Comma-separated FMP exchange codes (e.g. NASDAQ,NYSE,LSE)")
	pf.Int(config.KeyTop, 30, "How many top results to keep")
	pf.Float64(config.KeyMinMcap, 50e6, "Minimum market cap in USD (e.g. 5e7)")
	pf.Int(config.KeyLimit, 400, "Max symbols to scan (0 = all)")
	pf.Bool(config.KeyRandom, false, "Shuffle symbols before applying --limit")
	pf.Bool(config.KeyAnnual, false, "Use the latest annual EBIT instead of TTM quarters")
	pf.String(config.KeyCountries, "", "Comma-separated country codes (default US)")
	pf.Bool(config.KeyTier1, false, "Use Tier 1 markets: US, SG, GB, CA")
	pf.Int(config.KeyWorkers, 5, "Concurrent fetch workers")
	pf.String(config.KeyTickers, "", "Scan these tickers instead of the screener: comma list, YAML file or directory")
	pf.String(config.KeyMatch, "", "Only scan tickers matching: AAPL,MSFT | glob MS* | /regex/ | substring")
	pf.Bool(config.KeyCheckDebt, false, "Drop top picks whose debt/equity is not falling while revenue grows")
	pf.Bool(config.KeyCheckCashflow, false, "Drop top picks whose operating cash flow trails net income")
	pf.String(config.KeyCacheDir, "cache", "Cache directory")
	pf.Bool(config.KeyNoCache, false, "Do not read or write the on-disk cache")
	pf.String(config.KeyLogLevel, "warn", "Log level: debug, info, warn, error")
	pf.String(config.KeyLogFile, "", "Also write logs to this file")

	f := rootCmd.Flags()
	f.Bool(config.KeyQuotes, false, "Add live price and change columns (Yahoo Finance)")
	f.String("out", server.ExportName(time.Now()), "Output CSV path (empty to skip)")
	f.String("format", "table", "Stdout format: "+strings.Join(render.Formats, "|"))
	f.String("columns", "", "Table columns or column sets, comma-separated (sets: "+strings.Join(setNames(), ", ")+")")
	f.Bool("no-progress", false, "Hide the progress bar")

	rootCmd.AddCommand(newServeCmd(), newCacheCmd())

	if err := rootCmd.Execute(); err != nil {
		var ce *config.Error
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.Error())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	format := v.GetString("format")
	renderer, err := render.New(format)
	if err != nil {
		return err
	}
	cols, err := parseColumns(v.GetString("columns"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, newLogger(cmd, cfg, ""))
	if err != nil {
		return err
	}
	defer a.Close()

	runner, opts, err := a.runner()
	if err != nil {
		return err
	}
	width := terminalWidth(os.Stdout)
	var bar *progressBar
	if !v.GetBool("no-progress") && terminalWidth(os.Stderr) > 0 {
		bar = newProgressBar(os.Stderr)
		opts.Progress = bar.Update
		defer bar.Stop()
	}

	rep, err := runner.Scan(ctx, opts)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return err
	}
	if cfg.Quotes {
		enrich.Quotes(ctx, enrich.NewYFService(5*time.Second), rep.Results, 4, a.logger)
	}

	if out := v.GetString("out"); out != "" {
		if err := writeCSV(out, rep); err != nil {
			return err
		}
		a.logger.Info().Str("path", out).Int("rows", len(rep.Results)).Msg("CSV written")
	}

	if len(rep.Results) == 0 {
		fmt.Fprintln(os.Stderr, "No qualifying records. Try increasing --limit or lowering --min-mcap.")
	}
	return renderer.Render(os.Stdout, rep, render.RenderOptions{
		Columns:    cols,
		Color:      width > 0,
		PrettyJSON: true,
		Width:      width,
		Summary:    format == "" || format == "table",
	})
}

func writeCSV(path string, rep *types.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render.NewCSVRenderer().Render(f, rep, render.RenderOptions{}); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// parseColumns expands set names and validates column keys.
func parseColumns(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, ok := columns.Sets[tok]; ok {
			expanded, err := columns.ExpandSets([]string{tok})
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			continue
		}
		out = append(out, tok)
	}
	out = columns.Compute(out, false)
	if err := columns.Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

func setNames() []string {
	names := make([]string, 0, len(columns.Sets))
	for name := range columns.Sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
