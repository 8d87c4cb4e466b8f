package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/komsit37/mf/pkg/mf/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the fundamentals cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache entry counts and age",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openCache(cmd)
				if err != nil {
					return err
				}
				defer a.Close()

				st, err := a.cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.SetStyle(table.StyleLight)
				tw.AppendRows([]table.Row{
					{"Directory", a.cfg.CacheDir},
					{"TTL", a.cfg.CacheTTL.String()},
					{"Entries", strconv.Itoa(st.Entries)},
					{"Fresh", strconv.Itoa(st.Fresh)},
					{"Stale", strconv.Itoa(st.Stale)},
					{"Oldest", formatTime(st.Oldest)},
					{"Newest", formatTime(st.Newest)},
				})
				tw.Render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Delete entries older than the TTL",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openCache(cmd)
				if err != nil {
					return err
				}
				defer a.Close()
				n, err := a.cache.Purge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Purged %d stale entries\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cache entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := openCache(cmd)
				if err != nil {
					return err
				}
				defer a.Close()
				n, err := a.cache.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Cleared %d entries\n", n)
				return nil
			},
		},
	)
	return cmd
}

// openCache wires the app without requiring an API key; no network calls
// are made by the cache commands.
func openCache(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, newLogger(cmd, cfg, ""))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
