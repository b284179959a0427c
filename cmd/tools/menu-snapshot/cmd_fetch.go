package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"restaurant-site/internal/common/config"
	"restaurant-site/internal/feeds/menu"
	"restaurant-site/pkg/bundle"
)

var fetchFlags struct {
	categories []int
	out        string
	parallel   int
	dryRun     bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch featured items from the live menu API and write the bundle",
	RunE:  runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.IntSliceVar(&fetchFlags.categories, "category", nil, "Category id to snapshot (repeatable; default: menu.category_id)")
	f.StringVarP(&fetchFlags.out, "out", "o", "", "Bundle path (default: menu.bundle_path)")
	f.IntVar(&fetchFlags.parallel, "parallel", 4, "Categories fetched at once")
	f.BoolVar(&fetchFlags.dryRun, "dry-run", false, "Print the bundle instead of writing it")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := newFetcher(30*time.Second, config.GetDuration(cfg.Fetch.BaseDelay))
	svc, err := menu.NewService(menu.Config{Menu: cfg.Menu, Fetch: cfg.Fetch}, menu.Deps{
		Fetcher: fetcher,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	categories := fetchFlags.categories
	if len(categories) == 0 {
		categories = []int{cfg.Menu.CategoryID}
	}
	out := fetchFlags.out
	if out == "" {
		out = cfg.Menu.BundlePath
	}

	s := &snapshotter{
		menu:     svc,
		fetcher:  fetcher,
		logger:   log,
		parallel: fetchFlags.parallel,
		now:      time.Now,
	}
	b, err := s.Run(ctx, categories)
	if err != nil {
		return err
	}

	if fetchFlags.dryRun {
		return printBundle(cmd, b)
	}
	if err := bundle.SaveMenu(out, b); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d items from %d categories to %s\n",
		len(b.Data.FeaturedItems), len(b.Sources), out)
	return nil
}

func printBundle(cmd *cobra.Command, b *bundle.MenuBundle) error {
	for _, src := range b.Sources {
		fmt.Fprintf(cmd.OutOrStdout(), "category %d: %d items (%s)\n", src.CategoryID, src.Items, src.URL)
	}
	return nil
}
