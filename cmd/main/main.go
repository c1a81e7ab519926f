package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"fouani/storesync/internal/config"
	"fouani/storesync/internal/container"
	"fouani/storesync/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:          "storesync",
		Short:        "Crawl the storefront catalogue and keep the product store in sync",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	root.AddCommand(
		serveCommand(),
		runCommand(),
		menuCommand(),
		crawlCommand(),
		dedupeCommand(),
		syncCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}
}

// withContainer loads configuration, builds the container and hands it to fn
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, app *container.Container) error) error {
	// Load configuration using viper
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	config.SetupLogging(cfg.Log)
	log.Info("Configuration loaded successfully")

	ctx := cmd.Context()

	// Initialize container with all dependencies
	app, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the trigger and status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				return app.NewServer(ctx).Start(ctx)
			})
		},
	}
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline once: menu, crawl, dedupe, sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				if !app.Tracker.TryStart() {
					return domain.ErrRunInProgress
				}
				report, err := app.Service.Run(ctx)
				app.Tracker.Finish(err)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
}

func menuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Rebuild the category tree from the storefront navigation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				tree, err := app.Service.BuildMenu(ctx)
				if err != nil {
					return err
				}
				log.Infof("✅ Saved %d categories to %s", tree.Count(), app.Config.Files.Menu)
				return nil
			})
		},
	}
}

func crawlCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every leaf category into the raw products file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				_, stats, err := app.Service.Crawl(ctx)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
}

func dedupeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Merge the raw products file into the deduplicated file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				raw, err := app.Files.LoadRaw()
				if err != nil {
					return err
				}
				_, report, err := app.Service.Dedupe(raw)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
}

func syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the deduplicated products file with the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
				records, err := app.Files.LoadDedup()
				if err != nil {
					return err
				}
				report, err := app.Service.Sync(ctx, records)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
}
