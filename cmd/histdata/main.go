package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-histdata/internal/logger"
	"github.com/rxtech-lab/argo-histdata/internal/version"
	"github.com/rxtech-lab/argo-histdata/pkg/histcache"
	"github.com/rxtech-lab/argo-histdata/pkg/histdata"
	"github.com/rxtech-lab/argo-histdata/pkg/provider"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// syncAction is the core logic executed by the sync command.
// It loads the run configuration, sets up the sync client, and runs every
// request in order.
func syncAction(ctx context.Context, cmd *cli.Command) error {
	config, source, err := loadSyncConfig(cmd)
	if err != nil {
		return err
	}

	l, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := histdata.NewClient(config.ClientConfig(), l)
	if err != nil {
		return fmt.Errorf("failed to create sync client: %w", err)
	}
	defer client.Close()

	log.Printf("Syncing %d request(s) from %s using %s provider...",
		len(config.Requests), source, config.Provider.Type)

	for _, requestConfig := range config.Requests {
		request, err := requestConfig.ToRequest()
		if err != nil {
			return fmt.Errorf("invalid request for %s: %w", requestConfig.Symbol, err)
		}

		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription(fmt.Sprintf("Syncing %s", requestConfig.Symbol)),
			progressbar.OptionShowCount())
		client.SetOnFetchProgress(func(current, total float64, message string) {
			if total <= 0 {
				return
			}
			bar.Describe(message)
			_ = bar.Set(int(current / total * 100))
		})

		result, err := client.Sync(ctx, request)

		_ = bar.Finish()
		client.SetOnFetchProgress(nil)

		if err != nil {
			return fmt.Errorf("sync failed for %s: %w", requestConfig.Symbol, err)
		}

		if result.Empty() {
			log.Printf("Synced %s %s %s: no bars in window",
				requestConfig.Symbol, requestConfig.BarSize, request.DataType)
			continue
		}

		first := result.First().Unwrap()
		last := result.Last().Unwrap()
		log.Printf("Synced %s %s %s: %d bars from %s to %s",
			requestConfig.Symbol, requestConfig.BarSize, request.DataType, result.Len(),
			first.Time.Format(time.DateTime), last.Time.Format(time.DateTime))
	}

	log.Println("Sync completed successfully.")
	return nil
}

// loadSyncConfig builds the run configuration. A --symbol flag turns the
// command into a one-off sync assembled from the other flags; otherwise the
// YAML config file drives the run. The returned source string names where the
// configuration came from for logging.
func loadSyncConfig(cmd *cli.Command) (*histdata.SyncConfig, string, error) {
	if symbol := cmd.String("symbol"); symbol != "" {
		config := &histdata.SyncConfig{
			Provider: provider.Config{
				Type:   provider.ProviderType(cmd.String("provider")),
				APIKey: os.Getenv("POLYGON_API_KEY"),
			},
			CachePath: cmd.String("cache"),
			Requests: []histdata.RequestConfig{
				{
					SecurityType: types.SecurityType(cmd.String("sectype")),
					Symbol:       symbol,
					BarSize:      cmd.String("barsize"),
					Duration:     cmd.String("duration"),
					Start:        formatFlagTime(cmd.Timestamp("start")),
					End:          formatFlagTime(cmd.Timestamp("end")),
					DataType:     types.DataType(cmd.String("datatype")),
				},
			},
		}

		if err := config.Validate(); err != nil {
			return nil, "", err
		}

		return config, "flags", nil
	}

	configPath := cmd.String("config")

	yamlBytes, err := os.ReadFile(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Environment references like ${POLYGON_API_KEY} expand before parsing
	// so credentials stay out of the file.
	config, err := histdata.ParseSyncConfig(os.ExpandEnv(string(yamlBytes)))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse config %s: %w", configPath, err)
	}

	return config, configPath, nil
}

// formatFlagTime carries an optional timestamp flag into the config layer,
// where empty means unset.
func formatFlagTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}

// coverageAction prints one line per cached series so a user can see what the
// cache file already holds without opening it.
func coverageAction(ctx context.Context, cmd *cli.Command) error {
	cachePath := cmd.String("cache")

	// The store logs through zap; a nop logger keeps the table as the only output.
	store, err := histcache.NewDuckDBStore(cachePath, logger.NewNop())
	if err != nil {
		return fmt.Errorf("failed to open cache %s: %w", cachePath, err)
	}
	defer store.Close()

	rows, err := store.Coverage(ctx)
	if err != nil {
		return fmt.Errorf("failed to read coverage: %w", err)
	}

	if len(rows) == 0 {
		log.Println("Cache is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tSYMBOL\tDATA\tSIZE\tBARS\tFIRST\tLAST")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			row.SecurityType, row.Symbol, row.DataType, row.BarSize, row.Bars,
			row.FirstTime.Format(time.DateTime), row.LastTime.Format(time.DateTime))
	}
	return w.Flush()
}

func main() {
	// Define the CLI application
	cmd := &cli.Command{
		Name:    "histdata",
		Usage:   "Synchronize and inspect the historical bar cache",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Run the sync requests from a config file, or a single request from flags",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the sync config YAML file",
						Value:    filepath.Join("config", "histdata-sync-config.yaml"),
						Required: false,
					},
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"t"},
						Usage:    "Symbol for a one-off sync; when set the config file is ignored",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "sectype",
						Usage:    "Instrument class of the one-off contract",
						Value:    string(types.SecurityTypeStock),
						Required: false,
					},
					&cli.StringFlag{
						Name:     "barsize",
						Aliases:  []string{"b"},
						Usage:    "Width of one bar such as 5m or 1d",
						Value:    "1d",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "duration",
						Usage:    "How far back from the end the sync reaches, such as 10d or 1Y",
						Required: false,
					},
					&cli.TimestampFlag{
						Name:    "start",
						Aliases: []string{"s"},
						Usage:   "Window start in `YYYY-MM-DD` format, overriding the duration",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
						Required: false,
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "Window end in `YYYY-MM-DD` format. Defaults to now.",
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
						Required: false,
					},
					&cli.StringFlag{
						Name:     "datatype",
						Usage:    "Series of the contract to request",
						Value:    string(types.DataTypeTrades),
						Required: false,
					},
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    fmt.Sprintf("Data provider to use (e.g., %s, %s)", provider.ProviderBinance, provider.ProviderPolygon),
						Value:    string(provider.ProviderBinance),
						Required: false,
					},
					&cli.StringFlag{
						Name:     "cache",
						Aliases:  []string{"d"},
						Usage:    "Path to the DuckDB cache file",
						Value:    "histdata.db",
						Required: false,
					},
				},
				Action: syncAction,
			},
			{
				Name:  "coverage",
				Usage: "List the series the cache currently holds",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "cache",
						Aliases:  []string{"d"},
						Usage:    "Path to the DuckDB cache file",
						Value:    "histdata.db",
						Required: false,
					},
				},
				Action: coverageAction,
			},
		},
	}

	// Run the CLI application
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
