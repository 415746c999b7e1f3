// Command directoryctl queries the marketplace listing from a terminal
// using the same controller and renderer as the directory service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/catalog"
	"github.com/terra-clan/build-directory/internal/logger"
	"github.com/terra-clan/build-directory/internal/models"
	"github.com/terra-clan/build-directory/pkg/client"
)

type rootOptions struct {
	upstreamURL string
	apiKey      string
	timeout     time.Duration
	catalogDir  string
	region      string
	verbose     bool

	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "directoryctl",
		Short: "Browse the Kamshet.Build professional directory",
		Long: `directoryctl searches contractors and architects listed on the
marketplace API and prints the result the way the listing page shows it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			log, err := logger.New(level, "console")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.upstreamURL, "url", envOr("UPSTREAM_URL", "http://localhost:5000"), "marketplace API base URL")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("UPSTREAM_API_KEY"), "marketplace API key")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")
	flags.StringVar(&opts.catalogDir, "catalog-dir", "./catalog", "directory with region catalogs")
	flags.StringVar(&opts.region, "region", "kamshet", "catalog region used for labels")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSearchCmd(opts), newProfileCmd(opts))
	return root
}

func (o *rootOptions) client() *client.Client {
	return client.NewClient(o.upstreamURL,
		client.WithAPIKey(o.apiKey),
		client.WithTimeout(o.timeout),
		client.WithLogger(o.log.Named("upstream")),
	)
}

// catalog returns the configured region or nil, in which case raw values
// are printed.
func (o *rootOptions) catalog() *models.Catalog {
	loader := catalog.NewLoader(o.log)
	if err := loader.LoadFromDir(o.catalogDir); err != nil {
		o.log.Debug("catalog not loaded", zap.String("dir", o.catalogDir), zap.Error(err))
		return nil
	}
	return loader.Get(o.region)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
