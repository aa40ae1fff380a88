package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/blocks/codec"
	"github.com/kartikbazzad/bunbase/blocks/pkg/config"
	"github.com/kartikbazzad/bunbase/blocks/pkg/logger"
	"github.com/kartikbazzad/bunbase/blocks/storage"
	"github.com/kartikbazzad/bunbase/blocks/table"
)

// Global flags, applied over the loaded configuration.
var (
	configFile string
	logLevel   string
	backend    string
	endpoint   string
	workers    int
)

var (
	cfg = config.Default()
	fsys storage.FileSystem
)

var rootCmd = &cobra.Command{
	Use:           "blocks",
	Short:         "Assemble, iterate and divide tables stored as grids of files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load("BLOCKS_", configFile, &cfg); err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if flags.Changed("backend") {
			cfg.Storage.Backend = backend
		}
		if flags.Changed("endpoint") {
			cfg.Storage.Endpoint = endpoint
		}
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

		var err error
		fsys, err = newFileSystem(cfg.Storage)
		return err
	},
}

func newFileSystem(sc config.StorageConfig) (storage.FileSystem, error) {
	switch sc.Backend {
	case "minio", "s3":
		return storage.NewObjectStore(storage.ObjectConfig{
			Endpoint:          sc.Endpoint,
			AccessKeyID:       sc.AccessKeyID,
			SecretAccessKey:   sc.SecretAccessKey,
			UseSSL:            sc.UseSSL,
			Region:            sc.Region,
			RequestsPerSecond: sc.RequestsPerSecond,
			Retry: &storage.Retrier{
				InitialDelay: sc.RetryDelay,
				MaxDelay:     time.Second,
				MaxRetries:   sc.MaxRetries,
			},
			Logger: logger.Get(),
		})
	default:
		return storage.NewLocal(), nil
	}
}

// parseOptions decodes a JSON codec options flag; empty means defaults.
func parseOptions(raw string) (codec.Options, error) {
	return codec.ParseOptions([]byte(raw))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// printTable writes t to w in the given format.
func printTable(w io.Writer, t *table.Table, format string) error {
	return codec.Write(w, t, "stdout", codec.Options{Format: format})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (yaml, json, toml or .env)")
	pf.StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")
	pf.StringVar(&backend, "backend", "", "storage backend: local or minio")
	pf.StringVar(&endpoint, "endpoint", "", "object store endpoint for the minio backend")
	pf.IntVar(&workers, "workers", 0, "parallel readers for inspect")

	rootCmd.AddCommand(assembleCmd(), iterateCmd(), inspectCmd(), divideCmd(), placeCmd())
}
