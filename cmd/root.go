package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"

	"github.com/yi-nology/photo_bridge/pkg/config"
)

var (
	configFile string

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "photo_bridge",
	Short: "Photo gallery service with object-store and filesystem storage",
	Long: "photo_bridge serves the photo gallery API.\n\n" +
		"Uploads are transformed into WebP variants and stored in an S3-compatible\n" +
		"bucket, falling back to the local uploads directory when the bucket is unavailable.",
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	hlog.SetLevel(logLevel(cfg.Log.Level))
	return nil
}

func logLevel(name string) hlog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return hlog.LevelTrace
	case "debug":
		return hlog.LevelDebug
	case "warn", "warning":
		return hlog.LevelWarn
	case "error":
		return hlog.LevelError
	case "fatal":
		return hlog.LevelFatal
	default:
		return hlog.LevelInfo
	}
}
