package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"servefetch/downloader"
	"servefetch/internal"
)

var (
	hostFlag        string
	tokenFlag       string
	quietFlag       bool
	debugFlag       bool
	logLevelFlag    string
	logFileFlag     string
	connectionsFlag int
	retriesFlag     int

	config *internal.Config
	client *http.Client
)

var rootCmd = &cobra.Command{
	Use:     "sf",
	Short:   "Download, upload, and list files on a serve-compatible file server",
	Version: "v1.0.0",
	Long: `sf is a client for a serve-style HTTP file server: resumable
multi-connection downloads, streaming uploads, and directory listings.

Examples:
  sf -H files.example.com:8080 list /docs/
  sf -H files.example.com:8080 download /docs/report.pdf -o report.pdf
  sf -H files.example.com:8080 download --recursive /docs/ -o ./docs
  sf -H files.example.com:8080 -T $SERVEFETCH_TOKEN upload ./report.pdf --dir 42`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config = internal.DefaultConfig()
		config.LoadFromEnv()

		if connectionsFlag == 4 {
			connectionsFlag = config.DefaultConnections
		}
		if retriesFlag == 3 {
			retriesFlag = config.MaxRetries
		}
		if debugFlag {
			config.EnableDebug = true
			config.LogLevel = "debug"
		}
		if quietFlag {
			config.QuietMode = true
		}
		if logLevelFlag != "" {
			config.LogLevel = logLevelFlag
		}
		if logFileFlag != "" {
			config.LogFile = logFileFlag
		}
		if err := config.ValidateConfig(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if hostFlag == "" {
			hostFlag = internal.GetEnvWithDefault("SERVEFETCH_HOST", "")
		}
		if hostFlag == "" {
			return fmt.Errorf("a server address is required: pass --host or set SERVEFETCH_HOST")
		}
		if tokenFlag == "" {
			tokenFlag = os.Getenv("SERVEFETCH_TOKEN")
		}

		internal.LogInfo("sf starting up against %s", hostFlag)

		downloader.InstallSignalHandler()
		client = downloader.BuildClient()

		return nil
	},
}

func init() {
	config = internal.DefaultConfig()

	rootCmd.PersistentFlags().StringVarP(&hostFlag, "host", "H", "", "server address, host[:port] or scheme://host[:port] (env: SERVEFETCH_HOST)")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "T", "", "bearer token for authenticated endpoints (env: SERVEFETCH_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress progress bars and status lines")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging (env: SERVEFETCH_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error (env: SERVEFETCH_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "write logs to file instead of stderr (env: SERVEFETCH_LOG_FILE)")
	rootCmd.PersistentFlags().IntVarP(&connectionsFlag, "connections", "n", config.DefaultConnections, "number of connections for a multi-stream download (1-16) (env: SERVEFETCH_CONNECTIONS)")
	rootCmd.PersistentFlags().IntVar(&retriesFlag, "retries", config.MaxRetries, "maximum attempts for a retryable operation (env: SERVEFETCH_RETRIES)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(listCmd)

	color.NoColor = false
}

func Execute() error {
	return rootCmd.Execute()
}
