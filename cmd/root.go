package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/foxcheck/config"
	"github.com/s0up4200/foxcheck/filter"
	"github.com/s0up4200/foxcheck/foxentry"
	"github.com/s0up4200/foxcheck/output"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *foxentry.Client
	filters *filter.Manager

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "foxcheck",
	Short: "Validate emails, phones, names, companies and addresses with Foxentry",
	Long: `foxcheck is a CLI for the Foxentry data validation API.

Every API operation is available as "foxcheck <resource> <operation>":

  foxcheck email validate info@foxentry.com
  foxcheck phone validate -q numberWithPrefix=+420607123456
  foxcheck location search --query-json '{"type":"city","value":"Praha"}'

Results can be narrowed with --where expressions or filter presets from
the config file, and whole files can be checked with "foxcheck bulk".`,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
	SilenceUsage:       true,
}

// SetVersion sets the build information reported by version and update
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	for _, resource := range resourceNames() {
		rootCmd.AddCommand(newResourceCmd(resource))
	}
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp loads the configuration and creates the client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	client, err = newClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create Foxentry client: %w", err)
	}

	filters = filter.NewManager()
	if err := filters.RegisterFilters(cfg.Filter.Presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	logger.Debug().
		Str("base_url", client.BaseURL()).
		Str("api_version", client.APIVersion()).
		Strs("presets", filters.ListFilters()).
		Msg("Initialized")

	return nil
}

// shutdownApp stops the filter workers
func shutdownApp(cmd *cobra.Command, args []string) error {
	if filters == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return filters.Close(ctx)
}

func newClient(cfg *config.Config, logger zerolog.Logger) (*foxentry.Client, error) {
	opts := []foxentry.Option{
		foxentry.WithBaseURL(cfg.Foxentry.BaseURL),
		foxentry.WithAPIVersion(cfg.Foxentry.APIVersion),
		foxentry.WithTimeout(cfg.Foxentry.Timeout),
		foxentry.WithUserAgent(cfg.Foxentry.UserAgent),
		foxentry.WithMaxResponseSize(cfg.Foxentry.MaxResponseSize),
		foxentry.WithIncludeRequestDetails(cfg.Foxentry.IncludeRequestDetails),
	}

	if info, ok := defaultClientInfo(cfg.Client); ok {
		opts = append(opts, foxentry.WithDefaultClientInfo(info))
	}

	return foxentry.NewClient(cfg.Foxentry.APIKey, logger, opts...)
}

// defaultClientInfo converts the validated client section; ok is false when
// nothing is configured
func defaultClientInfo(c config.ClientConfig) (foxentry.ClientInfo, bool) {
	var info foxentry.ClientInfo
	if c.IP != "" {
		info.IP = &c.IP
	}
	if c.Country != "" {
		info.Country = &c.Country
	}
	if c.Lat != nil && c.Lon != nil {
		info.Location = &foxentry.Coordinates{Lat: *c.Lat, Lon: *c.Lon}
	}
	return info, info.IP != nil || info.Country != nil || info.Location != nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	color := output.UseColor(os.Stderr, cfg.Color)
	writer := zerolog.ConsoleWriter{
		Out:        output.Writer(os.Stderr, color),
		TimeFormat: time.RFC3339,
		NoColor:    !color,
	}

	return zerolog.New(writer).With().Timestamp().Logger()
}

// stdout returns the command's output and whether it may be colored
func stdout(cmd *cobra.Command) (io.Writer, bool) {
	w := cmd.OutOrStdout()
	if f, ok := w.(*os.File); ok {
		color := output.UseColor(f, cfg.Logging.Color)
		return output.Writer(f, color), color
	}
	return w, false
}
