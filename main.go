package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/researchaccelerator-hub/odysee-scraper/common"
	"github.com/researchaccelerator-hub/odysee-scraper/standalone"
	"github.com/spf13/cobra"
)

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"channel-id":          "channel_id",
	"output-dir":          "output_dir",
	"timezone":            "timezone",
	"page-size":           "page_size",
	"log-level":           "log_level",
	"requests-per-second": "requests_per_second",
	"channel-cache-size":  "channel_cache_size",
	"timeout":             "timeout",
	"thumbnails":          "thumbnails",
	"engagement":          "engagement",
	"comments":            "comments",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "odysee-scraper",
		Short:        "Write comment and video reports for an Odysee channel",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Configuration file (yaml, toml or json)")
	flags.String("channel-id", "", "Claim id of the channel (About page of the channel)")
	flags.String("output-dir", ".", "Directory for the report, log and thumbnail files")
	flags.String("timezone", "Europe/Paris", "IANA timezone used for every date")
	flags.Int("page-size", 999, "Requested page size, the API may cap it")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Float64("requests-per-second", 0, "Pace outbound requests, 0 disables pacing")
	flags.Int("channel-cache-size", 0, "Channel titles kept across claims, 0 disables the cache")
	flags.Duration("timeout", 0, "HTTP timeout per request (default 30s)")

	root.AddCommand(
		&cobra.Command{
			Use:   "comments",
			Short: "Write every claim of the channel followed by its comment thread",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd, configFile)
				if err != nil {
					return err
				}
				ctx, stop := signalContext()
				defer stop()
				return standalone.RunComments(ctx, cfg)
			},
		},
		newVideosCmd(&configFile),
	)

	return root
}

func newVideosCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "Write every claim of the channel with its views, reactions and comment count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configFile)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return standalone.RunVideos(ctx, cfg)
		},
	}

	cmd.Flags().Bool("thumbnails", false, "Download the thumbnail of every claim")
	cmd.Flags().Bool("engagement", true, "Fetch views, likes and dislikes (needs an anonymous session)")
	cmd.Flags().Bool("comments", false, "Append the comment thread of every claim")
	return cmd
}

// loadConfig layers flags over ODYSEE_* variables, the config file and defaults.
func loadConfig(cmd *cobra.Command, configFile string) (*common.ReportConfig, error) {
	v, err := common.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return common.LoadReportConfig(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
