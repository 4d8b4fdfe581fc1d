package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/topolens/topolens/pkg/util"
	"github.com/topolens/topolens/pkg/version"
)

var (
	jsonLogs bool
	logLevel string
)

// errConfiguration signals a bad flag/config combination (exit code 2),
// as distinct from an operational failure during the crawl (exit code 1).
var errConfiguration = errors.New("configuration error")

func main() {
	rootCmd := &cobra.Command{
		Use:   "cartographer",
		Short: "Crawl a network over SSH and assemble a topology map",
		Long: `Cartographer logs into a seed device over SSH, fingerprints it,
collects CDP/LLDP neighbor claims, and follows discovered neighbors
breadth-first until the device graph is exhausted or max_devices is hit.

  cartographer discover --config config.yaml
  cartographer version`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if jsonLogs {
				util.SetJSONFormat()
			}
			if logLevel != "" {
				if err := util.SetLogLevel(logLevel); err != nil {
					util.Warnf("invalid log level %q: %v", logLevel, err)
				}
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit structured JSON logs instead of text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newDiscoverCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version.Info())
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errConfiguration) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
