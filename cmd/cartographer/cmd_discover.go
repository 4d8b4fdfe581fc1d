package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/topolens/topolens/pkg/cli"
	"github.com/topolens/topolens/pkg/config"
	"github.com/topolens/topolens/pkg/crawler"
	"github.com/topolens/topolens/pkg/discovery"
)

func newDiscoverCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run a discovery crawl from a YAML config and write the topology map",
		Long: `Discover loads a YAML run configuration, crawls the network starting
from its seed_ip, and writes the assembled topology map as JSON under
output_dir/map_name.json.

  cartographer discover --config config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("%w: --config is required", errConfiguration)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("%w: %v", errConfiguration, err)
			}

			if cfg.Password == "" {
				pw, err := config.PromptPassword(fmt.Sprintf("Password for %s: ", cfg.Username))
				if err != nil {
					return fmt.Errorf("%w: %v", errConfiguration, err)
				}
				cfg.Password = pw
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: %v", errConfiguration, err)
			}

			return runDiscover(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML run configuration")
	return cmd
}

func runDiscover(ctx context.Context, cfg *config.Config) error {
	onEvent := func(ev crawler.ProgressEvent) {
		if !cfg.Verbose {
			return
		}
		fmt.Printf("  [%s] %s (discovered=%d failed=%d queued=%d)\n",
			cli.StatusColor(ev.Status), ev.IP, ev.DevicesDiscovered, ev.DevicesFailed, ev.DevicesQueued)
	}

	fmt.Printf("Discovering from seed %s...\n", cfg.SeedIP)

	result, err := discovery.Discover(ctx, cfg, discovery.Options{OnProgress: onEvent})
	if err != nil {
		return err
	}

	if err := writeTopologyJSON(cfg, result); err != nil {
		return err
	}

	if cfg.SaveDebugInfo {
		if err := writeDebugArtifacts(cfg, result); err != nil {
			return err
		}
	}

	printSummary(result)
	return nil
}

// writeDebugArtifacts persists the raw per-device command output captured
// during the run as one JSON file per device under output_dir/debug.
func writeDebugArtifacts(cfg *config.Config, result *discovery.Result) error {
	if len(result.Debug) == 0 {
		return nil
	}
	dir := filepath.Join(cfg.OutputDir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating debug dir %s: %w", dir, err)
	}
	for hostname, rec := range result.Debug {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling debug record for %s: %w", hostname, err)
		}
		path := filepath.Join(dir, hostname+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing debug record for %s: %w", hostname, err)
		}
	}
	fmt.Printf("Wrote %d debug artifact(s) to %s\n", len(result.Debug), dir)
	return nil
}

func writeTopologyJSON(cfg *config.Config, result *discovery.Result) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output_dir %s: %w", cfg.OutputDir, err)
	}

	data, err := json.MarshalIndent(result.Topology, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling topology map: %w", err)
	}

	final := filepath.Join(cfg.OutputDir, cfg.MapName+".json")
	tmp, err := os.CreateTemp(cfg.OutputDir, "."+cfg.MapName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file into place: %w", err)
	}

	fmt.Printf("Wrote topology map to %s\n", final)
	return nil
}

func printSummary(result *discovery.Result) {
	fmt.Printf("\nRun %s complete in %s\n", result.RunID, result.Duration.Round(1_000_000))
	fmt.Printf("  discovered: %s\n", cli.Green(fmt.Sprint(result.Stats.Discovered)))
	fmt.Printf("  failed:     %s\n", cli.Red(fmt.Sprint(result.Stats.Failed)))
	fmt.Printf("  unreachable: %d\n", result.Stats.Unreachable)
	if result.Assembly.LinksDropped > 0 {
		fmt.Printf("  links dropped (unconfirmed): %d\n", result.Assembly.LinksDropped)
	}

	names := make([]string, 0, len(result.Topology))
	for name := range result.Topology {
		names = append(names, name)
	}
	sort.Strings(names)

	t := cli.NewTable("NODE", "IP", "PLATFORM", "PEERS").WithPrefix("  ")
	for _, name := range names {
		node := result.Topology[name]
		t.Row(name, node.NodeDetails.IP, node.NodeDetails.Platform, fmt.Sprint(len(node.Peers)))
	}
	fmt.Println()
	t.Flush()
}
