package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"repowatch/internal/config"
	"repowatch/internal/paths"
)

var (
	configFormat    string
	configShowDiff  bool
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repowatch configuration",
	Long:  "View and manage the configuration stored in <data dir>/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, config.json and
REPOWATCH_* environment overrides are applied.

Examples:
  repowatch config show              # Pretty-print current config
  repowatch config show --format yaml
  repowatch config show --diff       # Only show non-default values`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (human, json, yaml)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config.json")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(configFormat)
	if err != nil {
		return err
	}

	dataDir, err := paths.GetDataDir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	current, err := toMap(cfg)
	if err != nil {
		return err
	}
	if configShowDiff {
		defaults, err := toMap(config.DefaultConfig())
		if err != nil {
			return err
		}
		current = computeDiff(current, defaults)
	}

	var out string
	switch format {
	case FormatJSON:
		out, err = formatJSON(current)
	case FormatYAML:
		out, err = formatYAML(current)
	default:
		out = formatConfigHuman(paths.ConfigPath(dataDir), current)
	}
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dataDir, err := paths.GetDataDir()
	if err != nil {
		return err
	}
	path := paths.ConfigPath(dataDir)
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(dataDir); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// toMap converts the config into its JSON object form
func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func formatConfigHuman(path string, m map[string]interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config file: %s\n", path)
	if len(m) == 0 {
		b.WriteString("\nAll values are defaults.")
		return b.String()
	}
	writeConfigSection(&b, m, "")
	return strings.TrimRight(b.String(), "\n")
}

func writeConfigSection(b *strings.Builder, m map[string]interface{}, prefix string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if nested, ok := m[k].(map[string]interface{}); ok {
			writeConfigSection(b, nested, prefix+k+".")
			continue
		}
		fmt.Fprintf(b, "  %s%s = %v\n", prefix, k, m[k])
	}
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	computeDiffRecursive(current, defaults, diff)
	return diff
}

func computeDiffRecursive(current, defaults map[string]interface{}, diff map[string]interface{}) {
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]
		if !exists {
			diff[key] = currentVal
			continue
		}

		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			nestedDiff := make(map[string]interface{})
			computeDiffRecursive(currentMap, defaultMap, nestedDiff)
			if len(nestedDiff) > 0 {
				diff[key] = nestedDiff
			}
		} else if fmt.Sprintf("%v", currentVal) != fmt.Sprintf("%v", defaultVal) {
			diff[key] = currentVal
		}
	}
}
