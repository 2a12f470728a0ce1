package main

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"doccov/internal/config"
)

var (
	configFormat   string
	configShowDiff bool
	configForce    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage doccov configuration",
	Long:  "View and manage doccov configuration stored in .doccov/config.toml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Write the default configuration to .doccov/config.toml in the project root.
An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective doccov configuration after defaults, pyproject.toml,
the config file and environment overrides are merged. The API key is never printed.

Examples:
  doccov config show              # Pretty-print current config
  doccov config show --format json
  doccov config show --diff       # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported doccov environment variable overrides",
	Args:  cobra.NoArgs,
	RunE:  runConfigEnv,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, yaml, human)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configInitCmd, configShowCmd, configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	Root      string                 `json:"root"`
	APIKeySet bool                   `json:"apiKeySet"`
	Config    map[string]interface{} `json:"config"`
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	path, err := config.Init(root, configForce)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	current, err := configMap(a.cfg)
	if err != nil {
		return err
	}
	if configShowDiff {
		defaults, err := configMap(config.DefaultConfig())
		if err != nil {
			return err
		}
		current = computeDiff(current, defaults)
	}

	resp := &ConfigShowResponse{
		Root:      a.root,
		APIKeySet: a.cfg.Generator.APIKey != "",
		Config:    current,
	}
	if OutputFormat(configFormat) != FormatHuman {
		output, err := FormatResponse(resp, OutputFormat(configFormat))
		if err != nil {
			return err
		}
		fmt.Println(output)
		return nil
	}

	fmt.Println("doccov Configuration")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Printf("Root: %s\n\n", resp.Root)
	lines := flatten("", resp.Config)
	if len(lines) == 0 {
		fmt.Println("(all settings are at their defaults)")
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	if resp.APIKeySet {
		fmt.Println("generator.apiKey: (set)")
	} else {
		fmt.Println("generator.apiKey: (not set)")
	}
	fmt.Println()
	fmt.Println("Use 'doccov config env' to see supported environment variables")
	return nil
}

func runConfigEnv(cmd *cobra.Command, args []string) error {
	fmt.Println("doccov Environment Variables")
	fmt.Println(strings.Repeat("─", 50))
	for _, ev := range config.EnvVars() {
		mark := " "
		if ev.Set {
			mark = "*"
		}
		fmt.Printf("%s %-36s %s\n", mark, ev.Name, ev.Key)
	}
	fmt.Println()
	fmt.Println("* currently set")
	return nil
}

// configMap converts cfg to its JSON object form.
func configMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return m, nil
}

// computeDiff keeps the entries of current that differ from defaults.
func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range current {
		sub, isMap := v.(map[string]interface{})
		defSub, defIsMap := defaults[k].(map[string]interface{})
		if isMap && defIsMap {
			if d := computeDiff(sub, defSub); len(d) > 0 {
				out[k] = d
			}
			continue
		}
		if !reflect.DeepEqual(v, defaults[k]) {
			out[k] = v
		}
	}
	return out
}

// flatten renders m as sorted dotted key: value lines.
func flatten(prefix string, m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if sub, ok := m[k].(map[string]interface{}); ok {
			lines = append(lines, flatten(name, sub)...)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %v", name, m[k]))
	}
	return lines
}
