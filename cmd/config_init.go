package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/nightline/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml with all defaults",
	RunE: func(_ *cobra.Command, _ []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil {
			return eris.Errorf("%s already exists", path)
		}

		data, err := yaml.Marshal(nestDefaults(config.Defaults()))
		if err != nil {
			return eris.Wrap(err, "marshal defaults")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "write config.yaml")
		}

		fmt.Printf("Wrote %s. Set secrets via NIGHTLINE_VAPI_KEY and NIGHTLINE_ANTHROPIC_KEY.\n", path)
		return nil
	},
}

// nestDefaults converts dotted viper keys into the nested map yaml expects.
func nestDefaults(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, val := range flat {
		parts := strings.Split(key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = val
	}
	return out
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
