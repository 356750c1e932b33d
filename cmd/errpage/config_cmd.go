package main

import (
	"encoding/json"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/errpage/internal/errors"
)

func configCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and ERRPAGE_* environment
overrides have been applied.

Examples:
  errpage config
  errpage config --format yaml
  ERRPAGE_MODE=production errpage config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			var data []byte
			switch strings.ToLower(format) {
			case "json":
				data, err = json.MarshalIndent(cfg, "", "  ")
				data = append(data, '\n')
			case "yaml", "yml":
				data, err = yaml.Marshal(cfg)
			case "toml":
				data, err = toml.Marshal(cfg)
			default:
				return errors.New("E121").WithDetail("cannot print config as " + format)
			}
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml or toml")

	return cmd
}
