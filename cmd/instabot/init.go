package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type defaultConfig struct {
	StateFile     string `yaml:"state_file"`
	SessionFile   string `yaml:"session_file"`
	OwnerUsername string `yaml:"owner_username"`
	Poll          struct {
		MinInterval string `yaml:"min_interval"`
		MaxInterval string `yaml:"max_interval"`
		BackoffMin  string `yaml:"backoff_min"`
		BackoffMax  string `yaml:"backoff_max"`
	} `yaml:"poll"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter config.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = args[0]
			}
			dir = filepath.Clean(dir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			cfgPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}

			cfg := defaultConfig{
				StateFile:   "bot_data.json",
				SessionFile: "session.json",
			}
			cfg.Poll.MinInterval = "10s"
			cfg.Poll.MaxInterval = "15s"
			cfg.Poll.BackoffMin = "20s"
			cfg.Poll.BackoffMax = "30s"
			cfg.Logging.Level = "info"
			cfg.Logging.Format = "text"

			raw, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, raw, 0o644); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", cfgPath)
			return nil
		},
	}
}
