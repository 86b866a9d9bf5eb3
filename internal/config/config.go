// Package config binds the run command's flags, environment
// variables, and defaults into one Config via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "GCLABEL"

// Config is the fully-resolved set of parameters one driver
// invocation runs with.
type Config struct {
	Scale      int    `mapstructure:"scale"`
	EdgeFactor int    `mapstructure:"edgefactor"`
	Method     string `mapstructure:"method"`
	SeedFile   string `mapstructure:"seedfile"`
	Source     string `mapstructure:"source"`
	Fastq      string `mapstructure:"fastq"`
	KmerLen    int    `mapstructure:"kmerlen"`
	Transport  string `mapstructure:"transport"`
	Rank       int    `mapstructure:"rank"`
	Peers      int    `mapstructure:"peers"`
	Topology   string `mapstructure:"topology"`
	LogLevel   string `mapstructure:"log-level"`
	LogFormat  string `mapstructure:"log-format"`
}

// Load overlays cmd's flags on top of GCLABEL_-prefixed environment
// variables and unmarshals the result into a Config.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
