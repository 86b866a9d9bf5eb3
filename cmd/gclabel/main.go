// Command gclabel drives one connected-components job: an input
// producer, the key-phase reducer, the iterative partitioner under a
// chosen variant, and the seed extractor, over a peer group reached
// either in-process or over the network.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ashwin1596/gclabel/internal/config"
	"github.com/ashwin1596/gclabel/internal/driver"
	"github.com/ashwin1596/gclabel/internal/gcerr"
	"github.com/ashwin1596/gclabel/internal/ingest/fastq"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var cfgErr *gcerr.ConfigError
	var inputErr *gcerr.InputError
	var collErr *gcerr.CollectiveError
	var invErr *gcerr.InvariantError
	if errors.As(err, &cfgErr) || errors.As(err, &inputErr) || errors.As(err, &collErr) || errors.As(err, &invErr) {
		return 1
	}
	return 1
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gclabel",
		Short: "distributed connected components via pointer-doubling label propagation",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run one connected-components job to convergence and write its seed set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			return driver.Run(cfg, uuid.NewString())
		},
	}

	var flags *pflag.FlagSet = cmd.Flags()
	flags.Int("scale", 10, "kronecker generator: log2 of vertex count")
	flags.Int("edgefactor", 16, "kronecker generator: edges per vertex")
	flags.String("method", "standard", "partitioner variant: standard|inactive|loadbalance")
	flags.String("seedfile", "seeds", "output prefix; written as <prefix>.<method>")
	flags.String("source", "kronecker", "input producer: kronecker|fastq")
	flags.String("fastq", "", "path to a FASTQ file, required for --source=fastq")
	flags.Int("kmerlen", fastq.DefaultKmerLen, "k-mer length for FASTQ ingestion")
	flags.String("transport", "local", "peer transport: local|rpc")
	flags.Int("rank", 0, "this process's rank, required for --transport=rpc")
	flags.Int("peers", 4, "peer count to simulate for --transport=local")
	flags.String("topology", "", "peer topology TOML file, required for --transport=rpc")
	flags.String("log-level", "info", "log level: debug|info|warn|error")
	flags.String("log-format", "console", "log encoding: console|json")

	return cmd
}
