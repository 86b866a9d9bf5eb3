// Package driver wires the pipeline together: build a peer group per
// the configured transport, produce the initial tuple stream, run the
// key-phase reducer, the iterative partitioner, and the seed
// extractor, then write the result and log a summary.
package driver

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ashwin1596/gclabel/internal/collectives"
	"github.com/ashwin1596/gclabel/internal/config"
	"github.com/ashwin1596/gclabel/internal/gcerr"
	"github.com/ashwin1596/gclabel/internal/ingest/fastq"
	"github.com/ashwin1596/gclabel/internal/ingest/kronecker"
	"github.com/ashwin1596/gclabel/internal/logging"
	"github.com/ashwin1596/gclabel/internal/partition"
	"github.com/ashwin1596/gclabel/internal/reducer"
	"github.com/ashwin1596/gclabel/internal/seeds"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// Run executes one complete job under cfg, dispatching to the local
// or RPC transport.
func Run(cfg *config.Config, runID string) error {
	switch cfg.Transport {
	case "", "local":
		return runLocal(cfg, runID)
	case "rpc":
		return runRPC(cfg, runID)
	default:
		return gcerr.NewConfigError(fmt.Errorf("unknown transport %q", cfg.Transport))
	}
}

func runLocal(cfg *config.Config, runID string) error {
	peers := cfg.Peers
	if peers <= 0 {
		peers = 1
	}
	groups := collectives.NewLocalGroups(peers)
	return collectives.RunLocal(groups, func(g *collectives.Group) error {
		return runPeer(g, cfg, runID)
	})
}

func runRPC(cfg *config.Config, runID string) error {
	addrs, err := collectives.LoadTopology(cfg.Topology)
	if err != nil {
		return gcerr.NewConfigError(err)
	}
	if cfg.Rank < 0 || cfg.Rank >= len(addrs) {
		return gcerr.NewConfigError(fmt.Errorf("rank %d out of range [0,%d)", cfg.Rank, len(addrs)))
	}

	log, err := logging.New(cfg.Rank, runID, logging.WithLevel(cfg.LogLevel), logging.WithFormat(cfg.LogFormat))
	if err != nil {
		return gcerr.NewConfigError(err)
	}

	peer, err := collectives.NewPeer(cfg.Rank, addrs, log)
	if err != nil {
		return gcerr.NewCollectiveError("dial", err)
	}
	defer peer.Close()

	g := collectives.NewRootRPCGroup(peer, len(addrs))
	return runPeer(g, cfg, runID)
}

// runPeer is the entrypoint every peer, local or remote, runs to
// completion.
func runPeer(g *collectives.Group, cfg *config.Config, runID string) error {
	log, err := logging.New(g.Rank(), runID, logging.WithLevel(cfg.LogLevel), logging.WithFormat(cfg.LogFormat))
	if err != nil {
		return gcerr.NewConfigError(err)
	}

	variant, err := parseVariant(cfg.Method)
	if err != nil {
		return err
	}

	start := time.Now()

	raw, err := produce(g, cfg)
	if err != nil {
		return err
	}
	log.Infow("produced input", "tuples", len(raw))

	reduced, err := reducer.Run(g, raw)
	if err != nil {
		return err
	}

	result, err := partition.Run(g, variant, reduced, log)
	if err != nil {
		return err
	}
	log.Infow("partitioner converged", "supersteps", result.Supersteps, "variant", variant.String())

	final, err := seeds.Extract(g, result.Local, 0)
	if err != nil {
		return err
	}

	if g.Rank() != 0 {
		return nil
	}

	elapsed := time.Since(start)
	if err := writeSeeds(cfg, final); err != nil {
		return err
	}
	log.Infow("run complete",
		"seeds", humanize.Comma(int64(len(final))),
		"elapsed", elapsed.Round(time.Millisecond).String(),
	)
	return nil
}

func produce(g *collectives.Group, cfg *config.Config) ([]tuple.T, error) {
	switch cfg.Source {
	case "", "kronecker":
		return kronecker.Generate(kronecker.Options{
			Scale:      cfg.Scale,
			EdgeFactor: cfg.EdgeFactor,
			Rank:       g.Rank(),
			Size:       g.Size(),
		})
	case "fastq":
		return fastq.Read(fastq.Options{
			Path:    cfg.Fastq,
			KmerLen: cfg.KmerLen,
			Rank:    g.Rank(),
			Size:    g.Size(),
		})
	default:
		return nil, gcerr.NewConfigError(fmt.Errorf("unknown source %q", cfg.Source))
	}
}

func parseVariant(method string) (partition.Variant, error) {
	switch method {
	case "standard":
		return partition.Naive, nil
	case "inactive":
		return partition.Prune, nil
	case "loadbalance":
		return partition.PruneBalance, nil
	default:
		return 0, gcerr.NewConfigError(fmt.Errorf("unknown method %q", method))
	}
}

func writeSeeds(cfg *config.Config, seeds []tuple.T) error {
	path := fmt.Sprintf("%s.%s", cfg.SeedFile, cfg.Method)
	f, err := os.Create(path)
	if err != nil {
		return gcerr.NewConfigError(fmt.Errorf("create %s: %w", path, err))
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, t := range seeds {
		if _, err := fmt.Fprintf(w, "%d\n", t.Pc); err != nil {
			return gcerr.NewConfigError(err)
		}
	}
	return w.Flush()
}
