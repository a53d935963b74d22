// Command cdasim runs EGTA-style double-auction simulations. It reads JSON
// spec lines from stdin and writes one JSON observation line per round to
// stdout.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/profile"

	"github.com/talgya/cdasim/internal/engine"
	"github.com/talgya/cdasim/internal/entropy"
	"github.com/talgya/cdasim/internal/persistence"
	"github.com/talgya/cdasim/internal/spec"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "cdasim:", err)
		return 2
	}
	if cfg == nil {
		// --help
		return 0
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	switch cfg.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}

	var db *persistence.DB
	if cfg.DBPath != "" {
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			return 1
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)
	}

	d := &driver{
		cfg:   cfg,
		db:    db,
		enc:   spec.NewEncoder(stdout, cfg.Flush),
		seeds: entropy.NewClient(cfg.RandomOrgKey),
	}
	defer d.enc.Flush()

	slog.Info("cdasim starting", "obs", cfg.Obs, "flush", cfg.Flush, "seeded", cfg.HasSeed)

	if err := d.processAll(stdin); err != nil {
		slog.Error("simulation failed", "error", err)
		return 1
	}

	slog.Info("cdasim finished",
		"specs", humanize.Comma(int64(d.specs)),
		"failed", d.failed,
		"observations", humanize.Comma(int64(d.observations)),
	)
	return 0
}

// driver processes spec lines one at a time.
type driver struct {
	cfg   *Config
	db    *persistence.DB
	enc   *spec.Encoder
	seeds *entropy.Client

	specs        int
	failed       int
	observations int
}

func (d *driver) processAll(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		text := scanner.Bytes()
		line++
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}

		if err := d.processSpec(line, text); err != nil {
			if !d.cfg.KeepGoing {
				return fmt.Errorf("line %d: %w", line, err)
			}
			d.failed++
			slog.Error("spec failed, continuing", "line", line, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read specs: %w", err)
	}
	return nil
}

func (d *driver) processSpec(line int, text []byte) error {
	s, err := spec.Parse(text)
	if err != nil {
		return err
	}
	pop, mech, err := s.Build()
	if err != nil {
		return err
	}

	var seed int64
	if d.cfg.HasSeed {
		seed = d.cfg.Seed + int64(line-1)
	} else {
		seed = d.seeds.Seed()
	}

	sim := engine.NewSimulation(pop, mech, seed)
	d.specs++

	emit := d.enc.Encode
	var rec *persistence.Recorder
	if d.db != nil {
		rec, err = d.db.NewRecorder(sim, text, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		emit = func(obs engine.Observation) error {
			if err := d.enc.Encode(obs); err != nil {
				return err
			}
			return rec.Record(obs)
		}
	}

	runErr := sim.Run(d.cfg.Obs, func(obs engine.Observation) error {
		d.observations++
		return emit(obs)
	})
	if rec != nil {
		if err := rec.Flush(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", sim.ID, runErr)
	}
	if d.db != nil {
		if err := d.db.SaveMeta("last_run", sim.ID.String()); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}

	stats := sim.Stats
	slog.Info("spec complete",
		"line", line,
		"run", sim.ID,
		"seed", seed,
		"mechanism", mech.Name(),
		"agents", humanize.Comma(int64(len(pop))),
		"rounds", humanize.Comma(int64(sim.Rounds)),
		"mean_surplus", fmt.Sprintf("%.4f", stats.Surplus.Mean()),
		"sd_surplus", fmt.Sprintf("%.4f", stats.Surplus.StdDev()),
		"mean_ce_surplus", fmt.Sprintf("%.4f", stats.CESurplus.Mean()),
		"efficiency", fmt.Sprintf("%.3f", stats.Efficiency()),
		"no_benchmark_rounds", stats.NoBenchmark,
	)
	return nil
}
