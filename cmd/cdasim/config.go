package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const longHelp = `Run an egtaonline style simulation of a simple market. Takes as input on
stdin lines of JSON spec objects, each with the structure:

  {"assignment": {"buyers": {[strat]: [count]}, "sellers": {[strat]: [count]}},
   "configuration": {"cda": true, "style": "Standard"}}

[count] is the number of players playing that strategy. [strat] is a float
in [0, 1] giving the amount of shading, 1 being the highest, optionally
suffixed with an underscore and one of {Standard, Exponential, Shift,
Correct}. "style" sets the default for unsuffixed strategies and "cda"
selects a CDA (default) or a call market.

obs is the number of observations per spec line (default 1).

Every flag can also be set through a CDASIM_ environment variable, e.g.
CDASIM_DB or CDASIM_LOG_LEVEL.`

// Config is the driver configuration, from flags with environment defaults.
type Config struct {
	Obs          int
	Flush        bool
	Seed         int64
	HasSeed      bool
	DBPath       string
	BatchSize    int
	Profile      string
	LogLevel     slog.Level
	KeepGoing    bool
	RandomOrgKey string
}

// newRootCmd builds the cdasim command. Its RunE resolves the configuration
// and hands it to action.
func newRootCmd(action func(*Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CDASIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cdasim [obs]",
		Short:         "Double-auction market simulator for EGTA",
		Long:          longHelp,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("bind flags: %w", err)
			}
			cfg, err := configFrom(v, args)
			if err != nil {
				return err
			}
			return action(cfg)
		},
	}

	flags := cmd.Flags()
	flags.Bool("flush", false, "flush stdout after every observation")
	flags.String("seed", "", "base RNG seed; spec line i uses seed+i-1 (random if empty)")
	flags.String("db", "", "also store observations in this SQLite database")
	flags.Int("batch", 100, "observations per database transaction")
	flags.String("profile", "", "write a pprof profile: cpu or mem")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("keep-going", false, "log failed spec lines and continue")

	if err := v.BindEnv("random-org-key", "RANDOM_ORG_API_KEY"); err != nil {
		panic(err) // BindEnv fails only without a key
	}

	return cmd
}

func configFrom(v *viper.Viper, args []string) (*Config, error) {
	cfg := &Config{
		Obs:          1,
		Flush:        v.GetBool("flush"),
		DBPath:       v.GetString("db"),
		BatchSize:    v.GetInt("batch"),
		Profile:      v.GetString("profile"),
		KeepGoing:    v.GetBool("keep-going"),
		RandomOrgKey: v.GetString("random-org-key"),
	}

	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("number of observations must be a positive integer: %q", args[0])
		}
		cfg.Obs = n
	}

	if seed := v.GetString("seed"); seed != "" {
		s, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("seed must be an integer: %q", seed)
		}
		cfg.Seed, cfg.HasSeed = s, true
	}

	switch cfg.Profile {
	case "", "cpu", "mem":
	default:
		return nil, fmt.Errorf("unknown profile mode %q", cfg.Profile)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	return cfg, nil
}

// parseConfig resolves the configuration for args. It returns a nil Config
// without error when help was requested.
func parseConfig(args []string, stderr io.Writer) (*Config, error) {
	var cfg *Config
	cmd := newRootCmd(func(c *Config) error {
		cfg = c
		return nil
	})
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}
