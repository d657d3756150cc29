package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/quadsplit/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli holds the state built in the root command's pre-run.
type cli struct {
	configPath string
	logLevel   string
	jsonOut    bool

	app *App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "quadsplit",
		Short:         "Split polygon meshes into quads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				_ = c.app.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "TOML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		c.refineCmd(),
		c.cleanCmd(),
		c.statsCmd(),
		c.runCmd(),
	)
	return root
}

// setup loads the config, applies flag overrides and builds the App.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return err
		}
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

// newLogger builds a zap logger from the log settings.
func newLogger(l config.Log) (*zap.Logger, error) {
	lvl, err := l.ZapLevel()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}

// applyFlags copies command flags the user set over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		v, err := flags.GetString("format")
		if err != nil {
			return err
		}
		cfg.Output.Format = v
	}
	if flags.Changed("tolerance") {
		v, err := flags.GetFloat64("tolerance")
		if err != nil {
			return err
		}
		cfg.Clean.Tolerance = v
	}
	if flags.Changed("no-weld") {
		v, err := flags.GetBool("no-weld")
		if err != nil {
			return err
		}
		cfg.Clean.Weld = !v
	}
	if flags.Changed("no-require-normals") {
		v, err := flags.GetBool("no-require-normals")
		if err != nil {
			return err
		}
		cfg.Refine.RequireNormals = !v
	}
	if flags.Changed("cells") {
		v, err := flags.GetInt("cells")
		if err != nil {
			return err
		}
		cfg.Kernel.Cells = v
	}
	if flags.Changed("kernel") {
		v, err := flags.GetString("kernel")
		if err != nil {
			return err
		}
		cfg.Kernel.Backend = v
	}
	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Engine.Timeout = v.String()
	}
	return nil
}

// print writes v as indented JSON when --json is set, otherwise as text.
func (c *cli) print(w io.Writer, v any, text func(io.Writer)) error {
	if !c.jsonOut {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
