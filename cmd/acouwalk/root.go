package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/acouwalk/internal/config"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:          "acouwalk [flags] DIR...",
		Short:        "Endless granular collage of a WAV collection",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			if len(args) > 0 {
				dirs, err := expandDirs(args)
				if err != nil {
					return err
				}
				loaded.Corpus.Dirs = dirs
			}
			activeCfg = loaded
			setupLogger(os.Stderr, loaded.Log)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), activeCfg)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.Flags(), defaults)

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(w io.Writer, cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.Level)}

	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func expandDirs(args []string) ([]string, error) {
	dirs := make([]string, len(args))
	for i, a := range args {
		d, err := homedir.Expand(a)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", a, err)
		}
		dirs[i] = d
	}
	return dirs, nil
}
