package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.3.0"

var (
	brand  = color.New(color.FgHiCyan, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

type rootOptions struct {
	configPath string
	logFile    string
	debug      bool
}

// setup loads the configuration and logger shared by every command.
func (o *rootOptions) setup() (Config, *zap.Logger, error) {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if o.logFile != "" {
		cfg.Log.File = expandPath(o.logFile)
	}
	logger, err := NewLogger(cfg.Log, o.debug)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func (o *rootOptions) newSession(cfg Config, logger *zap.Logger) *Session {
	ctrl := NewController(cfg.Canvas, systemClipboard{}, logger)
	return NewSession(ctrl, NewLocalStore(cfg.SaveDirectory, logger), cfg, logger)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "flowboard [project]",
		Short:         "flowboard: a terminal canvas for boxes and arrows",
		Long:          brand.Sprint("flowboard") + " sketches flowcharts with the mouse, right in the terminal",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				bad.Fprintf(os.Stderr, "flowboard: %v\n", err)
				return err
			}
			defer logger.Sync()

			path := ""
			if len(args) == 1 {
				path = cfg.SavePath(args[0])
			}
			if err := runUI(cmd.Context(), cfg, opts.newSession(cfg, logger), logger, path); err != nil {
				bad.Fprintf(os.Stderr, "flowboard: %v\n", err)
				return err
			}
			return nil
		},
	}
	cmd.SetVersionTemplate("flowboard {{ .Version }}\n")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/flowboard/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log at debug level")

	cmd.AddCommand(
		recentCmd(opts),
		exportCmd(opts),
		initConfigCmd(opts),
	)
	return cmd
}

func runUI(ctx context.Context, cfg Config, session *Session, logger *zap.Logger, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Info("starting", zap.String("version", version), zap.String("save_directory", cfg.SaveDirectory))
	m := newModel(ctx, cfg, session, logger).openOnStart(path)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if fm, ok := final.(model); ok {
		fm.closeWatcher()
	}
	return err
}

func recentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recently modified projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			items, err := opts.newSession(cfg, logger).Recent(cmd.Context())
			if err != nil {
				bad.Printf("flowboard: %v\n", err)
				return err
			}
			if len(items) == 0 {
				subtle.Println("  No projects yet")
				return nil
			}
			for _, r := range items {
				fmt.Printf("  %-24s %s\n", brand.Sprint(r.Name),
					subtle.Sprintf("modified %s · created %s · %s",
						r.Modified.Format(time.DateTime), r.Created.Format(time.DateOnly), r.FilePath))
			}
			return nil
		},
	}
}

func exportCmd(opts *rootOptions) *cobra.Command {
	var (
		width, height int
		keepCamera    bool
	)
	cmd := &cobra.Command{
		Use:   "export <project> <image>",
		Short: "Render a project to a .png, .svg or .txt file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if width > 0 {
				cfg.Display.ExportWidth = width
			}
			if height > 0 {
				cfg.Display.ExportHeight = height
			}
			sess := opts.newSession(cfg, logger)
			ctx := cmd.Context()
			if err := sess.Open(ctx, cfg.SavePath(args[0])); err != nil {
				bad.Printf("flowboard: %v\n", err)
				return err
			}
			ctrl := sess.Controller()
			ctrl.SetViewport(float64(cfg.Display.ExportWidth), float64(cfg.Display.ExportHeight))
			if !keepCamera {
				ctrl.FitToContent()
			}
			out := cfg.ImagePath(args[1])
			if err := sess.ExportImage(ctx, out); err != nil {
				bad.Printf("flowboard: %v\n", err)
				return err
			}
			good.Printf("  Exported %s\n", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "image height in pixels")
	cmd.Flags().BoolVar(&keepCamera, "keep-camera", false, "use the saved camera instead of fitting all nodes")
	return cmd
}

func initConfigCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = defaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				bad.Printf("flowboard: %s exists (use --force to overwrite)\n", path)
				return fmt.Errorf("%s exists", path)
			}
			if err := SaveConfig(path, DefaultConfig()); err != nil {
				bad.Printf("flowboard: %v\n", err)
				return err
			}
			good.Printf("  Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
