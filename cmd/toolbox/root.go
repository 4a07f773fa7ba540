package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tldr-it-stepankutaj/toolbox/internal/app"
	"github.com/tldr-it-stepankutaj/toolbox/internal/logging"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules"
	"github.com/tldr-it-stepankutaj/toolbox/internal/modules/builtin"
	"github.com/tldr-it-stepankutaj/toolbox/internal/prefs"
	"github.com/tldr-it-stepankutaj/toolbox/internal/tui"
	"github.com/tldr-it-stepankutaj/toolbox/internal/workspace"
	"github.com/tldr-it-stepankutaj/toolbox/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "toolbox",
	Short: "Toolbox: a terminal shell for small utility units",
	Long: "Toolbox discovers unit definition files in the units directory, binds them to a navigation list " +
		"and hosts the selected unit's panel. Run `toolbox init` once to write the built-in units.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		defer s.close()

		reg, err := s.scan()
		var derr *modules.DiscoveryError
		if err != nil && !errors.As(err, &derr) {
			return err
		}
		return tui.Run(s.appCtx, reg, s.store)
	},
}

func init() {
	cobra.OnInitialize(readConfigFile)

	// Persistent flags (available to all subcommands).
	rootCmd.PersistentFlags().String("config", "", "Config file (yaml/toml/json)")
	rootCmd.PersistentFlags().String("workspace", defaultWorkspace(), "Path to workspace root")
	rootCmd.PersistentFlags().String("units", "", "Units directory (default <workspace>/units)")
	rootCmd.PersistentFlags().String("settings", "", "Settings file (default <workspace>/settings.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for system commands (overrides system_tool.command_timeout)")

	// Bind flags to Viper.
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("units", rootCmd.PersistentFlags().Lookup("units"))
	_ = viper.BindPFlag("settings", rootCmd.PersistentFlags().Lookup("settings"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	// Env support: TOOLBOX_WORKSPACE, TOOLBOX_UNITS, etc.
	viper.SetEnvPrefix("TOOLBOX")
	viper.AutomaticEnv()

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(unitsCmd)
	rootCmd.AddCommand(versionCmd)
}

func defaultWorkspace() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./toolbox"
	}
	return filepath.Join(dir, "toolbox")
}

func readConfigFile() {
	path := viper.GetString("config")
	if path == "" {
		return
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", path, err)
		os.Exit(1)
	}
}

// session is the wiring shared by the commands.
type session struct {
	appCtx  app.Context
	store   *prefs.Store
	catalog *modules.Catalog
	close   func()
}

// setup loads config, ensures the workspace and opens the settings store.
// With a nil logOut the log goes to the workspace log file.
func setup(cmd *cobra.Command, logOut io.Writer) (*session, error) {
	cfg, err := app.LoadConfigFromViper()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Ensure(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	var logger *log.Logger
	closeLog := func() error { return nil }
	if logOut == nil {
		logger, closeLog, err = logging.OpenFile(ws.LogFile(logging.FileName), cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	} else {
		logger = logging.New(logOut, cfg.LogLevel)
	}

	store, err := prefs.Open(cfg.SettingsFile)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	appCtx := app.Context{
		Ctx:       ctx,
		Config:    cfg,
		Workspace: ws,
		Logger:    logger,
		Now:       time.Now,
	}

	cat := modules.NewCatalog()
	if err := builtin.Register(cat, depsFor(appCtx, store, viper.GetViper())); err != nil {
		_ = closeLog()
		return nil, err
	}

	return &session{
		appCtx:  appCtx,
		store:   store,
		catalog: cat,
		close:   func() { _ = closeLog() },
	}, nil
}

// depsFor hands the session services to the built-in panels.
func depsFor(appCtx app.Context, settings modules.Settings, v *viper.Viper) builtin.Deps {
	return builtin.Deps{
		Ctx:      appCtx.Ctx,
		Now:      appCtx.Now,
		Settings: settings,
		Logger:   appCtx.Logger,
		Timeout:  explicitTimeout(v),
	}
}

// explicitTimeout is the command timeout given by flag, environment or
// config file, or zero so the persisted setting applies.
func explicitTimeout(v *viper.Viper) time.Duration {
	if !v.IsSet("timeout") {
		return 0
	}
	return v.GetDuration("timeout")
}

func (s *session) scan() (*modules.Registry, error) {
	scanner := modules.NewScanner(s.catalog, s.appCtx.Logger.WithPrefix("registry"))
	return scanner.Scan(s.appCtx.Config.UnitsDir)
}

// `init` subcommand to initialize the workspace and default units.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize workspace structure and write the built-in unit files",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer s.close()

		created, err := builtin.WriteDefinitions(s.appCtx.Config.UnitsDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Workspace ready at: %s\n", s.appCtx.Workspace.Path())
		for _, path := range created {
			fmt.Fprintf(out, "  wrote %s\n", path)
		}
		if len(created) == 0 {
			fmt.Fprintln(out, "  unit files already present")
		}
		return nil
	},
}

// `units` subcommand: scan and print the registry without starting the UI.
var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List discovered units in navigation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer s.close()

		reg, err := s.scan()
		printRegistry(cmd.OutOrStdout(), reg)
		return err
	},
}

func printRegistry(w io.Writer, reg *modules.Registry) {
	fmt.Fprintf(w, "Units in %s:\n", reg.Dir())
	if reg.Len() == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, d := range reg.All() {
		kind := "regular"
		if d.Priority() {
			kind = "host-aware"
		}
		fmt.Fprintf(w, "  %d. %-16s %-16s %-10s %s\n", i+1, d.ID, d.Type, kind, d.Description)
	}
	if diags := reg.Diagnostics(); len(diags) > 0 {
		fmt.Fprintln(w, "Diagnostics:")
		for _, diag := range diags {
			fmt.Fprintf(w, "  %s\n", diag.String())
		}
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
