// Package cli implements the pipekeep commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/pipekeep/internal/config"
	"github.com/mattjoyce/pipekeep/internal/history"
	"github.com/mattjoyce/pipekeep/internal/joblog"
	"github.com/mattjoyce/pipekeep/internal/log"
	"github.com/mattjoyce/pipekeep/internal/plugin"
	"github.com/mattjoyce/pipekeep/internal/pluginlock"
	"github.com/mattjoyce/pipekeep/internal/project"
	"github.com/mattjoyce/pipekeep/internal/storage"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	configPath string
	build      versionInfo

	cfg     *config.Config
	project *project.Project
}

// NewRootCommand builds the pipekeep command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	a := &app{build: resolveVersionInfo(version, commit, date)}

	rootCmd := &cobra.Command{
		Use:   "pipekeep",
		Short: "Manage ELT job logs and plugin lockfiles",
		Long: `pipekeep manages the on-disk artifacts of an ELT project: the per-run
job logs under logs/elt and the pinned plugin definitions under plugins/.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.FileName, "path to pipekeep.yaml or its directory")

	rootCmd.AddCommand(newLockCommand(a))
	rootCmd.AddCommand(newLogCommand(a))
	rootCmd.AddCommand(newVersionCommand(a))

	return rootCmd
}

// Execute runs the CLI and reports any error on stderr.
func Execute(version, commit, date string) error {
	cmd := NewRootCommand(version, commit, date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("Error:"), err)
		return err
	}
	return nil
}

// load reads the configuration once per invocation. A missing default
// config file falls back to defaults rooted at the working directory.
func (a *app) load(cmd *cobra.Command) error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		if cmd.Flags().Changed("config") || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		cfg, err = config.LoadDefaults()
		if err != nil {
			return err
		}
	}

	p, err := project.New(cfg.ProjectRoot)
	if err != nil {
		return err
	}

	log.SetupWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	log.Debug("configuration loaded", "source", cfg.SourcePath, "project_root", p.Root)

	a.cfg = cfg
	a.project = p
	return nil
}

func (a *app) jobLogs() *joblog.Service {
	return joblog.NewService(a.project,
		joblog.WithMaxReadBytes(a.cfg.Logs.MaxReadBytes),
		joblog.WithDefaultFileName(a.cfg.Logs.DefaultFileName),
	)
}

// registry discovers the plugin definitions configured for the project.
func (a *app) registry() (*plugin.Registry, error) {
	logger := log.WithComponent("plugin")
	return plugin.DiscoverDefinitions(a.cfg.DefinitionsPath(), func(level, msg string, args ...any) {
		switch level {
		case "warn":
			logger.Warn(msg, args...)
		default:
			logger.Debug(msg, args...)
		}
	})
}

// openHistory opens the lock history store. It returns a nil store when
// history is disabled. The returned close func is always safe to call.
func (a *app) openHistory(ctx context.Context) (*history.Store, func(), error) {
	path := a.cfg.HistoryDBPath()
	if path == "" {
		return nil, func() {}, nil
	}
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open lock history: %w", err)
	}
	return history.NewStore(db), func() { _ = db.Close() }, nil
}

// locks builds a pluginlock.Service without history, for read-only commands.
func (a *app) locks() *pluginlock.Service {
	return pluginlock.NewService(a.project, pluginlock.WithLogger(log.WithComponent("pluginlock")))
}

// lockService builds a pluginlock.Service, wired to history when enabled.
func (a *app) lockService(ctx context.Context) (*pluginlock.Service, func(), error) {
	store, closeFn, err := a.openHistory(ctx)
	if err != nil {
		return nil, closeFn, err
	}
	opts := []pluginlock.Option{pluginlock.WithLogger(log.WithComponent("pluginlock"))}
	if store != nil {
		opts = append(opts, pluginlock.WithHistory(store))
	}
	return pluginlock.NewService(a.project, opts...), closeFn, nil
}
