package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/pipekeep/internal/log"
	"github.com/mattjoyce/pipekeep/internal/plugin"
	"github.com/mattjoyce/pipekeep/internal/pluginlock"
)

func newLockCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Manage plugin lockfiles",
		Long: `Pin plugin definitions to lockfiles under plugins/<type>/<name>--<variant>.lock.json
and track their integrity.`,
	}

	cmd.AddCommand(newLockChecksumCommand(a))
	cmd.AddCommand(newLockHistoryCommand(a))
	cmd.AddCommand(newLockManifestCommand(a))
	cmd.AddCommand(newLockSaveCommand(a))
	cmd.AddCommand(newLockShowCommand(a))
	cmd.AddCommand(newLockVerifyCommand(a))
	return cmd
}

// resolvePlugin loads config and looks up <type> <name> in the definitions.
func (a *app) resolvePlugin(cmd *cobra.Command, typeArg, name, variant string) (*plugin.ProjectPlugin, error) {
	if err := a.load(cmd); err != nil {
		return nil, err
	}
	t, err := plugin.ParseType(typeArg)
	if err != nil {
		return nil, err
	}
	registry, err := a.registry()
	if err != nil {
		return nil, err
	}
	return registry.ProjectPlugin(t, name, variant)
}

func newLockSaveCommand(a *app) *cobra.Command {
	var (
		variant string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "save <type> <name>",
		Short: "Write the lockfile for a plugin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := a.resolvePlugin(cmd, args[0], args[1], variant)
			if err != nil {
				return err
			}
			svc, closeFn, err := a.lockService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			lock, err := svc.Save(cmd.Context(), pp, force)
			if err != nil {
				if errors.Is(err, pluginlock.ErrLockfileExists) {
					return fmt.Errorf("%w\n%s", err, styleHint.Render("Hint: pass --force to overwrite it"))
				}
				return err
			}
			log.WithPlugin(lock.Plugin.String()).Info("plugin locked", "variant", lock.Variant.Name, "overwrite", force)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styleSuccess.Render("Locked"), styleValue.Render(lock.Path))
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", `variant name, "default" or "original"`)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing lockfile")
	return cmd
}

func newLockShowCommand(a *app) *cobra.Command {
	var (
		variant string
		create  bool
	)

	cmd := &cobra.Command{
		Use:   "show <type> <name>",
		Short: "Print the locked plugin definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := a.resolvePlugin(cmd, args[0], args[1], variant)
			if err != nil {
				return err
			}
			lock, err := a.locks().Lock(pp)
			if err != nil {
				return err
			}
			sp, err := lock.Load(create, nil)
			if err != nil {
				return err
			}
			if sp.Ref() != lock.Plugin {
				log.Warn("lockfile names a different plugin", "path", lock.Path,
					"expected", lock.Plugin.String(), "found", sp.Ref().String())
			}
			data, err := json.MarshalIndent(sp.Canonical(), "", "  ")
			if err != nil {
				return fmt.Errorf("render lockfile: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", `variant name, "default" or "original"`)
	cmd.Flags().BoolVar(&create, "create", false, "write the lockfile first if it is missing")
	return cmd
}

func newLockChecksumCommand(a *app) *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "checksum <type> <name>",
		Short: "Print the SHA-256 of a lockfile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := a.resolvePlugin(cmd, args[0], args[1], variant)
			if err != nil {
				return err
			}
			lock, err := a.locks().Lock(pp)
			if err != nil {
				return err
			}
			sum, err := lock.SHA256Checksum()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, lock.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", `variant name, "default" or "original"`)
	return cmd
}

func newLockHistoryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <type> <name>",
		Short: "List recorded lockfile writes for a plugin, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			t, err := plugin.ParseType(args[0])
			if err != nil {
				return err
			}
			store, closeFn, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			if store == nil {
				return fmt.Errorf("lock history is disabled (plugins.history_db is empty)")
			}

			entries, err := store.List(cmd.Context(), plugin.Ref{Type: t, Name: args[1]})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, styleHint.Render("No lock history."))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s  %s  %s\n",
					styleLabel.Render(e.LockedAt.Format(time.RFC3339)),
					styleValue.Render(e.Variant),
					e.SHA256,
					styleHint.Render(e.Path))
			}
			return nil
		},
	}
}

func newLockManifestCommand(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Write BLAKE3 checksums of every lockfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			report, err := pluginlock.GenerateManifest(a.project, dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range report.Files {
				fmt.Fprintf(out, "%s  %s\n", styleHint.Render(f.Hash), f.Name)
			}
			if report.Written {
				fmt.Fprintf(out, "%s %s\n", styleSuccess.Render("Wrote"), report.ManifestPath)
			} else {
				fmt.Fprintf(out, "%s %s\n", styleWarning.Render("Dry run, not written:"), report.ManifestPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the hashes without writing the manifest")
	return cmd
}

func newLockVerifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check lockfiles against the checksum manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			result, err := pluginlock.VerifyManifest(a.project)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Passed {
				fmt.Fprintln(out, styleSuccess.Render("All lockfiles match the manifest."))
				return nil
			}
			for _, name := range result.Mismatched {
				fmt.Fprintf(out, "%s %s\n", styleError.Render("modified: "), name)
			}
			for _, name := range result.Missing {
				fmt.Fprintf(out, "%s %s\n", styleError.Render("missing:  "), name)
			}
			for _, name := range result.Untracked {
				fmt.Fprintf(out, "%s %s\n", styleWarning.Render("untracked:"), name)
			}
			return fmt.Errorf("lockfile verification failed")
		},
	}
}
