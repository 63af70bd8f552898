package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/pipekeep/internal/joblog"
	"github.com/mattjoyce/pipekeep/internal/log"
)

func newLogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Manage job run logs",
		Long:  `Create, find, read and prune the per-run logs of ELT jobs.`,
	}

	cmd.AddCommand(newLogDeleteCommand(a))
	cmd.AddCommand(newLogDownloadCommand(a))
	cmd.AddCommand(newLogLatestCommand(a))
	cmd.AddCommand(newLogListCommand(a))
	cmd.AddCommand(newLogPathCommand(a))
	cmd.AddCommand(newLogPruneCommand(a))
	cmd.AddCommand(newLogWriteCommand(a))
	return cmd
}

func newLogPathCommand(a *app) *cobra.Command {
	var fileName string

	cmd := &cobra.Command{
		Use:   "path <state-id> <run-id>",
		Short: "Print the log path for a run, creating its directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			path, err := a.jobLogs().GenerateLogName(args[0], args[1], fileName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&fileName, "file", "", "log file name (default from logs.default_file_name)")
	return cmd
}

func newLogWriteCommand(a *app) *cobra.Command {
	var (
		runID    string
		fileName string
	)

	cmd := &cobra.Command{
		Use:   "write <state-id>",
		Short: "Copy stdin into a run log",
		Long: `Copy stdin into the log of a run. If the log file cannot be created the
input is still consumed and discarded, so the producing job is never blocked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if runID == "" {
				runID = uuid.NewString()
			}

			var written int64
			err := a.jobLogs().CreateLog(args[0], runID, fileName, func(w io.Writer) error {
				n, err := io.Copy(w, cmd.InOrStdin())
				written = n
				return err
			})
			if err != nil {
				return err
			}
			log.WithRun(args[0], runID).Debug("run log written", "bytes", written)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
				styleLabel.Render("run_id:"), styleValue.Render(runID),
				styleHint.Render(fmt.Sprintf("(%d bytes)", written)))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: a new UUID)")
	cmd.Flags().StringVar(&fileName, "file", "", "log file name (default from logs.default_file_name)")
	return cmd
}

func newLogLatestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest <state-id>",
		Short: "Print the content of the most recent log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			content, err := a.jobLogs().GetLatestLog(args[0])
			if err != nil {
				var tooBig *joblog.SizeThresholdError
				if errors.As(err, &tooBig) {
					return fmt.Errorf("%w\n%s", err, styleHint.Render("Hint: use 'pipekeep log download "+args[0]+"' to get the file path"))
				}
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		},
	}
}

func newLogDownloadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "download <state-id>",
		Short: "Print the resolved path of the most recent log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			path, err := a.jobLogs().GetDownloadableLog(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newLogListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list <state-id>",
		Aliases: []string{"ls"},
		Short:   "List all logs of a job, newest first",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			logs, err := a.jobLogs().GetAllLogs(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(logs) == 0 {
				fmt.Fprintln(out, styleHint.Render("No logs found."))
				return nil
			}
			for _, lf := range logs {
				fmt.Fprintf(out, "%s  %s  %s\n",
					styleLabel.Render(lf.CreatedAt.UTC().Format(time.RFC3339)),
					styleHint.Render(fmt.Sprintf("%8d", lf.Size)),
					styleValue.Render(lf.Path))
			}
			return nil
		},
	}
}

func newLogDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <state-id>",
		Aliases: []string{"rm"},
		Short:   "Delete every log of a job",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if err := a.jobLogs().DeleteAllLogs(cmd.Context(), args[0]); err != nil {
				return err
			}
			log.WithStateID(args[0]).Info("deleted all job logs")
			fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render("Deleted all logs for "+args[0]))
			return nil
		},
	}
}

func newLogPruneCommand(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune <state-id>",
		Short: "Delete logs older than a retention window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = a.cfg.Logs.Retention
			}
			report, err := a.jobLogs().PruneLogs(cmd.Context(), args[0], olderThan)
			if err != nil {
				return err
			}
			log.Info("pruned job logs", "state_id", args[0], "older_than", olderThan.String(), "deleted", report.Deleted)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s %d\n",
				styleSuccess.Render("deleted:"), report.Deleted,
				styleLabel.Render("kept:"), report.Kept)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention window (default from logs.retention)")
	return cmd
}
