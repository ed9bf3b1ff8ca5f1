package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cadtoh5m/internal/codec"
	"cadtoh5m/internal/repository"
)

var (
	runsLimit   int
	showJobPath string
)

// runsCmd inspects the run history
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the conversion run history",
	Long: `List and inspect recorded conversion runs.

Subcommands:
  list    - List recent runs
  show    - Show one run, optionally writing it back out as a job file
  delete  - Delete a run and its surface records`,
	RunE: runRunsList,
}

// runsListCmd lists recent runs
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

// runsShowCmd shows one run
var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

// runsDeleteCmd deletes one run
var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsCmd.PersistentFlags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to list")
	runsShowCmd.Flags().StringVar(&showJobPath, "job", "", "Write the run's entries to this YAML job file")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
}

func historyRepo() (repository.RunRepository, error) {
	repo, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("run history is disabled")
	}
	return repo, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	repo, err := historyRepo()
	if err != nil {
		return err
	}
	defer repo.Close()

	runs, err := repo.ListRuns(context.Background(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tDURATION\tFILES\tOUTPUT")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			run.Duration().Round(time.Millisecond),
			len(run.Entries),
			run.H5MFilename)
	}
	return tw.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	repo, err := historyRepo()
	if err != nil {
		return err
	}
	defer repo.Close()

	run, err := repo.GetRun(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "Output:   %s\n", run.H5MFilename)
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	for _, e := range run.Entries {
		tag := e.MaterialTag
		if tag == "" {
			tag = "(from volume names)"
		}
		fmt.Fprintf(out, "  %s  %s  volumes %v\n", e.CADFilename, tag, e.Volumes)
	}
	for _, vm := range run.VolumeMaterials {
		fmt.Fprintf(out, "  mat:%s  volumes %v\n", vm.MaterialTag, vm.Volumes)
	}

	if showJobPath == "" {
		return nil
	}
	f, err := os.Create(showJobPath)
	if err != nil {
		return fmt.Errorf("failed to create job file: %w", err)
	}
	defer f.Close()
	if err := codec.NewYAMLCodec().Export(run.Entries, f); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote job file %s\n", showJobPath)
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	repo, err := historyRepo()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.DeleteRun(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
	return nil
}
