package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect analysis job history",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status: model.JobStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show full details of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}
		results, err := st.ResultsForJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show results")
		}

		out := struct {
			*model.Job
			Results []model.AnalysisResult `json:"results,omitempty"`
		}{job, results}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.DeleteJob(ctx, args[0]); err != nil {
			return eris.Wrap(err, "jobs delete")
		}
		fmt.Fprintf(os.Stdout, "Deleted job %s\n", args[0])
		return nil
	},
}

func formatJobsList(w io.Writer, jobs []model.Job) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTARGET\tSTATUS\tVIDEOS\tANALYZED\tCREATED\tERROR")
	for _, j := range jobs {
		errMsg := j.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%d\t%d\t%s\t%s\n",
			j.ID,
			j.Company, j.Product,
			j.Status,
			j.VideosFound,
			j.VideosAnalyzed,
			j.CreatedAt.Format(time.RFC3339),
			errMsg,
		)
	}
	_ = tw.Flush()
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by status (pending|running|completed|failed)")
	jobsListCmd.Flags().Int("limit", 50, "maximum jobs to list")

	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}
